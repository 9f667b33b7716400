/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cmd 实现 rulego-file 的子命令
package cmd

import (
	"fmt"
	"os"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/logger"
	"github.com/spf13/cobra"
)

// 构建时通过 -ldflags 设置
var (
	version = "dev"
	commit  = "none"
)

// 全局参数
var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "rulego-file",
	Short: "Run file handling flows",
	Long: `rulego-file runs flows built from file handling nodes: copy/move, delete,
list, zip/unzip, MIME type detection and remote transfers over
SFTP, SCP, FTP, SMB, S3 and Box connections.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rulego-file %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(versionCmd)
}

// newLogger 根据全局参数创建日志
func newLogger() (types.Logger, func(), error) {
	l, err := logger.New(logger.Config{Level: logLevel, Format: logFormat, OutputPath: "stderr"})
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

// Execute 执行根命令
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
