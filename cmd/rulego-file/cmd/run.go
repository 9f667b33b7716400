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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/engine"
	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/node_pool"
	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/spf13/cobra"
)

var ErrFlowFailed = errors.New("flow finished with failures")

type runOptions struct {
	file        string
	data        string
	dataType    string
	msgType     string
	metadata    []string
	properties  []string
	cron        string
	metricsAddr string
	secretKey   string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a flow once or on a cron schedule",
	Long: `Loads a flow definition (JSON or YAML), creates its shared connection
nodes and sends one message through it. With --cron the flow is executed
on every schedule tick until the process is interrupted.`,
	Example: `  rulego-file run -f backup.yaml --metadata day=2025-01-01
  rulego-file run -f upload.json --data '["/data/out/report.csv"]' --cron "0 */5 * * * *"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, runOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.file, "file", "f", "", "flow definition file")
	f.StringVar(&runOpts.data, "data", "", "message data")
	f.StringVar(&runOpts.dataType, "data-type", string(types.JSON), "message data type: JSON, TEXT or BINARY")
	f.StringVar(&runOpts.msgType, "type", "FILE", "message type")
	f.StringArrayVar(&runOpts.metadata, "metadata", nil, "message metadata key=value, repeatable")
	f.StringArrayVar(&runOpts.properties, "property", nil, "global property key=value, repeatable")
	f.StringVar(&runOpts.cron, "cron", "", "cron expression with seconds, e.g. \"0 0 * * * *\"")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	f.StringVar(&runOpts.secretKey, "secret-key", os.Getenv("RULEGO_SECRET_KEY"), "key decrypting connection passwords")
	_ = runCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, opts runOptions, out io.Writer) error {
	dsl, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}
	metadata, err := parseKeyValues(opts.metadata)
	if err != nil {
		return err
	}
	properties, err := parseKeyValues(opts.properties)
	if err != nil {
		return err
	}
	dataType, err := parseDataType(opts.dataType)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	configOpts := []types.Option{
		types.WithLogger(log),
		types.WithSecretKey(opts.secretKey),
		types.WithProperties(properties),
	}
	pool := node_pool.NewNodePool(engine.NewConfig(configOpts...))
	defer pool.Stop()
	flow, err := engine.New("", dsl, append(configOpts, types.WithNetPool(pool))...)
	if err != nil {
		return fmt.Errorf("load flow %s: %w", opts.file, err)
	}
	defer flow.Destroy()

	if opts.metricsAddr != "" {
		server := &http.Server{Addr: opts.metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	execute := func() error {
		msg := types.NewMsg(0, opts.msgType, dataType, types.BuildMetadata(metadata), opts.data)
		return printResults(out, flow.Execute(ctx, msg))
	}
	if opts.cron == "" {
		return execute()
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(opts.cron, func() {
		if err := execute(); err != nil {
			log.Printf("flow %s failed: %v", flow.Id(), err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron expression %s: %w", opts.cron, err)
	}
	c.Start()
	log.Printf("flow %s scheduled: %s", flow.Id(), opts.cron)
	<-ctx.Done()
	//等待正在执行的任务结束
	<-c.Stop().Done()
	return nil
}

// printResults 每个结束分支输出一行JSON，有失败分支时返回错误
func printResults(out io.Writer, results []types.WrapperMsg) error {
	failed := 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		}
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, string(b)); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrFlowFailed, failed, len(results))
	}
	return nil
}

// parseKeyValues 解析 key=value 列表
func parseKeyValues(items []string) (map[string]string, error) {
	values := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}

func parseDataType(s string) (types.DataType, error) {
	for _, t := range []types.DataType{types.JSON, types.TEXT, types.BINARY} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown data type %s", s)
}
