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

// Package logger 基于 zap 的 types.Logger 实现
package logger

import (
	"fmt"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ types.Logger = (*ZapLogger)(nil)

// Config 日志配置
type Config struct {
	//debug, info, warn, error
	Level string
	//json 或 console
	Format string
	//stdout、stderr 或文件路径
	OutputPath string
}

// ZapLogger 把 Printf 输出到 zap，包含 error 的消息使用 Error 级别
type ZapLogger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// New 创建日志
func New(cfg Config) (*ZapLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
	}
	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return Wrap(l), nil
}

// Wrap 包装已有的 zap.Logger
func Wrap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{Logger: l, sugar: l.Sugar()}
}

func (l *ZapLogger) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		l.sugar.Error(msg)
	} else {
		l.sugar.Info(msg)
	}
}

// Debugf 调试日志
func (l *ZapLogger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}
