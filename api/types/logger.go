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

package types

import (
	"log"
	"os"
)

// Logger 节点和引擎使用的日志接口，命令行使用 utils/logger 的 zap 实现
type Logger interface {
	Printf(format string, v ...interface{})
}

var _ Logger = (*log.Logger)(nil)

// DefaultLogger 输出到标准错误，标准输出留给流程结果
func DefaultLogger() Logger {
	return log.New(os.Stderr, "[rulego-file] ", log.LstdFlags)
}
