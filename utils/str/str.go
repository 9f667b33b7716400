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

// Package str provides string helpers used by node settings: ${} template
// substitution, value-to-string conversion and shell quoting.
package str

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/rulego/rulego-components-file/utils/maps"
)

const (
	varStart = "${"
	varEnd   = "}"
)

// expand 扫描 ${key} 占位符，lookup 返回 false 时保留占位符原样
func expand(s string, lookup func(key string) (string, bool)) string {
	var b strings.Builder
	for {
		start := strings.Index(s, varStart)
		if start < 0 {
			break
		}
		end := strings.Index(s[start+len(varStart):], varEnd)
		if end < 0 {
			break
		}
		end += start + len(varStart)
		placeholder := s[start : end+len(varEnd)]
		b.WriteString(s[:start])
		key := strings.TrimSpace(s[start+len(varStart) : end])
		if v, ok := lookup(key); ok && key != "" {
			b.WriteString(v)
		} else {
			b.WriteString(placeholder)
		}
		s = s[end+len(varEnd):]
	}
	b.WriteString(s)
	return b.String()
}

// CheckHasVar 是否包含 ${} 变量
func CheckHasVar(s string) bool {
	start := strings.Index(s, varStart)
	return start >= 0 && strings.Index(s[start+len(varStart):], varEnd) > 0
}

// ExecuteTemplate 替换 ${msg.file.name} 这类多级变量，找不到的变量保留原样
func ExecuteTemplate(original string, dict map[string]interface{}) string {
	return expand(original, func(key string) (string, bool) {
		v := maps.Get(dict, key)
		if v == nil {
			return "", false
		}
		return ToString(v), true
	})
}

// SprintfVar 只替换带 prefix 的变量，例如 prefix="global." 时替换 ${global.key}
func SprintfVar(original string, prefix string, dict map[string]string) string {
	if len(dict) == 0 {
		return original
	}
	return expand(original, func(key string) (string, bool) {
		name, ok := strings.CutPrefix(key, prefix)
		if !ok {
			return "", false
		}
		v, ok := dict[name]
		return v, ok
	})
}

// ToString 值转字符串，数字不带多余的小数位，结构体和map转JSON
func ToString(input interface{}) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}
	if b, err := json.Marshal(input); err == nil {
		return string(b)
	}
	return fmt.Sprint(input)
}

// ShellQuote 使用单引号转义，用于拼接远程 shell 命令
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
