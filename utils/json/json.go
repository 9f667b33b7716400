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

// Package json wraps encoding/json so that file paths and URIs written into
// messages are not HTML-escaped.
package json

import (
	"bytes"
	"encoding/json"
)

func encode(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode 追加换行
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Marshal 不转义 & < >
func Marshal(v interface{}) ([]byte, error) {
	return encode(v, "")
}

// MarshalIndent 两个空格缩进，命令行输出使用
func MarshalIndent(v interface{}) ([]byte, error) {
	return encode(v, "  ")
}

func Unmarshal(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}
