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

package base

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/rulego/rulego-components-file/utils/str"
)

// 输出元数据key
const (
	KeyCount  = "count"
	KeyFailed = "failed"
)

var ErrNoFiles = errors.New("no file in message data")

// ReadPaths 读取消息数据中的文件列表
// 支持 JSON 字符串数组、包含 uri 或 path 字段的对象数组，以及单个路径文本
func (n *nodeUtils) ReadPaths(msg types.RuleMsg) ([]string, error) {
	data := strings.TrimSpace(msg.Data)
	if data == "" || msg.DataType == types.BINARY {
		return nil, ErrNoFiles
	}
	if !strings.HasPrefix(data, "[") {
		if strings.HasPrefix(data, "{") {
			var row map[string]interface{}
			if err := json.Unmarshal([]byte(data), &row); err != nil {
				return nil, err
			}
			p := rowPath(row)
			if p == "" {
				return nil, ErrNoFiles
			}
			return []string{p}, nil
		}
		return []string{data}, nil
	}
	var rows []interface{}
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("message data is not a file list: %w", err)
	}
	var paths []string
	for i, row := range rows {
		switch v := row.(type) {
		case string:
			paths = append(paths, v)
		case map[string]interface{}:
			p := rowPath(v)
			if p == "" {
				return nil, fmt.Errorf("row %d has no uri or path", i)
			}
			paths = append(paths, p)
		default:
			return nil, fmt.Errorf("row %d is not a file reference", i)
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	return paths, nil
}

func rowPath(row map[string]interface{}) string {
	for _, key := range []string{"uri", "path", "target"} {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// WriteRows 结果行写入消息数据，并设置 count 和 failed 元数据
func (n *nodeUtils) WriteRows(msg *types.RuleMsg, rows interface{}, count, failed int) error {
	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if msg.Metadata == nil {
		msg.Metadata = types.NewMetadata()
	}
	msg.Data = string(b)
	msg.DataType = types.JSON
	msg.Metadata.PutValue(KeyCount, strconv.Itoa(count))
	msg.Metadata.PutValue(KeyFailed, strconv.Itoa(failed))
	return nil
}

// Paths 文件列表：模板渲染结果不为空时使用该路径，否则读取消息数据
func (n *nodeUtils) Paths(tmpl str.Template, ctx types.RuleContext, msg types.RuleMsg) ([]string, error) {
	if p := strings.TrimSpace(n.Render(tmpl, ctx, msg)); p != "" {
		return []string{p}, nil
	}
	return n.ReadPaths(msg)
}

// Context 节点执行上下文，未设置时返回 context.Background()
func (n *nodeUtils) Context(ctx types.RuleContext) context.Context {
	if ctx != nil {
		if c := ctx.GetContext(); c != nil {
			return c
		}
	}
	return context.Background()
}
