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

package filehandling

import (
	"context"
	"errors"
	"io/fs"

	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/remote"
)

// StatusDeleted 删除成功
const StatusDeleted = "deleted"

// DeleteRequest 批量删除请求
type DeleteRequest struct {
	//文件或目录，本地路径或URI
	Paths       []string
	Connections *remote.ConnectionMonitor
	//nil 时使用URI中的用户信息
	Credentials *remote.Credentials
	//文件不存在时视为失败
	FailIfNotExist bool
	//true 第一个失败即返回错误
	AbortOnFail bool
	Retry       remote.RetryConfig
}

// DeleteResult 删除结果行
type DeleteResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// Delete 删除文件，目录递归删除，返回结果行和失败数量
// AbortOnFail 时返回第一个错误，否则错误只记录在结果行中
func Delete(ctx context.Context, req DeleteRequest) ([]DeleteResult, int, error) {
	if req.Connections == nil {
		return nil, 0, errors.New("connection monitor is nil")
	}
	rows := make([]DeleteResult, 0, len(req.Paths))
	failed := 0
	for _, p := range req.Paths {
		if err := ctx.Err(); err != nil {
			return rows, failed, err
		}
		row := DeleteResult{Path: p}
		protocol := ""
		err := func() error {
			f, err := remote.Resolve(ctx, req.Connections, p, req.Credentials)
			if err != nil {
				return err
			}
			row.Path = f.String()
			protocol = remote.Protocol(f.URI())
			err = remote.DeleteWithRetry(ctx, f, req.Retry)
			if err == nil {
				row.Deleted = true
			} else if errors.Is(err, fs.ErrNotExist) && !req.FailIfNotExist {
				err = nil
			}
			return err
		}()
		if err != nil {
			row.Error = err.Error()
			failed++
			metrics.RecordFile(protocol, StatusFailed)
		} else if row.Deleted {
			metrics.RecordFile(protocol, StatusDeleted)
		}
		rows = append(rows, row)
		if err != nil && req.AbortOnFail {
			return rows, failed, err
		}
	}
	return rows, failed, nil
}
