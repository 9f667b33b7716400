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
	"fmt"
	"io/fs"
	"time"

	"github.com/rulego/rulego-components-file/remote"
)

// Entry 列表结果行
type Entry struct {
	URI     string    `json:"uri"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	IsDir   bool      `json:"isDir"`
}

// ListRequest 列出目录请求
type ListRequest struct {
	Directory   *remote.File
	Subfolders  bool
	Directories bool
	//nil 不过滤，过滤条件不作用于目录的遍历
	Filter *Filter
}

// List 列出目录中的文件，Directories=true 时也包含目录
func List(ctx context.Context, req ListRequest) ([]Entry, error) {
	if req.Directory == nil {
		return nil, fmt.Errorf("directory is nil")
	}
	info, err := req.Directory.Stat(ctx)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", req.Directory)
	}
	entries := []Entry{}
	err = req.Directory.Walk(ctx, req.Subfolders, func(file *remote.File, info fs.FileInfo) error {
		if info.IsDir() && !req.Directories {
			return nil
		}
		ok, err := req.Filter.Match(file.Path(), info)
		if err != nil || !ok {
			return err
		}
		entries = append(entries, Entry{
			URI:     file.String(),
			Path:    file.Path(),
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
		return nil
	})
	return entries, err
}
