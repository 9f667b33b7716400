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

package remote

import (
	"io/fs"
	"time"
)

var _ fs.FileInfo = (*FileInfo)(nil)

// FileInfo 协议无关的文件信息
type FileInfo struct {
	FileName    string
	FileSize    int64
	FileModTime time.Time
	Dir         bool
}

func (f *FileInfo) Name() string {
	return f.FileName
}

func (f *FileInfo) Size() int64 {
	return f.FileSize
}

func (f *FileInfo) Mode() fs.FileMode {
	if f.Dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func (f *FileInfo) ModTime() time.Time {
	return f.FileModTime
}

func (f *FileInfo) IsDir() bool {
	return f.Dir
}

func (f *FileInfo) Sys() any {
	return nil
}
