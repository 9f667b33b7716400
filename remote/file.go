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
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// File 远程文件，URI加上访问该URI的连接
type File struct {
	uri  *url.URL
	conn Connection
}

// NewFile 创建远程文件
func NewFile(u *url.URL, conn Connection) *File {
	c := *u
	return &File{uri: &c, conn: conn}
}

// URI 文件URI
func (f *File) URI() *url.URL {
	c := *f.uri
	return &c
}

// String 去掉密码的URI
func (f *File) String() string {
	return Redact(f.uri)
}

// Path URI中的路径
func (f *File) Path() string {
	return f.uri.Path
}

// Name 文件名
func (f *File) Name() string {
	p := strings.TrimSuffix(f.uri.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Ext 扩展名，不包含 .
func (f *File) Ext() string {
	return strings.TrimPrefix(path.Ext(f.Name()), ".")
}

// Connection 文件使用的连接
func (f *File) Connection() Connection {
	return f.conn
}

// Child 子文件
func (f *File) Child(name string) *File {
	c := *f.uri
	c.Path = path.Join(f.uri.Path, name)
	c.RawPath = ""
	return &File{uri: &c, conn: f.conn}
}

// Parent 父目录
func (f *File) Parent() *File {
	c := *f.uri
	c.Path = path.Dir(strings.TrimSuffix(f.uri.Path, "/"))
	c.RawPath = ""
	return &File{uri: &c, conn: f.conn}
}

// WithPath 同一连接下的另一个路径
func (f *File) WithPath(p string) *File {
	c := *f.uri
	c.Path = p
	c.RawPath = ""
	return &File{uri: &c, conn: f.conn}
}

func (f *File) Stat(ctx context.Context) (fs.FileInfo, error) {
	return f.conn.Stat(ctx, f.uri.Path)
}

// Exists 文件是否存在
func (f *File) Exists(ctx context.Context) (bool, error) {
	_, err := f.Stat(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// IsDir 是否是目录，不存在返回false
func (f *File) IsDir(ctx context.Context) (bool, error) {
	info, err := f.Stat(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Walk 遍历目录，fn 对每个子项（包括目录）调用一次；recursive=false 只遍历直接子项
// 每个子项之前检查 ctx
func (f *File) Walk(ctx context.Context, recursive bool, fn func(file *File, info fs.FileInfo) error) error {
	infos, err := f.conn.List(ctx, f.uri.Path)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := f.Child(info.Name())
		if err := fn(child, info); err != nil {
			return err
		}
		if recursive && info.IsDir() {
			if err := child.Walk(ctx, recursive, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// List 列出目录中的文件（不包括目录）
func (f *File) List(ctx context.Context, recursive bool) ([]*File, error) {
	var files []*File
	err := f.Walk(ctx, recursive, func(file *File, info fs.FileInfo) error {
		if !info.IsDir() {
			files = append(files, file)
		}
		return nil
	})
	return files, err
}

// Open 打开文件读取
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	return f.conn.Open(ctx, f.uri.Path)
}

// Write 写入文件，自动创建父目录
func (f *File) Write(ctx context.Context, r io.Reader) (int64, error) {
	parent := path.Dir(f.uri.Path)
	if parent != "/" && parent != "." {
		if err := f.conn.Mkdirs(ctx, parent); err != nil {
			return 0, fmt.Errorf("create directory %s: %w", parent, err)
		}
	}
	return f.conn.Write(ctx, f.uri.Path, r)
}

// Mkdirs 创建目录
func (f *File) Mkdirs(ctx context.Context) error {
	return f.conn.Mkdirs(ctx, f.uri.Path)
}

// Delete 删除文件，目录则递归删除
func (f *File) Delete(ctx context.Context) error {
	info, err := f.Stat(ctx)
	if err != nil {
		return err
	}
	if info.IsDir() {
		infos, err := f.conn.List(ctx, f.uri.Path)
		if err != nil {
			return err
		}
		for _, child := range infos {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.Child(child.Name()).Delete(ctx); err != nil {
				return err
			}
		}
	}
	return f.conn.Delete(ctx, f.uri.Path)
}

// Rename 移动到同一连接下的 target
func (f *File) Rename(ctx context.Context, target *File) error {
	if target.conn != f.conn {
		return errors.New("rename across connections is not supported")
	}
	parent := path.Dir(target.uri.Path)
	if parent != "/" && parent != "." {
		if err := f.conn.Mkdirs(ctx, parent); err != nil {
			return err
		}
	}
	return f.conn.Rename(ctx, f.uri.Path, target.uri.Path)
}
