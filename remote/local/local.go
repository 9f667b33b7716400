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

// Package local 本地文件系统连接，协议 file://
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rulego/rulego-components-file/remote"
)

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler 本地文件协议处理器
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeFile}
}

func (h *Handler) Connect(_ context.Context, _ *remote.Credentials) (remote.Connection, error) {
	return &Connection{}, nil
}

// Connection 本地文件系统
type Connection struct{}

// OSPath URI路径转换成本地路径
func OSPath(p string) string {
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func (c *Connection) Stat(_ context.Context, path string) (fs.FileInfo, error) {
	return os.Stat(OSPath(path))
}

func (c *Connection) List(_ context.Context, path string) ([]fs.FileInfo, error) {
	entries, err := os.ReadDir(OSPath(path))
	if err != nil {
		return nil, err
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			//遍历过程中被删除
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (c *Connection) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(OSPath(path))
}

func (c *Connection) Write(_ context.Context, path string, r io.Reader) (int64, error) {
	f, err := os.Create(OSPath(path))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func (c *Connection) Delete(_ context.Context, path string) error {
	return os.Remove(OSPath(path))
}

func (c *Connection) Mkdirs(_ context.Context, path string) error {
	return os.MkdirAll(OSPath(path), 0o755)
}

func (c *Connection) Rename(_ context.Context, from, to string) error {
	return Move(OSPath(from), OSPath(to))
}

func (c *Connection) Close() error {
	return nil
}

// IsLocal 是否是本地文件URI
func IsLocal(scheme string) bool {
	return scheme == "" || strings.EqualFold(scheme, remote.SchemeFile)
}

// windows ERROR_NOT_SAME_DEVICE
const errNotSameDevice = syscall.Errno(17)

var rename = os.Rename

// Move 改名，源和目标不在同一文件系统时复制后删除源，目录递归复制
func Move(from, to string) error {
	err := rename(from, to)
	if err == nil || !crossDevice(err) {
		return err
	}
	info, err := os.Lstat(from)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if _, statErr := os.Lstat(to); statErr == nil {
			return &os.LinkError{Op: "rename", Old: from, New: to, Err: fs.ErrExist}
		}
		if err = copyDir(from, to); err != nil {
			_ = os.RemoveAll(to)
			return err
		}
	} else if err = copyEntry(from, to, info); err != nil {
		_ = os.Remove(to)
		return err
	}
	return os.RemoveAll(from)
}

func crossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	if errors.Is(linkErr.Err, syscall.EXDEV) {
		return true
	}
	var errno syscall.Errno
	return runtime.GOOS == "windows" && errors.As(linkErr.Err, &errno) && errno == errNotSameDevice
}

func copyDir(from, to string) error {
	return filepath.WalkDir(from, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyEntry(p, target, info)
	})
}

// copyEntry 复制文件或者符号链接，保留权限和修改时间
func copyEntry(from, to string, info fs.FileInfo) error {
	if info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(from)
		if err != nil {
			return err
		}
		return os.Symlink(link, to)
	}
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Chtimes(to, info.ModTime(), info.ModTime())
}
