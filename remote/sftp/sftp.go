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

// Package sftp SFTP 协议连接，协议 ssh:// 和 sftp://
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/pkg/sftp"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/remote/sshconn"
)

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler SFTP 协议处理器
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeSSH, remote.SchemeSFTP}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	sshClient, err := sshconn.Dial(ctx, credentials)
	if err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, err
	}
	return NewConnection(client, sshClient), nil
}

// Connection SFTP 连接
type Connection struct {
	client *sftp.Client
	//底层ssh连接，可以为空
	closer io.Closer
}

// NewConnection 使用已有的 sftp 客户端创建连接，closer 在 Close 时关闭
func NewConnection(client *sftp.Client, closer io.Closer) *Connection {
	return &Connection{client: client, closer: closer}
}

func (c *Connection) Stat(_ context.Context, path string) (fs.FileInfo, error) {
	info, err := c.client.Stat(path)
	return info, wrap("stat", path, err)
}

func (c *Connection) List(ctx context.Context, path string) ([]fs.FileInfo, error) {
	infos, err := c.client.ReadDirContext(ctx, path)
	return infos, wrap("readdir", path, err)
}

func (c *Connection) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := c.client.Open(path)
	if err != nil {
		return nil, wrap("open", path, err)
	}
	return f, nil
}

func (c *Connection) Write(_ context.Context, path string, r io.Reader) (int64, error) {
	f, err := c.client.Create(path)
	if err != nil {
		return 0, wrap("create", path, err)
	}
	n, err := f.ReadFrom(r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, wrap("write", path, err)
}

func (c *Connection) Delete(_ context.Context, path string) error {
	return wrap("remove", path, c.client.Remove(path))
}

func (c *Connection) Mkdirs(_ context.Context, path string) error {
	return wrap("mkdir", path, c.client.MkdirAll(path))
}

const posixRenameExtension = "posix-rename@openssh.com"

// Rename 优先使用 posix-rename 覆盖目标；服务器不支持该扩展时，
// 先把已存在的目标改名备份，改名失败时恢复
func (c *Connection) Rename(_ context.Context, from, to string) error {
	if _, ok := c.client.HasExtension(posixRenameExtension); ok {
		err := c.client.PosixRename(from, to)
		if !isUnsupported(err) {
			return wrap("rename", from, err)
		}
	}
	if _, err := c.client.Stat(to); err != nil {
		return wrap("rename", from, c.client.Rename(from, to))
	}
	backup := fmt.Sprintf("%s.%d.bak", to, time.Now().UnixNano())
	if err := c.client.Rename(to, backup); err != nil {
		return wrap("rename", to, err)
	}
	if err := c.client.Rename(from, to); err != nil {
		if restoreErr := c.client.Rename(backup, to); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore %s: %w", to, restoreErr))
		}
		return wrap("rename", from, err)
	}
	return wrap("remove", backup, c.client.Remove(backup))
}

func isUnsupported(err error) bool {
	var statusErr *sftp.StatusError
	return errors.As(err, &statusErr) && statusErr.FxCode() == sftp.ErrSSHFxOpUnsupported
}

func (c *Connection) Close() error {
	err := c.client.Close()
	if c.closer != nil {
		if closeErr := c.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// wrap 统一不存在和无权限错误，保证 errors.Is(err, fs.ErrNotExist) 成立
func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var status *sftp.StatusError
	if errors.As(err, &status) {
		switch status.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
		case sftp.ErrSSHFxPermissionDenied:
			return &fs.PathError{Op: op, Path: path, Err: fs.ErrPermission}
		}
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return err
		}
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return err
}
