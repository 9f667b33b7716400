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

package smb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/remote/local"
)

var _ remote.Connection = (*MountConnection)(nil)

// MountConnection 本地挂载共享上的连接，URI 路径第一段为共享名
type MountConnection struct {
	mountPath string
	share     string
	fs        *local.Connection
}

// NewMountConnection share 为空时接受任意共享名
func NewMountConnection(mountPath, share string) *MountConnection {
	return &MountConnection{mountPath: path.Clean("/" + strings.TrimPrefix(mountPath, "/")), share: share, fs: &local.Connection{}}
}

// localPath URI路径转换成挂载点下的路径
func (c *MountConnection) localPath(op, p string) (string, error) {
	segments := strings.SplitN(strings.TrimPrefix(path.Clean("/"+p), "/"), "/", 2)
	if segments[0] == "" {
		return "", &fs.PathError{Op: op, Path: p, Err: errors.New("share name is missing")}
	}
	if c.share != "" && !strings.EqualFold(segments[0], c.share) {
		return "", &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: share %s is not mounted", fs.ErrNotExist, segments[0])}
	}
	if len(segments) == 1 {
		return c.mountPath, nil
	}
	return path.Join(c.mountPath, segments[1]), nil
}

func (c *MountConnection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	lp, err := c.localPath("stat", p)
	if err != nil {
		return nil, err
	}
	return c.fs.Stat(ctx, lp)
}

func (c *MountConnection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	lp, err := c.localPath("list", p)
	if err != nil {
		return nil, err
	}
	return c.fs.List(ctx, lp)
}

func (c *MountConnection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	lp, err := c.localPath("open", p)
	if err != nil {
		return nil, err
	}
	return c.fs.Open(ctx, lp)
}

func (c *MountConnection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	lp, err := c.localPath("create", p)
	if err != nil {
		return 0, err
	}
	return c.fs.Write(ctx, lp, r)
}

func (c *MountConnection) Delete(ctx context.Context, p string) error {
	lp, err := c.localPath("remove", p)
	if err != nil {
		return err
	}
	if lp == c.mountPath {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrPermission}
	}
	return c.fs.Delete(ctx, lp)
}

func (c *MountConnection) Mkdirs(ctx context.Context, p string) error {
	lp, err := c.localPath("mkdir", p)
	if err != nil {
		return err
	}
	return c.fs.Mkdirs(ctx, lp)
}

func (c *MountConnection) Rename(ctx context.Context, from, to string) error {
	lf, err := c.localPath("rename", from)
	if err != nil {
		return err
	}
	lt, err := c.localPath("rename", to)
	if err != nil {
		return err
	}
	return c.fs.Rename(ctx, lf, lt)
}

func (c *MountConnection) Close() error {
	return nil
}
