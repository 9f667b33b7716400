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

// Package smb SMB2/3 共享，协议 smb://host/share/path
// 默认使用 NTLM 凭证直接连接服务器；设置 mountPath 时读写本地已挂载的共享。
package smb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"
	"github.com/rulego/rulego-components-file/remote"
)

const (
	// OptionMountPath 共享 //host/share 在本地的挂载点，设置后不建立网络连接
	OptionMountPath = "mountPath"
	// OptionShare 限定共享名，为空不校验
	OptionShare = "share"
	// OptionDomain NTLM 域
	OptionDomain = "domain"
)

// NTSTATUS
const (
	statusNoSuchFile          = 0xC000000F
	statusAccessDenied        = 0xC0000022
	statusObjectNameNotFound  = 0xC0000034
	statusObjectNameCollision = 0xC0000035
	statusObjectPathNotFound  = 0xC000003A
	statusBadNetworkName      = 0xC00000CC
)

var ErrShareRequired = errors.New("share name is missing")

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler SMB 协议处理器
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeSMB}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	if mountPath := credentials.Option(OptionMountPath); mountPath != "" {
		return NewMountConnection(mountPath, credentials.Option(OptionShare)), nil
	}
	return Dial(ctx, credentials)
}

// Connection 一个 SMB 会话，URI 路径第一段为共享名，共享在第一次访问时挂载
type Connection struct {
	conn    net.Conn
	session *smb2.Session
	share   string
	shares  map[string]*smb2.Share
}

// Dial 连接 credentials.Address() 并使用 User/Password 进行 NTLM 认证
func Dial(ctx context.Context, credentials *remote.Credentials) (*Connection, error) {
	dialer := net.Dialer{Timeout: credentials.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", credentials.Address())
	if err != nil {
		return nil, err
	}
	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     credentials.User,
			Password: credentials.Password,
			Domain:   credentials.Option(OptionDomain),
		},
	}
	session, err := d.DialContext(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smb session %s: %w", credentials.Address(), err)
	}
	return &Connection{
		conn:    conn,
		session: session,
		share:   credentials.Option(OptionShare),
		shares:  make(map[string]*smb2.Share),
	}, nil
}

// splitSharePath /share/a/b 拆分为共享名和共享内路径 a\b，共享根目录路径为空
func splitSharePath(op, p string) (string, string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	share, rest, _ := strings.Cut(clean, "/")
	if share == "" {
		return "", "", &fs.PathError{Op: op, Path: p, Err: ErrShareRequired}
	}
	return share, strings.ReplaceAll(rest, "/", `\`), nil
}

// open 挂载路径所在的共享，返回绑定 ctx 的共享和共享内路径
func (c *Connection) open(ctx context.Context, op, p string) (*smb2.Share, string, error) {
	name, rest, err := splitSharePath(op, p)
	if err != nil {
		return nil, "", err
	}
	if c.share != "" && !strings.EqualFold(name, c.share) {
		return nil, "", &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: share %s is not allowed", fs.ErrNotExist, name)}
	}
	key := strings.ToLower(name)
	share, ok := c.shares[key]
	if !ok {
		if share, err = c.session.WithContext(ctx).Mount(name); err != nil {
			return nil, "", mapError("mount", p, err)
		}
		c.shares[key] = share
	}
	return share.WithContext(ctx), rest, nil
}

func (c *Connection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	share, name, err := c.open(ctx, "stat", p)
	if err != nil {
		return nil, err
	}
	info, err := share.Stat(name)
	return info, mapError("stat", p, err)
}

func (c *Connection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	share, name, err := c.open(ctx, "list", p)
	if err != nil {
		return nil, err
	}
	infos, err := share.ReadDir(name)
	return infos, mapError("list", p, err)
}

func (c *Connection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	share, name, err := c.open(ctx, "open", p)
	if err != nil {
		return nil, err
	}
	f, err := share.Open(name)
	if err != nil {
		return nil, mapError("open", p, err)
	}
	return f, nil
}

func (c *Connection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	share, name, err := c.open(ctx, "create", p)
	if err != nil {
		return 0, err
	}
	f, err := share.Create(name)
	if err != nil {
		return 0, mapError("create", p, err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, mapError("write", p, err)
}

// Delete 删除文件或空目录，不能删除共享根目录
func (c *Connection) Delete(ctx context.Context, p string) error {
	share, name, err := c.open(ctx, "remove", p)
	if err != nil {
		return err
	}
	if name == "" {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrPermission}
	}
	return mapError("remove", p, share.Remove(name))
}

func (c *Connection) Mkdirs(ctx context.Context, p string) error {
	share, name, err := c.open(ctx, "mkdir", p)
	if err != nil || name == "" {
		return err
	}
	return mapError("mkdir", p, share.MkdirAll(name, 0o755))
}

// Rename 同一共享内改名；SMB 改名不覆盖已存在的目标，先把目标改名备份，失败时恢复
func (c *Connection) Rename(ctx context.Context, from, to string) error {
	fromShare, _, err := splitSharePath("rename", from)
	if err != nil {
		return err
	}
	toShare, _, err := splitSharePath("rename", to)
	if err != nil {
		return err
	}
	if !strings.EqualFold(fromShare, toShare) {
		return &fs.PathError{Op: "rename", Path: from, Err: errors.New("rename across shares is not supported")}
	}
	share, oldName, err := c.open(ctx, "rename", from)
	if err != nil {
		return err
	}
	_, newName, _ := splitSharePath("rename", to)
	if _, statErr := share.Stat(newName); statErr != nil {
		return mapError("rename", from, share.Rename(oldName, newName))
	}
	backup := fmt.Sprintf("%s.%d.bak", newName, time.Now().UnixNano())
	if err := share.Rename(newName, backup); err != nil {
		return mapError("rename", to, err)
	}
	if err := share.Rename(oldName, newName); err != nil {
		if restoreErr := share.Rename(backup, newName); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore %s: %w", to, restoreErr))
		}
		return mapError("rename", from, err)
	}
	return mapError("remove", to, share.Remove(backup))
}

// Close 卸载共享并注销会话
func (c *Connection) Close() error {
	var errs []error
	for _, share := range c.shares {
		errs = append(errs, share.Umount())
	}
	c.shares = make(map[string]*smb2.Share)
	errs = append(errs, c.session.Logoff())
	_ = c.conn.Close()
	return errors.Join(errs...)
}

// mapError 把 NTSTATUS 转换成 fs.ErrNotExist、fs.ErrPermission、fs.ErrExist
func mapError(op, p string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
		return err
	}
	var responseErr *smb2.ResponseError
	if !errors.As(err, &responseErr) {
		return err
	}
	var target error
	switch responseErr.Code {
	case statusNoSuchFile, statusObjectNameNotFound, statusObjectPathNotFound, statusBadNetworkName:
		target = fs.ErrNotExist
	case statusAccessDenied:
		target = fs.ErrPermission
	case statusObjectNameCollision:
		target = fs.ErrExist
	default:
		return err
	}
	return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %v", target, err)}
}
