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

// Package ftp FTP/FTPS 连接，协议 ftp://
package ftp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rulego/rulego-components-file/remote"
)

const (
	// OptionTLS 加密方式 explicit 或 implicit，为空不加密
	OptionTLS = "tls"
	// OptionInsecureSkipVerify 不校验服务器证书
	OptionInsecureSkipVerify = "insecureSkipVerify"
	// OptionDisableEPSV 禁用 EPSV，部分服务器只支持 PASV
	OptionDisableEPSV = "disableEPSV"
)

// DefaultTimeout 默认连接超时
const DefaultTimeout = 30 * time.Second

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler FTP 协议处理器
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeFTP}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	options, err := DialOptions(ctx, credentials)
	if err != nil {
		return nil, err
	}
	client, err := ftp.Dial(credentials.Address(), options...)
	if err != nil {
		return nil, err
	}
	user, password := credentials.User, credentials.Password
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	if err = client.Login(user, password); err != nil {
		_ = client.Quit()
		return nil, err
	}
	return NewConnection(client), nil
}

// DialOptions 根据凭证创建连接选项
func DialOptions(ctx context.Context, credentials *remote.Credentials) ([]ftp.DialOption, error) {
	timeout := credentials.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	options := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
	}
	if strings.EqualFold(credentials.Option(OptionDisableEPSV), "true") {
		options = append(options, ftp.DialWithDisabledEPSV(true))
	}
	tlsConfig := &tls.Config{
		ServerName:         credentials.Host,
		InsecureSkipVerify: strings.EqualFold(credentials.Option(OptionInsecureSkipVerify), "true"),
	}
	switch mode := strings.ToLower(credentials.Option(OptionTLS)); mode {
	case "":
	case "explicit":
		options = append(options, ftp.DialWithExplicitTLS(tlsConfig))
	case "implicit":
		options = append(options, ftp.DialWithTLS(tlsConfig))
	default:
		return nil, fmt.Errorf("unknown ftp tls mode: %s", mode)
	}
	return options, nil
}

// Connection FTP 连接，控制连接同一时间只能执行一个命令
type Connection struct {
	client *ftp.ServerConn
	mu     sync.Mutex
}

// NewConnection 使用已登录的客户端创建连接
func NewConnection(client *ftp.ServerConn) *Connection {
	return &Connection{client: client}
}

func (c *Connection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stat(p)
}

func (c *Connection) stat(p string) (fs.FileInfo, error) {
	p = path.Clean("/" + p)
	if p == "/" {
		return &remote.FileInfo{FileName: "/", Dir: true}, nil
	}
	if entry, err := c.client.GetEntry(p); err == nil {
		info := toFileInfo(entry)
		info.FileName = path.Base(p)
		return info, nil
	}
	//服务器不支持 MLST 时在父目录中查找
	entries, err := c.client.List(path.Dir(p))
	if err != nil {
		return nil, wrap("stat", p, err)
	}
	name := path.Base(p)
	for _, entry := range entries {
		if entry.Name == name {
			return toFileInfo(entry), nil
		}
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (c *Connection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, err := c.stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "list", Path: p, Err: remote.ErrNotDirectory}
	}
	entries, err := c.client.List(p)
	if err != nil {
		return nil, wrap("list", p, err)
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		infos = append(infos, toFileInfo(entry))
	}
	return infos, nil
}

// Open 下载到临时文件，释放控制连接后再返回内容
func (c *Connection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, err := c.client.Retr(p)
	if err != nil {
		return nil, wrap("open", p, err)
	}
	tmp, err := os.CreateTemp("", "ftp-download-*")
	if err != nil {
		_ = resp.Close()
		return nil, err
	}
	_, err = io.Copy(tmp, resp)
	if closeErr := resp.Close(); err == nil {
		err = wrap("open", p, closeErr)
	}
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &tempFile{File: tmp}, nil
}

func (c *Connection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	counter := &countingReader{r: r}
	if err := c.client.Stor(p, counter); err != nil {
		return counter.n, wrap("create", p, err)
	}
	return counter.n, nil
}

func (c *Connection) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, err := c.stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return wrap("remove", p, c.client.RemoveDir(p))
	}
	return wrap("remove", p, c.client.Delete(p))
}

func (c *Connection) Mkdirs(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current := ""
	for _, segment := range strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/") {
		if segment == "" {
			continue
		}
		current += "/" + segment
		if info, err := c.stat(current); err == nil {
			if !info.IsDir() {
				return &fs.PathError{Op: "mkdir", Path: current, Err: remote.ErrNotDirectory}
			}
			continue
		}
		if err := c.client.MakeDir(current); err != nil {
			return wrap("mkdir", current, err)
		}
	}
	return nil
}

func (c *Connection) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return wrap("rename", from, c.client.Rename(from, to))
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Quit()
}

func toFileInfo(entry *ftp.Entry) *remote.FileInfo {
	return &remote.FileInfo{
		FileName:    entry.Name,
		FileSize:    int64(entry.Size),
		FileModTime: entry.Time,
		Dir:         entry.Type == ftp.EntryTypeFolder,
	}
}

// wrap 550 映射为不存在，530/532 映射为无权限
func wrap(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case ftp.StatusFileUnavailable:
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrNotExist, protoErr.Msg)}
		case ftp.StatusNotLoggedIn, ftp.StatusStorNeedAccount:
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrPermission, protoErr.Msg)}
		}
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// tempFile 关闭时删除
type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	_ = os.Remove(t.File.Name())
	return err
}
