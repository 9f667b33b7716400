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

// Package remote provides credentials, a per-execution connection cache and a
// protocol independent file abstraction over local, SSH, FTP, SMB, S3 and Box storage.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rulego/rulego-components-file/metrics"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrNotDirectory      = errors.New("not a directory")
)

// Connection 协议客户端，路径使用 URI 中的路径（以 / 分隔）
// 路径不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)
type Connection interface {
	//Stat 获取文件信息
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	//List 列出目录下的直接子项
	List(ctx context.Context, path string) ([]fs.FileInfo, error)
	//Open 打开文件读取
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	//Write 写入文件，已存在则覆盖，返回写入字节数
	Write(ctx context.Context, path string, r io.Reader) (int64, error)
	//Delete 删除文件或者空目录
	Delete(ctx context.Context, path string) error
	//Mkdirs 创建目录以及所有父目录
	Mkdirs(ctx context.Context, path string) error
	//Rename 同一连接内移动或者重命名
	Rename(ctx context.Context, from, to string) error
	//Close 关闭连接
	Close() error
}

// Handler 协议处理器
type Handler interface {
	//Schemes 支持的协议
	Schemes() []string
	//Connect 使用凭证建立连接
	Connect(ctx context.Context, credentials *Credentials) (Connection, error)
}

var handlers = struct {
	sync.RWMutex
	m map[string]Handler
}{m: make(map[string]Handler)}

// Register 注册协议处理器，同名协议覆盖
func Register(handler Handler) {
	handlers.Lock()
	defer handlers.Unlock()
	for _, scheme := range handler.Schemes() {
		handlers.m[strings.ToLower(scheme)] = handler
	}
}

// GetHandler 通过协议获取处理器
func GetHandler(scheme string) (Handler, bool) {
	handlers.RLock()
	defer handlers.RUnlock()
	h, ok := handlers.m[strings.ToLower(scheme)]
	return h, ok
}

// Schemes 已注册的协议列表
func Schemes() []string {
	handlers.RLock()
	defer handlers.RUnlock()
	var schemes []string
	for k := range handlers.m {
		schemes = append(schemes, k)
	}
	sort.Strings(schemes)
	return schemes
}

// Dial 获取URI对应的连接，优先使用 monitor 中缓存的连接，新建的连接注册到 monitor
// credentials 为 nil 时使用URI中的用户信息，否则要求凭证和URI匹配
func Dial(ctx context.Context, monitor *ConnectionMonitor, u *url.URL, credentials *Credentials) (Connection, error) {
	scheme := strings.ToLower(u.Scheme)
	switch {
	case scheme == SchemeFile:
		credentials = &Credentials{Protocol: SchemeFile}
	case credentials == nil:
		credentials = CredentialsFromURI(u)
	default:
		// 先校验再查缓存，缓存的连接可能是其他凭证建立的
		if err := credentials.FitsToURI(u); err != nil {
			return nil, fmt.Errorf("credentials %s can not be used for %s: %w", credentials.Identifier(), Redact(u), err)
		}
		// 连接使用URI实际协议，例如 ssh 凭证访问 scp://
		c := *credentials
		c.Protocol = scheme
		credentials = &c
	}
	if conn := monitor.GetConnection(u); conn != nil {
		return conn, nil
	}
	handler, ok := GetHandler(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	conn, err := handler.Connect(ctx, credentials)
	metrics.RecordConnection(scheme, err == nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", Redact(u), err)
	}
	monitor.RegisterConnection(u, conn)
	return conn, nil
}

// ParseURI 解析URI，没有协议的路径视为本地文件
func ParseURI(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("uri is empty")
	}
	if !strings.Contains(raw, "://") {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return nil, err
		}
		return &url.URL{Scheme: SchemeFile, Path: filepath.ToSlash(abs)}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// Redact 去掉密码后的URI字符串
func Redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}

// Protocol 连接使用的协议标签，用于指标
func Protocol(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Resolve 解析URI并返回可操作的文件，凭证只用于与之匹配的URI
func Resolve(ctx context.Context, monitor *ConnectionMonitor, raw string, credentials *Credentials) (*File, error) {
	u, err := ParseURI(raw)
	if err != nil {
		return nil, err
	}
	if credentials != nil && !credentials.Fits(u) {
		credentials = nil
	}
	conn, err := Dial(ctx, monitor, u, credentials)
	if err != nil {
		return nil, err
	}
	return NewFile(u, conn), nil
}
