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

// Package filehandling 文件复制、移动及其回滚
package filehandling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/remote/local"
)

// Action 复制或移动
type Action string

const (
	ActionCopy = Action("copy")
	ActionMove = Action("move")
)

var ErrUnknownAction = errors.New("unknown action")

// ParseAction 解析动作，不区分大小写，空值为复制
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ActionCopy):
		return ActionCopy, nil
	case string(ActionMove):
		return ActionMove, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
}

// FileSystem 回滚使用的文件操作
type FileSystem interface {
	Delete(ctx context.Context, path string) error
	Move(ctx context.Context, source, target string) error
}

type filePair struct {
	source string
	target string
}

// CopyOrMoveMonitor 记录本次复制或移动过的文件，用于失败时回滚
// 不支持并发访问
type CopyOrMoveMonitor struct {
	action Action
	fs     FileSystem
	files  []filePair
	//已登记的源和目标路径
	touched map[string]struct{}
}

// NewCopyOrMoveMonitor 创建记录器，fs 为 nil 时使用本地文件系统
func NewCopyOrMoveMonitor(action Action, fs FileSystem) *CopyOrMoveMonitor {
	if fs == nil {
		fs = LocalFileSystem{}
	}
	return &CopyOrMoveMonitor{action: action, fs: fs, touched: make(map[string]struct{})}
}

// Action 记录的动作
func (m *CopyOrMoveMonitor) Action() Action {
	return m.action
}

// RegisterFiles 登记一对已处理的文件
func (m *CopyOrMoveMonitor) RegisterFiles(source, target string) {
	m.files = append(m.files, filePair{source: source, target: target})
	m.touched[source] = struct{}{}
	m.touched[target] = struct{}{}
}

// IsNewFile 路径没有作为源或目标登记过
func (m *CopyOrMoveMonitor) IsNewFile(path string) bool {
	_, ok := m.touched[path]
	return !ok
}

// Len 已登记数量
func (m *CopyOrMoveMonitor) Len() int {
	return len(m.files)
}

// Rollback 按登记的相反顺序撤销：复制删除目标，移动把目标移回源路径
// 单个文件失败不重试也不中断，返回所有错误
func (m *CopyOrMoveMonitor) Rollback(ctx context.Context) error {
	var errs []error
	for i := len(m.files) - 1; i >= 0; i-- {
		pair := m.files[i]
		var err error
		if m.action == ActionMove {
			err = m.fs.Move(ctx, pair.target, pair.source)
		} else {
			err = m.fs.Delete(ctx, pair.target)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", pair.target, err))
		}
	}
	metrics.RecordRollback(len(errs) == 0)
	m.files = nil
	m.touched = make(map[string]struct{})
	return errors.Join(errs...)
}

// LocalFileSystem 本地文件系统
type LocalFileSystem struct{}

func (LocalFileSystem) Delete(_ context.Context, path string) error {
	return os.Remove(path)
}

// Move 跨设备时复制后删除
func (LocalFileSystem) Move(_ context.Context, source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return local.Move(source, target)
}

// RemoteFileSystem 单个连接上的文件系统，路径为连接内路径
type RemoteFileSystem struct {
	Conn remote.Connection
}

func (r RemoteFileSystem) Delete(ctx context.Context, path string) error {
	return r.Conn.Delete(ctx, path)
}

func (r RemoteFileSystem) Move(ctx context.Context, source, target string) error {
	return r.Conn.Rename(ctx, source, target)
}

// URIFileSystem 路径为URI，连接从 Connections 获取或新建
type URIFileSystem struct {
	Connections *remote.ConnectionMonitor
	Credentials *remote.Credentials
	Retry       remote.RetryConfig
}

func (u URIFileSystem) Delete(ctx context.Context, path string) error {
	f, err := remote.Resolve(ctx, u.Connections, path, u.Credentials)
	if err != nil {
		return err
	}
	return remote.DeleteWithRetry(ctx, f, u.Retry)
}

func (u URIFileSystem) Move(ctx context.Context, source, target string) error {
	src, err := remote.Resolve(ctx, u.Connections, source, u.Credentials)
	if err != nil {
		return err
	}
	dst, err := remote.Resolve(ctx, u.Connections, target, u.Credentials)
	if err != nil {
		return err
	}
	return moveFile(ctx, src, dst, u.Retry)
}

// moveFile 同一连接直接改名，否则复制后删除源文件
func moveFile(ctx context.Context, src, dst *remote.File, retry remote.RetryConfig) error {
	if src.Connection() == dst.Connection() {
		return remote.Retry(ctx, retry, func() error {
			return src.Rename(ctx, dst)
		})
	}
	if _, err := remote.Copy(ctx, src, dst, retry); err != nil {
		return err
	}
	return remote.DeleteWithRetry(ctx, src, retry)
}
