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

// Package scp SCP 协议连接，协议 scp://
// 文件内容通过 scp 的 source/sink 协议传输，其它操作通过远程 shell 命令完成（需要 GNU coreutils/findutils）。
package scp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/remote/sshconn"
	"github.com/rulego/rulego-components-file/utils/str"
	"golang.org/x/crypto/ssh"
)

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Session 远程命令会话，*ssh.Session 实现了该接口
type Session interface {
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Close() error
}

// Client 可以创建会话的客户端
type Client interface {
	NewSession() (Session, error)
	Close() error
}

type sshClient struct {
	*ssh.Client
}

func (c sshClient) NewSession() (Session, error) {
	s, err := c.Client.NewSession()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Handler SCP 协议处理器
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeSCP}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	client, err := sshconn.Dial(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return NewConnection(sshClient{client}), nil
}

// Connection SCP 连接
type Connection struct {
	client Client
}

// NewConnection 使用会话客户端创建连接
func NewConnection(client Client) *Connection {
	return &Connection{client: client}
}

func (c *Connection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	out, err := c.run(ctx, "stat -c '%F|%s|%Y' -- "+str.ShellQuote(p))
	if err != nil {
		return nil, toPathError("stat", p, err)
	}
	parts := strings.Split(strings.TrimSpace(string(out)), "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("unexpected stat output: %q", out)
	}
	size, _ := strconv.ParseInt(parts[1], 10, 64)
	mtime, _ := strconv.ParseInt(parts[2], 10, 64)
	return &remote.FileInfo{
		FileName:    path.Base(p),
		FileSize:    size,
		FileModTime: time.Unix(mtime, 0),
		Dir:         strings.HasPrefix(parts[0], "directory"),
	}, nil
}

func (c *Connection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	out, err := c.run(ctx, "find "+str.ShellQuote(p)+` -mindepth 1 -maxdepth 1 -printf '%y|%s|%T@|%f\n'`)
	if err != nil {
		return nil, toPathError("list", p, err)
	}
	var infos []fs.FileInfo
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("unexpected find output: %q", line)
		}
		size, _ := strconv.ParseInt(parts[1], 10, 64)
		seconds, _ := strconv.ParseFloat(parts[2], 64)
		infos = append(infos, &remote.FileInfo{
			FileName:    parts[3],
			FileSize:    size,
			FileModTime: time.Unix(int64(seconds), 0),
			Dir:         parts[0] == "d",
		})
	}
	return infos, nil
}

func (c *Connection) Delete(ctx context.Context, p string) error {
	q := str.ShellQuote(p)
	_, err := c.run(ctx, "if [ -d "+q+" ]; then rmdir -- "+q+"; else rm -- "+q+"; fi")
	return toPathError("remove", p, err)
}

func (c *Connection) Mkdirs(ctx context.Context, p string) error {
	_, err := c.run(ctx, "mkdir -p -- "+str.ShellQuote(p))
	return toPathError("mkdir", p, err)
}

func (c *Connection) Rename(ctx context.Context, from, to string) error {
	_, err := c.run(ctx, "mv -f -- "+str.ShellQuote(from)+" "+str.ShellQuote(to))
	return toPathError("rename", from, err)
}

func (c *Connection) Close() error {
	return c.client.Close()
}

// Open 通过 scp -f 下载文件
func (c *Connection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	s, err := c.start("scp -f -- " + str.ShellQuote(p))
	if err != nil {
		return nil, err
	}
	if err = s.ack(); err != nil {
		s.abort()
		return nil, err
	}
	header, err := s.readReply()
	if err != nil {
		s.abort()
		return nil, toPathError("open", p, err)
	}
	size, err := parseHeader(header)
	if err != nil {
		s.abort()
		return nil, err
	}
	if err = s.ack(); err != nil {
		s.abort()
		return nil, err
	}
	return &scpReader{session: s, r: io.LimitReader(s.stdout, size)}, nil
}

// Write 通过 scp -t 上传文件，内容长度未知时先缓存到临时文件
func (c *Connection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	body, size, cleanup, err := sized(r)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	s, err := c.start("scp -t -- " + str.ShellQuote(p))
	if err != nil {
		return 0, err
	}
	defer s.abort()
	if _, err = s.readReply(); err != nil {
		return 0, toPathError("create", p, err)
	}
	if _, err = fmt.Fprintf(s.stdin, "C0644 %d %s\n", size, path.Base(p)); err != nil {
		return 0, err
	}
	if _, err = s.readReply(); err != nil {
		return 0, toPathError("create", p, err)
	}
	n, err := io.Copy(s.stdin, body)
	if err != nil {
		return n, err
	}
	if _, err = s.stdin.Write([]byte{0}); err != nil {
		return n, err
	}
	if _, err = s.readReply(); err != nil {
		return n, toPathError("write", p, err)
	}
	return n, s.finish()
}

// run 执行命令，返回标准输出；失败时错误中包含标准错误输出
func (c *Connection) run(ctx context.Context, cmd string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := c.start(cmd)
	if err != nil {
		return nil, err
	}
	_ = s.stdin.Close()
	out, readErr := io.ReadAll(s.stdout)
	err = s.finish()
	if err == nil {
		err = readErr
	}
	return out, err
}

type session struct {
	Session
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *bytes.Buffer
	wg     sync.WaitGroup
	done   bool
}

func (c *Connection) start(cmd string) (*session, error) {
	raw, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	s := &session{Session: raw, stderr: &bytes.Buffer{}}
	if s.stdin, err = raw.StdinPipe(); err != nil {
		_ = raw.Close()
		return nil, err
	}
	stdout, err := raw.StdoutPipe()
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	s.stdout = bufio.NewReader(stdout)
	stderr, err := raw.StderrPipe()
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = io.Copy(s.stderr, stderr)
	}()
	if err = raw.Start(cmd); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) ack() error {
	_, err := s.stdin.Write([]byte{0})
	return err
}

// readReply 读取一个应答：0 表示成功，1/2 后跟错误信息；其它字符开头为协议头
func (s *session) readReply() (string, error) {
	b, err := s.stdout.ReadByte()
	if err != nil {
		return "", s.errorf(err)
	}
	switch b {
	case 0:
		return "", nil
	case 1, 2:
		line, _ := s.stdout.ReadString('\n')
		return "", &commandError{msg: strings.TrimSpace(line)}
	default:
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			return "", s.errorf(err)
		}
		return string(b) + strings.TrimSuffix(line, "\n"), nil
	}
}

func (s *session) errorf(err error) error {
	s.wg.Wait()
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return &commandError{msg: msg, err: err}
	}
	return err
}

// finish 关闭输入，等待命令结束
func (s *session) finish() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.stdin.Close()
	err := s.Wait()
	s.wg.Wait()
	_ = s.Close()
	if err != nil {
		return &commandError{msg: strings.TrimSpace(s.stderr.String()), err: err}
	}
	return nil
}

func (s *session) abort() {
	if s.done {
		return
	}
	s.done = true
	_ = s.stdin.Close()
	_ = s.Close()
}

type scpReader struct {
	session *session
	r       io.Reader
	closed  bool
}

func (r *scpReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

// Close 读取结束状态并确认
func (r *scpReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if _, err := io.Copy(io.Discard, r.r); err != nil {
		r.session.abort()
		return err
	}
	if _, err := r.session.readReply(); err != nil {
		r.session.abort()
		return err
	}
	if err := r.session.ack(); err != nil {
		r.session.abort()
		return err
	}
	return r.session.finish()
}

// parseHeader 解析 C<mode> <size> <name>
func parseHeader(header string) (int64, error) {
	if !strings.HasPrefix(header, "C") {
		return 0, fmt.Errorf("unexpected scp header: %q", header)
	}
	parts := strings.SplitN(header, " ", 3)
	if len(parts) != 3 {
		return 0, fmt.Errorf("unexpected scp header: %q", header)
	}
	return strconv.ParseInt(parts[1], 10, 64)
}

// sized 返回长度已知的内容
func sized(r io.Reader) (io.Reader, int64, func(), error) {
	switch v := r.(type) {
	case *bytes.Reader:
		return v, int64(v.Len()), func() {}, nil
	case *strings.Reader:
		return v, int64(v.Len()), func() {}, nil
	case *bytes.Buffer:
		return v, int64(v.Len()), func() {}, nil
	}
	tmp, err := os.CreateTemp("", "scp-upload-*")
	if err != nil {
		return nil, 0, nil, err
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	size, err := io.Copy(tmp, r)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	return tmp, size, cleanup, nil
}

// commandError 远程命令错误
type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *commandError) Unwrap() error {
	return e.err
}

// toPathError 根据错误信息识别不存在和无权限错误
func toPathError(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		switch {
		case strings.Contains(cmdErr.msg, "No such file or directory"):
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrNotExist, cmdErr.msg)}
		case strings.Contains(cmdErr.msg, "Permission denied"):
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrPermission, cmdErr.msg)}
		}
	}
	return err
}
