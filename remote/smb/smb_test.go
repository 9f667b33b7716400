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
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hirochachacha/go-smb2"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/test/assert"
)

func TestMountConnection(t *testing.T) {
	ctx := context.Background()
	mount := filepath.ToSlash(t.TempDir())
	conn := NewMountConnection(mount, "data")

	assert.Nil(t, conn.Mkdirs(ctx, "/data/in"))
	n, err := conn.Write(ctx, "/data/in/a.txt", strings.NewReader("smb"))
	assert.Nil(t, err)
	assert.Equal(t, int64(3), n)
	b, err := os.ReadFile(filepath.Join(filepath.FromSlash(mount), "in", "a.txt"))
	assert.Nil(t, err)
	assert.Equal(t, "smb", string(b))

	infos, err := conn.List(ctx, "/DATA")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(infos))
	assert.True(t, infos[0].IsDir())

	assert.Nil(t, conn.Rename(ctx, "/data/in/a.txt", "/data/b.txt"))
	r, err := conn.Open(ctx, "/data/b.txt")
	assert.Nil(t, err)
	b, _ = io.ReadAll(r)
	_ = r.Close()
	assert.Equal(t, "smb", string(b))

	_, err = conn.Stat(ctx, "/other/b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = conn.Stat(ctx, "/data/none.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(conn.Delete(ctx, "/data"), fs.ErrPermission))
	assert.NotNil(t, conn.Delete(ctx, "/"))
	assert.Nil(t, conn.Delete(ctx, "/data/b.txt"))
}

func TestHandlerMountPath(t *testing.T) {
	ctx := context.Background()
	mount := filepath.ToSlash(t.TempDir())
	u, _ := url.Parse("smb://nas/share/x.txt?mountPath=" + url.QueryEscape(mount))
	monitor := remote.NewConnectionMonitor(nil)
	defer monitor.CloseConnections()
	conn, err := remote.Dial(ctx, monitor, u, nil)
	assert.Nil(t, err)
	_, ok := conn.(*MountConnection)
	assert.True(t, ok)
	_, err = conn.Write(ctx, u.Path, strings.NewReader("x"))
	assert.Nil(t, err)
	_, err = os.Stat(filepath.Join(filepath.FromSlash(mount), "x.txt"))
	assert.Nil(t, err)
}

func listenerCredentials(t *testing.T, ln net.Listener) *remote.Credentials {
	t.Helper()
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return &remote.Credentials{Protocol: remote.SchemeSMB, Host: host, Port: p,
		User: "user", Password: "secret", Timeout: 2 * time.Second}
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	creds := listenerCredentials(t, ln)
	_ = ln.Close()

	_, err = (&Handler{}).Connect(context.Background(), creds)
	assert.NotNil(t, err)
}

func TestConnectHandshakeFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	_, err = (&Handler{}).Connect(context.Background(), listenerCredentials(t, ln))
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "smb session"), "unexpected error %v", err)
}

func TestSplitSharePath(t *testing.T) {
	tests := []struct {
		path, share, name string
	}{
		{"/data", "data", ""},
		{"/data/", "data", ""},
		{"/data/in/a.txt", "data", `in\a.txt`},
		{"data//in/../b.txt", "data", `b.txt`},
	}
	for _, tt := range tests {
		share, name, err := splitSharePath("stat", tt.path)
		assert.Nil(t, err)
		assert.Equal(t, tt.share, share)
		assert.Equal(t, tt.name, name)
	}
	_, _, err := splitSharePath("stat", "/")
	assert.True(t, errors.Is(err, ErrShareRequired))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code   uint32
		target error
	}{
		{statusObjectNameNotFound, fs.ErrNotExist},
		{statusObjectPathNotFound, fs.ErrNotExist},
		{statusNoSuchFile, fs.ErrNotExist},
		{statusBadNetworkName, fs.ErrNotExist},
		{statusAccessDenied, fs.ErrPermission},
		{statusObjectNameCollision, fs.ErrExist},
	}
	for _, tt := range tests {
		err := mapError("stat", "/data/a", &os.PathError{Op: "stat", Path: "a", Err: &smb2.ResponseError{Code: tt.code}})
		assert.True(t, errors.Is(err, tt.target), "code %x: %v", tt.code, err)
	}
	assert.Nil(t, mapError("stat", "/data/a", nil))
	other := errors.New("broken pipe")
	assert.Equal(t, other, mapError("stat", "/data/a", other))
}

// TEST_SMB_ADDR=host:445 TEST_SMB_USER TEST_SMB_PASSWORD TEST_SMB_SHARE
func TestServer(t *testing.T) {
	addr := os.Getenv("TEST_SMB_ADDR")
	if addr == "" {
		t.Skip("TEST_SMB_ADDR not set")
	}
	host, port, _ := net.SplitHostPort(addr)
	p, _ := strconv.Atoi(port)
	share := os.Getenv("TEST_SMB_SHARE")
	creds := &remote.Credentials{Protocol: remote.SchemeSMB, Host: host, Port: p,
		User: os.Getenv("TEST_SMB_USER"), Password: os.Getenv("TEST_SMB_PASSWORD")}
	ctx := context.Background()
	conn, err := (&Handler{}).Connect(ctx, creds)
	assert.Nil(t, err)
	defer conn.Close()

	dir := fmt.Sprintf("/%s/rulego-%d", share, time.Now().UnixNano())
	assert.Nil(t, conn.Mkdirs(ctx, dir+"/in"))
	_, err = conn.Write(ctx, dir+"/in/a.txt", strings.NewReader("one"))
	assert.Nil(t, err)
	_, err = conn.Write(ctx, dir+"/b.txt", strings.NewReader("two"))
	assert.Nil(t, err)
	assert.Nil(t, conn.Rename(ctx, dir+"/in/a.txt", dir+"/b.txt"))
	r, err := conn.Open(ctx, dir+"/b.txt")
	assert.Nil(t, err)
	b, _ := io.ReadAll(r)
	_ = r.Close()
	assert.Equal(t, "one", string(b))
	infos, err := conn.List(ctx, dir)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(infos))
	_, err = conn.Stat(ctx, dir+"/none")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	assert.Nil(t, conn.Delete(ctx, dir+"/b.txt"))
	assert.Nil(t, conn.Delete(ctx, dir+"/in"))
	assert.Nil(t, conn.Delete(ctx, dir))
}
