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

package ftp

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/jlaffaye/ftp"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/test/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("stat", "/a", nil))
	err := wrap("stat", "/a", &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"})
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	err = wrap("create", "/a", &textproto.Error{Code: ftp.StatusNotLoggedIn, Msg: "Not logged in"})
	assert.True(t, errors.Is(err, fs.ErrPermission))
	err = wrap("create", "/a", &textproto.Error{Code: ftp.StatusExceededStorage, Msg: "full"})
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr))
	assert.Equal(t, "create", pathErr.Op)
}

func TestDialOptions(t *testing.T) {
	ctx := context.Background()
	options, err := DialOptions(ctx, &remote.Credentials{Protocol: "ftp", Host: "h"})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(options))

	options, err = DialOptions(ctx, &remote.Credentials{Protocol: "ftp", Host: "h",
		Options: map[string]string{OptionTLS: "explicit", OptionDisableEPSV: "true"}})
	assert.Nil(t, err)
	assert.Equal(t, 4, len(options))

	_, err = DialOptions(ctx, &remote.Credentials{Protocol: "ftp", Host: "h",
		Options: map[string]string{OptionTLS: "ssl3"}})
	assert.NotNil(t, err)
}

func TestTempFile(t *testing.T) {
	f, err := os.CreateTemp("", "ftp-test-*")
	assert.Nil(t, err)
	_, _ = f.WriteString("data")
	_, _ = f.Seek(0, io.SeekStart)
	tmp := &tempFile{File: f}
	b, err := io.ReadAll(tmp)
	assert.Nil(t, err)
	assert.Equal(t, "data", string(b))
	assert.Nil(t, tmp.Close())
	_, err = os.Stat(f.Name())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// 设置 TEST_FTP_HOST、TEST_FTP_USER、TEST_FTP_PASSWORD 后连接真实ftp服务器
func TestConnectServer(t *testing.T) {
	host := os.Getenv("TEST_FTP_HOST")
	if host == "" {
		t.Skip("TEST_FTP_HOST not set")
	}
	ctx := context.Background()
	conn, err := (&Handler{}).Connect(ctx, &remote.Credentials{Protocol: "ftp", Host: host,
		User: os.Getenv("TEST_FTP_USER"), Password: os.Getenv("TEST_FTP_PASSWORD")})
	assert.Nil(t, err)
	defer conn.Close()

	assert.Nil(t, conn.Mkdirs(ctx, "/rulego-test/sub"))
	n, err := conn.Write(ctx, "/rulego-test/sub/a.txt", strings.NewReader("hello ftp"))
	assert.Nil(t, err)
	assert.Equal(t, int64(9), n)
	info, err := conn.Stat(ctx, "/rulego-test/sub/a.txt")
	assert.Nil(t, err)
	assert.Equal(t, int64(9), info.Size())
	r, err := conn.Open(ctx, "/rulego-test/sub/a.txt")
	assert.Nil(t, err)
	b, _ := io.ReadAll(r)
	_ = r.Close()
	assert.Equal(t, "hello ftp", string(b))
	assert.Nil(t, conn.Rename(ctx, "/rulego-test/sub/a.txt", "/rulego-test/b.txt"))
	assert.Nil(t, conn.Delete(ctx, "/rulego-test/b.txt"))
	assert.Nil(t, conn.Delete(ctx, "/rulego-test/sub"))
	assert.Nil(t, conn.Delete(ctx, "/rulego-test"))
	_, err = conn.Stat(ctx, "/rulego-test")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
