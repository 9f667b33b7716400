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

package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rulego/rulego-components-file/test/assert"
)

// crossDeviceRename 模拟源和目标在不同文件系统
func crossDeviceRename(t *testing.T) {
	rename = func(from, to string) error {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: syscall.EXDEV}
	}
	t.Cleanup(func() {
		rename = os.Rename
	})
}

func writeFile(t *testing.T, p, content string) {
	assert.Nil(t, os.MkdirAll(filepath.Dir(p), 0o755))
	assert.Nil(t, os.WriteFile(p, []byte(content), 0o640))
}

func TestConnection(t *testing.T) {
	ctx := context.Background()
	dir := filepath.ToSlash(t.TempDir())
	conn, err := (&Handler{}).Connect(ctx, nil)
	assert.Nil(t, err)
	defer conn.Close()

	assert.Nil(t, conn.Mkdirs(ctx, dir+"/in"))
	writeFile(t, OSPath(dir+"/in/a.txt"), "a")
	infos, err := conn.List(ctx, dir+"/in")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(infos))
	assert.Nil(t, conn.Rename(ctx, dir+"/in/a.txt", dir+"/in/b.txt"))
	_, err = conn.Stat(ctx, dir+"/in/a.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, IsLocal("file"))
	assert.True(t, IsLocal(""))
	assert.False(t, IsLocal("sftp"))
}

func TestMoveCrossDevice(t *testing.T) {
	crossDeviceRename(t)
	ctx := context.Background()
	dir := t.TempDir()
	conn := &Connection{}

	t.Run("File", func(t *testing.T) {
		src := filepath.Join(dir, "a.txt")
		dst := filepath.Join(dir, "out", "a.txt")
		writeFile(t, src, "hello")
		mtime := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		assert.Nil(t, os.Chtimes(src, mtime, mtime))
		assert.Nil(t, os.MkdirAll(filepath.Dir(dst), 0o755))

		assert.Nil(t, conn.Rename(ctx, filepath.ToSlash(src), filepath.ToSlash(dst)))
		_, err := os.Stat(src)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		b, err := os.ReadFile(dst)
		assert.Nil(t, err)
		assert.Equal(t, "hello", string(b))
		info, err := os.Stat(dst)
		assert.Nil(t, err)
		assert.True(t, info.ModTime().Equal(mtime), "mtime %v", info.ModTime())
	})

	t.Run("Directory", func(t *testing.T) {
		src := filepath.Join(dir, "tree")
		writeFile(t, filepath.Join(src, "x.txt"), "x")
		writeFile(t, filepath.Join(src, "sub", "y.txt"), "y")
		dst := filepath.Join(dir, "moved")

		assert.Nil(t, Move(src, dst))
		_, err := os.Stat(src)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		b, err := os.ReadFile(filepath.Join(dst, "sub", "y.txt"))
		assert.Nil(t, err)
		assert.Equal(t, "y", string(b))

		//目标目录已存在不合并
		writeFile(t, filepath.Join(src, "z.txt"), "z")
		assert.True(t, errors.Is(Move(src, dst), fs.ErrExist))
		_, err = os.Stat(filepath.Join(src, "z.txt"))
		assert.Nil(t, err)
	})

	t.Run("MissingSource", func(t *testing.T) {
		err := Move(filepath.Join(dir, "none"), filepath.Join(dir, "none2"))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})
}

func TestMoveOtherErrors(t *testing.T) {
	dir := t.TempDir()
	//非跨设备错误直接返回，不复制
	err := Move(filepath.Join(dir, "none"), filepath.Join(dir, "b.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(filepath.Join(dir, "b.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, crossDevice(errors.New("other")))
	assert.True(t, crossDevice(&os.LinkError{Op: "rename", Err: syscall.EXDEV}))
}
