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

package filehandling

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/test/assert"
)

func zipEntries(t *testing.T, p string) map[string]string {
	r, err := zip.OpenReader(p)
	assert.Nil(t, err)
	defer r.Close()
	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		assert.Nil(t, err)
		b, err := io.ReadAll(rc)
		assert.Nil(t, err)
		_ = rc.Close()
		entries[f.Name] = string(b)
	}
	return entries
}

func writeZip(t *testing.T, p string, entries ...string) {
	assert.Nil(t, os.MkdirAll(filepath.Dir(p), 0o755))
	out, err := os.Create(p)
	assert.Nil(t, err)
	w := zip.NewWriter(out)
	for i := 0; i+1 < len(entries); i += 2 {
		e, err := w.Create(entries[i])
		assert.Nil(t, err)
		_, err = e.Write([]byte(entries[i+1]))
		assert.Nil(t, err)
	}
	assert.Nil(t, w.Close())
	assert.Nil(t, out.Close())
}

func TestCompressDirectory(t *testing.T) {
	f := newCopyFixture(t)
	ctx := context.Background()
	entries, err := Compress(ctx, CompressRequest{
		Sources: []*remote.File{f.file(t, "in")},
		Target:  f.file(t, "out", "in.zip"),
		Level:   -1,
	})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(entries))
	archive := zipEntries(t, filepath.Join(f.dir, "out", "in.zip"))
	assert.Equal(t, "a", archive["in/a.txt"])
	assert.Equal(t, "b", archive["in/b.csv"])
	assert.Equal(t, "c", archive["in/sub/c.txt"])

	//已存在时默认失败
	_, err = Compress(ctx, CompressRequest{
		Sources: []*remote.File{f.file(t, "in")},
		Target:  f.file(t, "out", "in.zip"),
		Level:   -1,
	})
	assert.True(t, errors.Is(err, ErrTargetExists))
}

func TestCompressAppend(t *testing.T) {
	f := newCopyFixture(t)
	ctx := context.Background()
	target := f.file(t, "out", "files.zip")
	_, err := Compress(ctx, CompressRequest{
		Sources: []*remote.File{f.file(t, "in", "a.txt")},
		Target:  target,
		Level:   0,
	})
	assert.Nil(t, err)

	writeFile(t, filepath.Join(f.dir, "in", "a.txt"), "a2")
	filter, err := NewFilter(true, FilterWildcard, "*.txt")
	assert.Nil(t, err)
	entries, err := Compress(ctx, CompressRequest{
		Sources:      []*remote.File{f.file(t, "in")},
		Target:       target,
		PathHandling: TruncatePrefix,
		Prefix:       filepath.ToSlash(filepath.Join(f.dir, "in")),
		Level:        9,
		Mode:         ArchiveAppend,
		Filter:       filter,
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(entries))
	archive := zipEntries(t, filepath.Join(f.dir, "out", "files.zip"))
	assert.Equal(t, 2, len(archive))
	assert.Equal(t, "a2", archive["a.txt"])
	assert.Equal(t, "c", archive["sub/c.txt"])
}

func TestCompressDuplicateEntry(t *testing.T) {
	f := newCopyFixture(t)
	writeFile(t, filepath.Join(f.dir, "in", "sub", "a.txt"), "a")
	_, err := Compress(context.Background(), CompressRequest{
		Sources: []*remote.File{f.file(t, "in", "a.txt"), f.file(t, "in", "sub", "a.txt")},
		Target:  f.file(t, "out", "dup.zip"),
		Level:   -1,
	})
	assert.True(t, errors.Is(err, ErrDuplicateEntry))
	assert.False(t, exists(filepath.Join(f.dir, "out", "dup.zip")))

	_, err = Compress(context.Background(), CompressRequest{
		Sources: []*remote.File{f.file(t, "in", "a.txt")},
		Target:  f.file(t, "out", "level.zip"),
		Level:   10,
	})
	assert.True(t, errors.Is(err, ErrCompressionLevel))
}

func TestExtract(t *testing.T) {
	f := newCopyFixture(t)
	ctx := context.Background()
	writeZip(t, filepath.Join(f.dir, "x.zip"), "docs/", "", "docs/readme.md", "# x", "data.csv", "1,2")
	monitor := NewCopyOrMoveMonitor(ActionCopy, URIFileSystem{Connections: f.connections, Retry: remote.NoRetry()})
	results, err := Extract(ctx, ExtractRequest{
		Source:    f.file(t, "x.zip"),
		TargetDir: f.file(t, "out"),
		Monitor:   monitor,
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(results))
	assert.Equal(t, "# x", readFile(t, filepath.Join(f.dir, "out", "docs", "readme.md")))
	assert.Equal(t, "1,2", readFile(t, filepath.Join(f.dir, "out", "data.csv")))
	assert.Equal(t, 2, monitor.Len())

	//再次解压，忽略已存在的文件
	results, err = Extract(ctx, ExtractRequest{
		Source:          f.file(t, "x.zip"),
		TargetDir:       f.file(t, "out"),
		OverwritePolicy: Ignore,
		Monitor:         NewCopyOrMoveMonitor(ActionCopy, URIFileSystem{Connections: f.connections}),
	})
	assert.Nil(t, err)
	for _, r := range results {
		assert.Equal(t, StatusSkipped, r.Status)
	}
}

func TestExtractRollback(t *testing.T) {
	f := newCopyFixture(t)
	writeZip(t, filepath.Join(f.dir, "x.zip"), "new.txt", "new", "exists.txt", "zip")
	writeFile(t, filepath.Join(f.dir, "out", "exists.txt"), "old")
	results, err := Extract(context.Background(), ExtractRequest{
		Source:          f.file(t, "x.zip"),
		TargetDir:       f.file(t, "out"),
		OverwritePolicy: Fail,
		Monitor:         NewCopyOrMoveMonitor(ActionCopy, URIFileSystem{Connections: f.connections, Retry: remote.NoRetry()}),
	})
	assert.True(t, errors.Is(err, ErrTargetExists))
	assert.Equal(t, 2, len(results))
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.False(t, exists(filepath.Join(f.dir, "out", "new.txt")))
	assert.Equal(t, "old", readFile(t, filepath.Join(f.dir, "out", "exists.txt")))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	f := newCopyFixture(t)
	writeZip(t, filepath.Join(f.dir, "evil.zip"), "ok.txt", "ok", "../evil.txt", "evil")
	_, err := Extract(context.Background(), ExtractRequest{
		Source:    f.file(t, "evil.zip"),
		TargetDir: f.file(t, "out"),
		Monitor:   NewCopyOrMoveMonitor(ActionCopy, URIFileSystem{Connections: f.connections}),
	})
	assert.True(t, errors.Is(err, ErrIllegalEntry))
	assert.False(t, exists(filepath.Join(f.dir, "out", "ok.txt")))
	assert.False(t, exists(filepath.Join(f.dir, "evil.txt")))
}

func TestSafeEntryName(t *testing.T) {
	for name, want := range map[string]string{
		"a.txt":         "a.txt",
		"dir/../b.txt":  "b.txt",
		"dir\\c.txt":    "dir/c.txt",
		"./d/e.txt":     "d/e.txt",
		"a/b/../../f.x": "f.x",
	} {
		got, err := SafeEntryName(name)
		assert.Nil(t, err, name)
		assert.Equal(t, want, got)
	}
	var illegal []string
	for _, name := range []string{"../a", "/etc/passwd", "a/../../b", "C:/x", "..\\x", ""} {
		if _, err := SafeEntryName(name); errors.Is(err, ErrIllegalEntry) {
			illegal = append(illegal, name)
		}
	}
	assert.Equal(t, 6, len(illegal))
}

func TestParseArchiveMode(t *testing.T) {
	m, err := ParseArchiveMode("")
	assert.Nil(t, err)
	assert.Equal(t, ArchiveFail, m)
	m, err = ParseArchiveMode("Append")
	assert.Nil(t, err)
	assert.Equal(t, ArchiveAppend, m)
	_, err = ParseArchiveMode("merge")
	assert.True(t, errors.Is(err, ErrUnknownArchiveMode))
}
