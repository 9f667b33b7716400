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
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/remote"
)

// StatusExtracted 解压成功
const StatusExtracted = "extracted"

// ArchiveMode 压缩包已存在时的处理方式
type ArchiveMode string

const (
	ArchiveOverwrite = ArchiveMode("overwrite")
	ArchiveAppend    = ArchiveMode("append")
	ArchiveFail      = ArchiveMode("fail")
)

var (
	ErrUnknownArchiveMode = errors.New("unknown archive mode")
	ErrDuplicateEntry     = errors.New("duplicate archive entry")
	ErrIllegalEntry       = errors.New("archive entry escapes target folder")
	ErrCompressionLevel   = errors.New("compression level must be between -2 and 9")
)

// ParseArchiveMode 解析压缩包覆盖方式，空值为 fail
func ParseArchiveMode(s string) (ArchiveMode, error) {
	for _, m := range []ArchiveMode{ArchiveOverwrite, ArchiveAppend, ArchiveFail} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	if s == "" || strings.EqualFold(s, "abort") {
		return ArchiveFail, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownArchiveMode, s)
}

// ArchiveEntry 压缩结果行
type ArchiveEntry struct {
	Source string `json:"source"`
	Entry  string `json:"entry"`
	Size   int64  `json:"size"`
}

// CompressRequest 压缩请求
type CompressRequest struct {
	//文件或目录，目录递归压缩
	Sources []*remote.File
	//zip 文件
	Target       *remote.File
	PathHandling PathHandling
	Prefix       string
	//flate 压缩级别，0 只存储
	Level  int
	Mode   ArchiveMode
	Filter *Filter
}

type archiveFile struct {
	file *remote.File
	info fs.FileInfo
	name string
}

// Compress 把源文件压缩到 zip 文件
// 先写入临时文件，完成后再写入目标，失败时目标保持不变
func Compress(ctx context.Context, req CompressRequest) ([]ArchiveEntry, error) {
	if req.Target == nil {
		return nil, errors.New("target archive is nil")
	}
	if req.Level < flate.HuffmanOnly || req.Level > flate.BestCompression {
		return nil, fmt.Errorf("%w: %d", ErrCompressionLevel, req.Level)
	}
	exists, err := req.Target.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists && req.Mode != ArchiveOverwrite && req.Mode != ArchiveAppend {
		return nil, fmt.Errorf("%w: %s", ErrTargetExists, req.Target)
	}
	files, err := collectArchiveFiles(ctx, req)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "rulego-zip-*.zip")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	w := zip.NewWriter(tmp)
	level := req.Level
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	if exists && req.Mode == ArchiveAppend {
		if err := copyExistingEntries(ctx, req.Target, files, w); err != nil {
			return nil, err
		}
	}
	entries := make([]ArchiveEntry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := addEntry(ctx, w, f, level)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", f.file, err)
		}
		entries = append(entries, ArchiveEntry{Source: f.file.String(), Entry: f.name, Size: n})
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := req.Target.Write(ctx, tmp)
	if err != nil {
		return nil, err
	}
	metrics.RecordBytes(remote.Protocol(req.Target.URI()), n)
	return entries, nil
}

func collectArchiveFiles(ctx context.Context, req CompressRequest) ([]archiveFile, error) {
	var files []archiveFile
	names := make(map[string]bool)
	add := func(root *remote.File, rootIsDir bool, file *remote.File, info fs.FileInfo) error {
		if ok, err := req.Filter.Match(file.Path(), info); err != nil || !ok {
			return err
		}
		name, err := entryName(root, rootIsDir, file, req.PathHandling, req.Prefix)
		if err != nil {
			return err
		}
		if names[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
		}
		names[name] = true
		files = append(files, archiveFile{file: file, info: info, name: name})
		return nil
	}
	for _, source := range req.Sources {
		info, err := source.Stat(ctx)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source, err)
		}
		if !info.IsDir() {
			if err := add(source, false, source, info); err != nil {
				return nil, err
			}
			continue
		}
		err = source.Walk(ctx, true, func(file *remote.File, info fs.FileInfo) error {
			if info.IsDir() {
				return nil
			}
			return add(source, true, file, info)
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// entryName 压缩包内的路径
// 目录源使用 onlyFilename 时保留目录名和相对路径
func entryName(root *remote.File, rootIsDir bool, file *remote.File, handling PathHandling, prefix string) (string, error) {
	if rootIsDir && (handling == OnlyFilename || handling == "") {
		rel := strings.TrimPrefix(file.Path(), strings.TrimSuffix(root.Path(), "/"))
		return strings.TrimPrefix(path.Join(root.Name(), rel), "/"), nil
	}
	p, err := TargetPath("/", file.Path(), handling, prefix)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(p, "/"), nil
}

// copyExistingEntries 追加模式下复制已有条目，同名条目由新文件替换
func copyExistingEntries(ctx context.Context, target *remote.File, files []archiveFile, w *zip.Writer) error {
	replaced := make(map[string]bool, len(files))
	for _, f := range files {
		replaced[f.name] = true
	}
	existing, size, err := spool(ctx, target)
	if err != nil {
		return err
	}
	defer os.Remove(existing.Name())
	defer existing.Close()
	r, err := zip.NewReader(existing, size)
	if err != nil {
		return fmt.Errorf("read %s: %w", target, err)
	}
	for _, f := range r.File {
		if replaced[f.Name] {
			continue
		}
		if err := w.Copy(f); err != nil {
			return err
		}
	}
	return nil
}

func addEntry(ctx context.Context, w *zip.Writer, f archiveFile, level int) (int64, error) {
	header, err := zip.FileInfoHeader(f.info)
	if err != nil {
		return 0, err
	}
	header.Name = f.name
	header.Method = zip.Deflate
	if level == flate.NoCompression {
		header.Method = zip.Store
	}
	out, err := w.CreateHeader(header)
	if err != nil {
		return 0, err
	}
	r, err := f.file.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return io.Copy(out, &ctxReader{ctx: ctx, r: r})
}

// ExtractRequest 解压请求
type ExtractRequest struct {
	Source    *remote.File
	TargetDir *remote.File
	//只支持 overwrite、overwriteIfNewer、ignore、fail
	OverwritePolicy OverwritePolicy
	//回滚记录器，失败时删除已解压的文件
	Monitor *CopyOrMoveMonitor
}

// Extract 解压 zip 文件到目标目录
// 先检查所有条目，有条目会写到目标目录之外时不解压任何文件
func Extract(ctx context.Context, req ExtractRequest) ([]Result, error) {
	if req.Source == nil || req.TargetDir == nil {
		return nil, errors.New("source and target folder are required")
	}
	if req.Monitor == nil {
		return nil, errors.New("copy or move monitor is nil")
	}
	archive, size, err := spool(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive.Name())
	defer archive.Close()
	r, err := zip.NewReader(archive, size)
	//不安全的条目名由 SafeEntryName 拒绝
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("read %s: %w", req.Source, err)
	}
	names := make([]string, len(r.File))
	for i, f := range r.File {
		if names[i], err = SafeEntryName(f.Name); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(r.File))
	abort := func(err error) ([]Result, error) {
		if rollbackErr := req.Monitor.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			err = errors.Join(err, rollbackErr)
		}
		return results, err
	}
	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		target := req.TargetDir.WithPath(path.Join(req.TargetDir.Path(), names[i]))
		if f.FileInfo().IsDir() {
			if err := target.Mkdirs(ctx); err != nil {
				return abort(err)
			}
			continue
		}
		result := Result{Source: req.Source.String() + "!" + names[i], Target: target.String()}
		status, err := extractEntry(ctx, f, target, req.OverwritePolicy)
		result.Status = status
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			return abort(err)
		}
		if status == StatusExtracted {
			req.Monitor.RegisterFiles(result.Source, target.URI().String())
		}
		metrics.RecordFile(remote.Protocol(target.URI()), status)
		results = append(results, result)
	}
	return results, nil
}

func extractEntry(ctx context.Context, f *zip.File, target *remote.File, policy OverwritePolicy) (string, error) {
	info, err := target.Stat(ctx)
	switch {
	case err == nil:
		if info.IsDir() {
			return StatusFailed, fmt.Errorf("%w: %s is a directory", ErrTargetExists, target)
		}
		switch policy {
		case Overwrite:
		case OverwriteIfNewer:
			if !f.Modified.After(info.ModTime()) {
				return StatusSkipped, nil
			}
		case Ignore:
			return StatusSkipped, nil
		default:
			return StatusFailed, fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return StatusFailed, err
	}
	rc, err := f.Open()
	if err != nil {
		return StatusFailed, err
	}
	defer rc.Close()
	if _, err := target.Write(ctx, &ctxReader{ctx: ctx, r: rc}); err != nil {
		return StatusFailed, err
	}
	return StatusExtracted, nil
}

// SafeEntryName 校验并规范化条目名，绝对路径或 .. 开头的条目返回 ErrIllegalEntry
func SafeEntryName(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if n == "" || strings.HasPrefix(n, "/") || (len(n) > 1 && n[1] == ':') {
		return "", fmt.Errorf("%w: %s", ErrIllegalEntry, name)
	}
	clean := path.Clean(n)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrIllegalEntry, name)
	}
	return clean, nil
}

// spool 把文件下载到临时文件，zip 读取需要随机访问
func spool(ctx context.Context, f *remote.File) (*os.File, int64, error) {
	r, err := f.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()
	tmp, err := os.CreateTemp("", "rulego-unzip-*.zip")
	if err != nil {
		return nil, 0, err
	}
	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, 0, err
	}
	return tmp, n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
