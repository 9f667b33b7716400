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

// Package mimetype 文件扩展名与 MIME 类型的注册表
// 查找顺序：注册表 -> 标准库 mime -> 内容嗅探
package mimetype

import (
	"io"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Default 无法识别时的类型
const Default = "application/octet-stream"

var builtin = map[string]string{
	"txt":     "text/plain",
	"log":     "text/plain",
	"csv":     "text/csv",
	"tsv":     "text/tab-separated-values",
	"json":    "application/json",
	"xml":     "application/xml",
	"html":    "text/html",
	"htm":     "text/html",
	"md":      "text/markdown",
	"yaml":    "application/yaml",
	"yml":     "application/yaml",
	"pdf":     "application/pdf",
	"zip":     "application/zip",
	"gz":      "application/gzip",
	"tar":     "application/x-tar",
	"7z":      "application/x-7z-compressed",
	"png":     "image/png",
	"jpg":     "image/jpeg",
	"jpeg":    "image/jpeg",
	"gif":     "image/gif",
	"svg":     "image/svg+xml",
	"tif":     "image/tiff",
	"tiff":    "image/tiff",
	"bmp":     "image/bmp",
	"xls":     "application/vnd.ms-excel",
	"xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"doc":     "application/msword",
	"docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"ppt":     "application/vnd.ms-powerpoint",
	"pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"parquet": "application/vnd.apache.parquet",
	"pmml":    "application/xml",
	"bin":     "application/octet-stream",
}

var registry = struct {
	sync.RWMutex
	byExt map[string]string
}{byExt: make(map[string]string)}

func init() {
	for ext, t := range builtin {
		registry.byExt[ext] = t
	}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func baseType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// Register 注册或覆盖扩展名对应的类型
func Register(ext, mimeType string) {
	ext = normalizeExt(ext)
	if ext == "" || mimeType == "" {
		return
	}
	registry.Lock()
	defer registry.Unlock()
	registry.byExt[ext] = baseType(mimeType)
}

// TypeByExtension 扩展名对应的类型，未知返回空
func TypeByExtension(ext string) string {
	ext = normalizeExt(ext)
	if ext == "" {
		return ""
	}
	registry.RLock()
	t, ok := registry.byExt[ext]
	registry.RUnlock()
	if ok {
		return t
	}
	return baseType(mime.TypeByExtension("." + ext))
}

// Extensions 该类型注册的扩展名，按字母排序
func Extensions(mimeType string) []string {
	mimeType = baseType(mimeType)
	registry.RLock()
	defer registry.RUnlock()
	var exts []string
	for ext, t := range registry.byExt {
		if t == mimeType {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// TypeOf 本地文件的类型，扩展名未知时读取内容识别
func TypeOf(filePath string) string {
	if t := TypeByExtension(path.Ext(filePath)); t != "" {
		return t
	}
	m, err := mimetype.DetectFile(filePath)
	if err != nil {
		return Default
	}
	return baseType(m.String())
}

// Detect 根据文件名和内容识别类型
func Detect(name string, data []byte) string {
	if t := TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return baseType(mimetype.Detect(data).String())
}

// DetectReader 根据文件名和读取到的内容识别类型
func DetectReader(name string, r io.Reader) string {
	if t := TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	m, err := mimetype.DetectReader(r)
	if err != nil {
		return Default
	}
	return baseType(m.String())
}
