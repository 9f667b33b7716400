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
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// OverwritePolicy 目标已存在时的处理方式
type OverwritePolicy string

const (
	Overwrite        = OverwritePolicy("overwrite")
	OverwriteIfNewer = OverwritePolicy("overwriteIfNewer")
	Ignore           = OverwritePolicy("ignore")
	Fail             = OverwritePolicy("fail")
)

var (
	ErrUnknownOverwritePolicy = errors.New("unknown overwrite policy")
	ErrUnknownPathHandling    = errors.New("unknown path handling")
	ErrUnknownFilterType      = errors.New("unknown filter type")
	ErrPrefixMismatch         = errors.New("path does not start with prefix")
	ErrTargetExists           = errors.New("target already exists")
)

// ParseOverwritePolicy 解析覆盖策略，不区分大小写，空值为 fail
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	for _, p := range []OverwritePolicy{Overwrite, OverwriteIfNewer, Ignore, Fail} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	if s == "" || strings.EqualFold(s, "abort") {
		return Fail, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownOverwritePolicy, s)
}

// PathHandling 目标路径的生成方式
type PathHandling string

const (
	// FullPath 目标目录 + 源文件完整路径
	FullPath = PathHandling("fullPath")
	// OnlyFilename 目标目录 + 文件名
	OnlyFilename = PathHandling("onlyFilename")
	// TruncatePrefix 目标目录 + 去掉前缀后的源路径
	TruncatePrefix = PathHandling("truncatePrefix")
)

// ParsePathHandling 解析路径处理方式，不区分大小写，空值为 onlyFilename
func ParsePathHandling(s string) (PathHandling, error) {
	if s == "" {
		return OnlyFilename, nil
	}
	for _, h := range []PathHandling{FullPath, OnlyFilename, TruncatePrefix} {
		if strings.EqualFold(s, string(h)) {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPathHandling, s)
}

// TargetPath 计算目标路径，参数都是 / 分隔的路径
func TargetPath(targetDir, source string, handling PathHandling, prefix string) (string, error) {
	source = path.Clean("/" + source)
	switch handling {
	case FullPath:
		//去掉 Windows 盘符中的冒号 /C:/a -> /C/a
		if len(source) > 2 && source[2] == ':' {
			source = source[:2] + source[3:]
		}
		return path.Join(targetDir, source), nil
	case OnlyFilename, "":
		return path.Join(targetDir, path.Base(source)), nil
	case TruncatePrefix:
		prefix = path.Clean("/" + prefix)
		rest, ok := strings.CutPrefix(source, prefix)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/") && prefix != "/") {
			return "", fmt.Errorf("%w: %s, %s", ErrPrefixMismatch, source, prefix)
		}
		if rest == "" {
			rest = path.Base(source)
		}
		return path.Join(targetDir, rest), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPathHandling, handling)
}

// 过滤类型
const (
	FilterWildcard   = "wildcard"
	FilterRegex      = "regex"
	FilterExpression = "expression"
)

// Filter 文件过滤器
// wildcard 和 regex 匹配文件名，expression 为布尔表达式，
// 可用变量 name, path, size, modTime, isDir, ext
type Filter struct {
	filterType string
	pattern    string
	regex      *regexp.Regexp
	program    *vm.Program
}

// NewFilter 创建过滤器，useFilter 为 false 时返回 nil，nil 过滤器匹配所有文件
func NewFilter(useFilter bool, filterType, pattern string) (*Filter, error) {
	if !useFilter {
		return nil, nil
	}
	f := &Filter{filterType: strings.ToLower(filterType), pattern: pattern}
	switch f.filterType {
	case "", FilterWildcard:
		f.filterType = FilterWildcard
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid wildcard %s: %w", pattern, err)
		}
	case FilterRegex:
		regex, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, err
		}
		f.regex = regex
	case FilterExpression:
		program, err := expr.Compile(pattern, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, err
		}
		f.program = program
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilterType, filterType)
	}
	return f, nil
}

// Match 文件是否满足过滤条件
func (f *Filter) Match(filePath string, info fs.FileInfo) (bool, error) {
	if f == nil {
		return true, nil
	}
	name := info.Name()
	switch f.filterType {
	case FilterRegex:
		return f.regex.MatchString(name), nil
	case FilterExpression:
		out, err := vm.Run(f.program, map[string]interface{}{
			"name":    name,
			"path":    filePath,
			"size":    info.Size(),
			"modTime": info.ModTime(),
			"isDir":   info.IsDir(),
			"ext":     strings.TrimPrefix(path.Ext(name), "."),
			"now":     time.Now(),
		})
		if err != nil {
			return false, err
		}
		result, _ := out.(bool)
		return result, nil
	default:
		return path.Match(f.pattern, name)
	}
}
