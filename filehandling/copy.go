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
	"io/fs"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/remote"
)

// 处理状态
const (
	StatusCopied  = "copied"
	StatusMoved   = "moved"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

var ErrWrittenInThisRun = errors.New("target was already written in this run")

// Request 批量复制或移动请求
type Request struct {
	//源文件或目录
	Sources []*remote.File
	//目标目录
	TargetDir       *remote.File
	Action          Action
	OverwritePolicy OverwritePolicy
	PathHandling    PathHandling
	Prefix          string
	//源是目录时是否包含子目录
	Subfolders bool
	//nil 不过滤
	Filter *Filter
	//true 第一个失败时回滚并返回错误
	AbortOnFail bool
	Retry       remote.RetryConfig
	//回滚记录器，路径为文件URI
	Monitor *CopyOrMoveMonitor
	Logger  types.Logger
}

// Result 单个文件的处理结果
type Result struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type sourceFile struct {
	file *remote.File
	info fs.FileInfo
}

// CopyOrMove 复制或移动文件
// 每处理完一个文件登记到 Monitor；AbortOnFail 或覆盖策略为 fail 时，出错回滚已处理的文件并返回错误，
// 否则记录失败并继续
func CopyOrMove(ctx context.Context, req Request) ([]Result, error) {
	if req.Monitor == nil {
		return nil, errors.New("copy or move monitor is nil")
	}
	if req.TargetDir == nil {
		return nil, errors.New("target directory is nil")
	}
	if req.Action == "" {
		req.Action = ActionCopy
	}
	var results []Result
	abort := func(err error) ([]Result, error) {
		//回滚不能随 ctx 一起取消
		if rollbackErr := req.Monitor.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			if req.Logger != nil {
				req.Logger.Printf("rollback failed: %v", rollbackErr)
			}
			err = errors.Join(err, rollbackErr)
		}
		return results, err
	}

	files, err := collect(ctx, req)
	if err != nil {
		return abort(err)
	}
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		result, err := processFile(ctx, req, src)
		results = append(results, result)
		metrics.RecordFile(remote.Protocol(req.TargetDir.URI()), result.Status)
		if err == nil {
			continue
		}
		if req.AbortOnFail || errors.Is(err, ErrTargetExists) || errors.Is(err, context.Canceled) {
			return abort(err)
		}
		if req.Logger != nil {
			req.Logger.Printf("%s %s failed: %v", req.Action, result.Source, err)
		}
	}
	return results, nil
}

// collect 展开源目录并过滤
func collect(ctx context.Context, req Request) ([]sourceFile, error) {
	var files []sourceFile
	for _, source := range req.Sources {
		info, err := source.Stat(ctx)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source, err)
		}
		if !info.IsDir() {
			if ok, err := req.Filter.Match(source.Path(), info); err != nil {
				return nil, err
			} else if ok {
				files = append(files, sourceFile{file: source, info: info})
			}
			continue
		}
		err = source.Walk(ctx, req.Subfolders, func(file *remote.File, info fs.FileInfo) error {
			if info.IsDir() {
				return nil
			}
			ok, err := req.Filter.Match(file.Path(), info)
			if ok {
				files = append(files, sourceFile{file: file, info: info})
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func processFile(ctx context.Context, req Request, src sourceFile) (Result, error) {
	result := Result{Source: src.file.String()}
	fail := func(err error) (Result, error) {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result, err
	}
	targetPath, err := TargetPath(req.TargetDir.Path(), src.file.Path(), req.PathHandling, req.Prefix)
	if err != nil {
		return fail(err)
	}
	target := req.TargetDir.WithPath(targetPath)
	result.Target = target.String()
	sourceKey, targetKey := src.file.URI().String(), target.URI().String()

	//本次生成的文件不作为源再次处理
	if !req.Monitor.IsNewFile(sourceKey) {
		result.Status = StatusSkipped
		return result, nil
	}
	if sourceKey == targetKey {
		result.Status = StatusSkipped
		return result, nil
	}
	if !req.Monitor.IsNewFile(targetKey) {
		return fail(fmt.Errorf("%w: %s", ErrWrittenInThisRun, target))
	}
	targetInfo, err := target.Stat(ctx)
	switch {
	case err == nil:
		if targetInfo.IsDir() {
			return fail(fmt.Errorf("%w: %s is a directory", ErrTargetExists, target))
		}
		switch req.OverwritePolicy {
		case Overwrite:
		case OverwriteIfNewer:
			if !src.info.ModTime().After(targetInfo.ModTime()) {
				result.Status = StatusSkipped
				return result, nil
			}
		case Ignore:
			result.Status = StatusSkipped
			return result, nil
		default:
			return fail(fmt.Errorf("%w: %s", ErrTargetExists, target))
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fail(err)
	}

	targetExisted := err == nil
	if req.Action == ActionMove {
		err = moveFile(ctx, src.file, target, req.Retry)
		result.Status = StatusMoved
	} else {
		_, err = remote.Copy(ctx, src.file, target, req.Retry)
		result.Status = StatusCopied
	}
	if err != nil {
		if !targetExisted {
			removePartial(ctx, target, req.Logger)
		}
		return fail(err)
	}
	req.Monitor.RegisterFiles(sourceKey, targetKey)
	return result, nil
}

// removePartial 删除中途失败时写入的不完整目标文件，取消后仍然执行
func removePartial(ctx context.Context, target *remote.File, logger types.Logger) {
	err := target.Delete(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, fs.ErrNotExist) && logger != nil {
		logger.Printf("remove partial file %s failed: %v", target, err)
	}
}
