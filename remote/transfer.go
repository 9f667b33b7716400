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

package remote

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"math/rand"
	"time"

	"github.com/rulego/rulego-components-file/metrics"
)

// RetryConfig 重试配置
type RetryConfig struct {
	//最大尝试次数，<=1 表示不重试
	MaxAttempts int
	//首次重试等待时间
	InitialWait time.Duration
	//最大等待时间
	MaxWait time.Duration
	//退避倍数
	Multiplier float64
	//抖动因子 0-1
	Jitter float64
}

// DefaultRetryConfig 默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// NoRetry 只尝试一次
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// WithAttempts 返回指定尝试次数的配置
func (c RetryConfig) WithAttempts(attempts int) RetryConfig {
	c.MaxAttempts = attempts
	return c
}

// IsPermanent 不需要重试的错误：取消、超时、不存在、无权限
func IsPermanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

// Retry 执行 fn，失败时按指数退避重试
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if IsPermanent(err) || attempt == attempts {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
		if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
			wait = float64(cfg.MaxWait)
		}
		if cfg.Jitter > 0 {
			wait += wait * cfg.Jitter * (rand.Float64()*2 - 1)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait)):
		}
	}
	return lastErr
}

// Copy 把 src 复制到 dst，失败重试，返回复制的字节数
func Copy(ctx context.Context, src, dst *File, cfg RetryConfig) (int64, error) {
	var written int64
	err := Retry(ctx, cfg, func() error {
		r, err := src.Open(ctx)
		if err != nil {
			return err
		}
		defer r.Close()
		written, err = dst.Write(ctx, &contextReader{ctx: ctx, r: r})
		return err
	})
	if err == nil {
		metrics.RecordBytes(Protocol(dst.uri), written)
	}
	return written, err
}

// DeleteWithRetry 删除文件，失败重试；文件不存在不重试
func DeleteWithRetry(ctx context.Context, f *File, cfg RetryConfig) error {
	return Retry(ctx, cfg, func() error {
		return f.Delete(ctx)
	})
}

// contextReader 每次读取前检查 ctx，取消后中断复制
type contextReader struct {
	ctx context.Context
	r   interface{ Read([]byte) (int, error) }
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
