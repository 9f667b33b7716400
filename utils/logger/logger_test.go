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

package logger

import (
	"testing"

	"github.com/rulego/rulego-components-file/test/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPrintf(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))
	l.Printf("closing connection %s", "ssh://u@h:22")
	l.Printf("rollback failed: %v", "boom")
	l.Debugf("debug %d", 1)

	entries := logs.All()
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, "closing connection ssh://u@h:22", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "warn", Format: "console", OutputPath: "stderr"})
	assert.Nil(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	l, err = New(Config{Level: "bogus"})
	assert.Nil(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}
