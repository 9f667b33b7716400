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
	"testing"
	"time"

	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/test/assert"
)

func TestTargetPath(t *testing.T) {
	tests := []struct {
		handling PathHandling
		source   string
		prefix   string
		expected string
		err      error
	}{
		{OnlyFilename, "/data/in/a.txt", "", "/out/a.txt", nil},
		{FullPath, "/data/in/a.txt", "", "/out/data/in/a.txt", nil},
		{FullPath, "/C:/data/a.txt", "", "/out/C/data/a.txt", nil},
		{TruncatePrefix, "/data/in/sub/a.txt", "/data/in", "/out/sub/a.txt", nil},
		{TruncatePrefix, "/data/in/a.txt", "/data/in/", "/out/a.txt", nil},
		{TruncatePrefix, "/data/in/a.txt", "/", "/out/data/in/a.txt", nil},
		{TruncatePrefix, "/data/in/a.txt", "/data/i", "", ErrPrefixMismatch},
		{TruncatePrefix, "/data/in/a.txt", "/other", "", ErrPrefixMismatch},
		{PathHandling("x"), "/a", "", "", ErrUnknownPathHandling},
	}
	for _, tt := range tests {
		actual, err := TargetPath("/out", tt.source, tt.handling, tt.prefix)
		if tt.err != nil {
			assert.True(t, errors.Is(err, tt.err), tt.source)
			continue
		}
		assert.Nil(t, err)
		assert.Equal(t, tt.expected, actual)
	}
}

func TestParseSettings(t *testing.T) {
	p, err := ParseOverwritePolicy("OVERWRITEIFNEWER")
	assert.Nil(t, err)
	assert.Equal(t, OverwriteIfNewer, p)
	p, err = ParseOverwritePolicy("abort")
	assert.Nil(t, err)
	assert.Equal(t, Fail, p)
	_, err = ParseOverwritePolicy("merge")
	assert.True(t, errors.Is(err, ErrUnknownOverwritePolicy))

	h, err := ParsePathHandling("truncateprefix")
	assert.Nil(t, err)
	assert.Equal(t, TruncatePrefix, h)
	h, err = ParsePathHandling("")
	assert.Nil(t, err)
	assert.Equal(t, OnlyFilename, h)
	_, err = ParsePathHandling("x")
	assert.True(t, errors.Is(err, ErrUnknownPathHandling))
}

func TestFilter(t *testing.T) {
	info := &remote.FileInfo{FileName: "report-2024.csv", FileSize: 2048, FileModTime: time.Now()}

	f, err := NewFilter(false, FilterRegex, "(")
	assert.Nil(t, err)
	ok, err := f.Match("/a/report-2024.csv", info)
	assert.Nil(t, err)
	assert.True(t, ok)

	f, err = NewFilter(true, "", "report-*.csv")
	assert.Nil(t, err)
	ok, _ = f.Match("/a/report-2024.csv", info)
	assert.True(t, ok)
	ok, _ = f.Match("/a/report-2024.csv", &remote.FileInfo{FileName: "report.txt"})
	assert.False(t, ok)

	f, err = NewFilter(true, FilterRegex, `report-\d+\.csv`)
	assert.Nil(t, err)
	ok, _ = f.Match("", info)
	assert.True(t, ok)
	ok, _ = f.Match("", &remote.FileInfo{FileName: "xreport-1.csv"})
	assert.False(t, ok)

	f, err = NewFilter(true, FilterExpression, `ext == "csv" && size > 1024 && path startsWith "/a/"`)
	assert.Nil(t, err)
	ok, err = f.Match("/a/report-2024.csv", info)
	assert.Nil(t, err)
	assert.True(t, ok)
	ok, _ = f.Match("/b/report-2024.csv", info)
	assert.False(t, ok)

	_, err = NewFilter(true, FilterRegex, "(")
	assert.NotNil(t, err)
	_, err = NewFilter(true, FilterWildcard, "[")
	assert.NotNil(t, err)
	_, err = NewFilter(true, FilterExpression, "size >")
	assert.NotNil(t, err)
	_, err = NewFilter(true, "glob", "*")
	assert.True(t, errors.Is(err, ErrUnknownFilterType))
}
