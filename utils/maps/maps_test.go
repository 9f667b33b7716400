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

package maps

import (
	"testing"
	"time"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/test/assert"
)

type settings struct {
	Source          string
	OverwritePolicy string
	Port            int
	Subfolders      bool
	Timeout         time.Duration
	Extensions      []string
}

func TestMap2Struct(t *testing.T) {
	var s settings
	err := Map2Struct(map[string]interface{}{
		"source":          "/tmp/in",
		"overwritepolicy": "ignore",
		"port":            float64(22),
		"subfolders":      "true",
		"timeout":         "5s",
		"extensions":      "csv,txt",
	}, &s)
	assert.Nil(t, err)
	assert.Equal(t, "/tmp/in", s.Source)
	assert.Equal(t, "ignore", s.OverwritePolicy)
	assert.Equal(t, 22, s.Port)
	assert.True(t, s.Subfolders)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, []string{"csv", "txt"}, s.Extensions)

	err = Map2Struct(types.Configuration{"port": "abc"}, &s)
	assert.NotNil(t, err)

	err = Map2Struct(map[string]interface{}{"timeout": "5invalid"}, &s)
	assert.NotNil(t, err)

	var nilInput settings
	err = Map2Struct(nil, &nilInput)
	assert.Nil(t, err)
	assert.Equal(t, "", nilInput.Source)
}

func TestGet(t *testing.T) {
	dict := map[string]interface{}{
		"msg": map[string]interface{}{
			"file": map[string]interface{}{"name": "a.csv"},
		},
		"metadata": types.Metadata{"dir": "/data"},
		"plain":    map[string]string{"k": "v"},
	}
	assert.Equal(t, "a.csv", Get(dict, "msg.file.name"))
	assert.Equal(t, "/data", Get(dict, "metadata.dir"))
	assert.Equal(t, "v", Get(dict, "plain.k"))
	assert.Nil(t, Get(dict, "msg.file.size"))
	assert.Nil(t, Get(nil, "a"))
}
