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

package reflect

import (
	"testing"
	"time"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/test/assert"
)

type retrySettings struct {
	Attempts int
}

type formTestConfiguration struct {
	Source     string `label:"Source" desc:"source path" required:"true"`
	Subfolders bool
	Timeout    time.Duration
	Options    map[string]string
	Patterns   []string
	Retry      retrySettings
	Internal   string `json:"-"`
	hidden     string
}

type formTestNode struct {
	Config formTestConfiguration
}

func (n *formTestNode) Type() string { return "test/form" }
func (n *formTestNode) New() types.Node {
	return &formTestNode{Config: formTestConfiguration{Source: "/in", Retry: retrySettings{Attempts: 3}}}
}
func (n *formTestNode) Init(types.Config, types.Configuration) error { return nil }
func (n *formTestNode) OnMsg(types.RuleContext, types.RuleMsg)       {}
func (n *formTestNode) Destroy()                                     {}
func (n *formTestNode) Desc() string                                 { return "form test" }

func TestGetComponentForm(t *testing.T) {
	form := GetComponentForm((&formTestNode{}).New())
	assert.Equal(t, "test/form", form.Type)
	assert.Equal(t, "formTestNode", form.Label)
	assert.Equal(t, "form test", form.Desc)
	assert.Equal(t, 6, len(form.Fields))

	source, ok := form.Fields.GetField("source")
	assert.True(t, ok)
	assert.Equal(t, "/in", source.DefaultValue)
	assert.Equal(t, "Source", source.Label)
	assert.True(t, source.Required)

	options, _ := form.Fields.GetField("options")
	assert.Equal(t, "map", options.Type)
	patterns, _ := form.Fields.GetField("patterns")
	assert.Equal(t, "array", patterns.Type)

	retry, _ := form.Fields.GetField("retry")
	assert.Equal(t, "struct", retry.Type)
	assert.Equal(t, 1, len(retry.Fields))
	assert.Equal(t, 3, retry.Fields[0].DefaultValue)

	_, ok = form.Fields.GetField("internal")
	assert.False(t, ok)
}
