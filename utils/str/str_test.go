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

package str

import (
	"testing"

	"github.com/rulego/rulego-components-file/test/assert"
)

func TestExecuteTemplate(t *testing.T) {
	dict := map[string]interface{}{
		"metadata": map[string]string{"dir": "/data/in"},
		"msg":      map[string]interface{}{"name": "a.csv", "size": float64(12)},
	}
	assert.Equal(t, "/data/in/a.csv", ExecuteTemplate("${metadata.dir}/${ msg.name }", dict))
	assert.Equal(t, "12", ExecuteTemplate("${msg.size}", dict))
	assert.Equal(t, "${msg.missing}", ExecuteTemplate("${msg.missing}", dict))
	assert.True(t, CheckHasVar("a${b}"))
	assert.False(t, CheckHasVar("/tmp/a"))
}

func TestSprintfVar(t *testing.T) {
	props := map[string]string{"host": "files.example.com"}
	assert.Equal(t, "sftp://files.example.com/in", SprintfVar("sftp://${global.host}/in", "global.", props))
	assert.Equal(t, "${vars.host}", SprintfVar("${vars.host}", "global.", props))
}

func TestTemplate(t *testing.T) {
	tmpl := NewTemplate("/out/${metadata.day}")
	assert.False(t, tmpl.IsNotVar())
	assert.Equal(t, "/out/mon", tmpl.ExecuteFn(func() map[string]any {
		return map[string]any{"metadata": map[string]string{"day": "mon"}}
	}))
	plain := NewTemplate("/out")
	assert.True(t, plain.IsNotVar())
	assert.Equal(t, "/out", plain.ExecuteFn(nil))
	assert.Equal(t, "/out/${metadata.day}", tmpl.String())
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'/tmp/a b'`, ShellQuote("/tmp/a b"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "42", ToString(int64(42)))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, `{"a":1}`, ToString(map[string]int{"a": 1}))
	assert.Equal(t, "a${b", ExecuteTemplate("a${b", nil))
	assert.Equal(t, "${}", ExecuteTemplate("${}", map[string]interface{}{"": "x"}))
}
