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

// Template 路径、命令等设置，可以包含 ${metadata.key}、${msg.key} 变量
type Template interface {
	// ExecuteFn 替换变量，只有包含变量时才调用 loadDataFunc 加载环境
	ExecuteFn(loadDataFunc func() map[string]any) string
	// IsNotVar 不包含变量，原样输出
	IsNotVar() bool
	// String 原始设置
	String() string
}

// NewTemplate 解析设置，创建时检查一次是否包含变量
func NewTemplate(tmpl string) Template {
	return &settingTemplate{raw: tmpl, hasVar: CheckHasVar(tmpl)}
}

type settingTemplate struct {
	raw    string
	hasVar bool
}

func (t *settingTemplate) ExecuteFn(loadDataFunc func() map[string]any) string {
	if !t.hasVar {
		return t.raw
	}
	var data map[string]any
	if loadDataFunc != nil {
		data = loadDataFunc()
	}
	return ExecuteTemplate(t.raw, data)
}

func (t *settingTemplate) IsNotVar() bool {
	return !t.hasVar
}

func (t *settingTemplate) String() string {
	return t.raw
}
