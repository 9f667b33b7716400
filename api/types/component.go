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

package types

import (
	"cmp"
	"slices"
	"sync"
)

// CategoryGetter 可选，覆盖按包路径推断的分类
type CategoryGetter interface {
	Category() string
}

// DescGetter 可选，组件说明
type DescGetter interface {
	Desc() string
}

// ComponentForm 节点设置说明，由节点 `Config` 字段生成，命令行 components 子命令输出
type ComponentForm struct {
	Type          string                 `json:"type"`
	Category      string                 `json:"category"`
	Label         string                 `json:"label"`
	Desc          string                 `json:"desc,omitempty"`
	Fields        ComponentFormFieldList `json:"fields"`
	RelationTypes []string               `json:"relationTypes"`
}

// ComponentFormField 单个设置项，label/desc/required 来自结构体tag
type ComponentFormField struct {
	Name string `json:"name"`
	// string、int、bool、map、array、struct 等
	Type string `json:"type"`
	// New() 返回的默认值
	DefaultValue interface{}            `json:"defaultValue"`
	Label        string                 `json:"label,omitempty"`
	Desc         string                 `json:"desc,omitempty"`
	Required     bool                   `json:"required"`
	Fields       ComponentFormFieldList `json:"fields,omitempty"`
}

type ComponentFormFieldList []ComponentFormField

func (c ComponentFormFieldList) GetField(name string) (ComponentFormField, bool) {
	i := slices.IndexFunc(c, func(f ComponentFormField) bool { return f.Name == name })
	if i < 0 {
		return ComponentFormField{}, false
	}
	return c[i], true
}

// ComponentFormList 按组件类型索引
type ComponentFormList map[string]ComponentForm

func (c ComponentFormList) GetComponent(componentType string) (ComponentForm, bool) {
	form, ok := c[componentType]
	return form, ok
}

// Values 按分类、类型排序
func (c ComponentFormList) Values() []ComponentForm {
	values := make([]ComponentForm, 0, len(c))
	for _, form := range c {
		values = append(values, form)
	}
	slices.SortFunc(values, func(a, b ComponentForm) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Type, b.Type))
	})
	return values
}

// SafeComponentSlice 包级组件列表，各组件在 init 中 Add
type SafeComponentSlice struct {
	mu    sync.Mutex
	nodes []Node
}

func (p *SafeComponentSlice) Add(nodes ...Node) {
	p.mu.Lock()
	p.nodes = append(p.nodes, nodes...)
	p.mu.Unlock()
}

// Components 返回副本
func (p *SafeComponentSlice) Components() []Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.nodes)
}
