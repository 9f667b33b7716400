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

package engine

import (
	"fmt"
	"maps"
	"sync"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/file"
	"github.com/rulego/rulego-components-file/components/remote"
	"github.com/rulego/rulego-components-file/utils/reflect"
)

// Registry 默认注册表，包含 file/* 和 remote/* 全部节点
var Registry = NewRegistry(append(file.Registry.Components(), remote.Registry.Components()...)...)

var _ types.ComponentRegistry = (*RuleComponentRegistry)(nil)

// RuleComponentRegistry 按 Type() 索引的节点原型，NewNode 通过原型的 New() 创建实例
type RuleComponentRegistry struct {
	mu         sync.RWMutex
	prototypes map[string]types.Node
}

// NewRegistry 创建注册表，重复类型忽略
func NewRegistry(nodes ...types.Node) *RuleComponentRegistry {
	r := &RuleComponentRegistry{}
	for _, node := range nodes {
		_ = r.Register(node)
	}
	return r
}

func (r *RuleComponentRegistry) Register(node types.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prototypes == nil {
		r.prototypes = make(map[string]types.Node)
	}
	if _, ok := r.prototypes[node.Type()]; ok {
		return fmt.Errorf("%w: %s", types.ErrComponentExists, node.Type())
	}
	r.prototypes[node.Type()] = node
	return nil
}

func (r *RuleComponentRegistry) Unregister(componentType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prototypes[componentType]; !ok {
		return fmt.Errorf("%w: %s", types.ErrComponentNotFound, componentType)
	}
	delete(r.prototypes, componentType)
	return nil
}

func (r *RuleComponentRegistry) NewNode(componentType string) (types.Node, error) {
	r.mu.RLock()
	prototype, ok := r.prototypes[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrComponentNotFound, componentType)
	}
	return prototype.New(), nil
}

// GetComponents 注册组件的副本
func (r *RuleComponentRegistry) GetComponents() map[string]types.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.prototypes)
}

// GetComponentForms 所有组件的设置说明
func (r *RuleComponentRegistry) GetComponentForms() types.ComponentFormList {
	forms := make(types.ComponentFormList)
	for componentType, node := range r.GetComponents() {
		forms[componentType] = reflect.GetComponentForm(node)
	}
	return forms
}
