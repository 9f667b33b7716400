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

// Package test 节点单元测试工具
package test

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/test/assert"
	reflect2 "github.com/rulego/rulego-components-file/utils/reflect"
)

// Result 节点输出记录
type Result struct {
	Msg          types.RuleMsg
	RelationType string
	Err          error
}

// findComponent 在组件列表中查找类型
func findComponent(registry *types.SafeComponentSlice, nodeType string) types.Node {
	for _, component := range registry.Components() {
		if component.Type() == nodeType {
			return component
		}
	}
	return nil
}

// CreateAndInitNode 创建并初始化一个节点实例
func CreateAndInitNode(targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	return CreateAndInitNodeWithConfig(types.NewConfig(), targetNodeType, initConfig, registry)
}

// CreateAndInitNodeWithConfig 使用指定引擎配置创建并初始化一个节点实例
func CreateAndInitNodeWithConfig(config types.Config, targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	factory := findComponent(registry, targetNodeType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrComponentNotFound, targetNodeType)
	}
	node := factory.New()
	return node, node.Init(config, initConfig)
}

// NodeNew 检查组件类型以及 New() 的默认设置，expected 的key为设置的json名称
func NodeNew(t *testing.T, targetNodeType string, targetNode types.Node, expected types.Configuration, registry *types.SafeComponentSlice) {
	factory := findComponent(registry, targetNode.Type())
	assert.NotNil(t, factory)
	if factory == nil {
		return
	}
	assert.Equal(t, targetNodeType, factory.Type())
	node := factory.New()
	assert.True(t, reflect.TypeOf(node) == reflect.TypeOf(targetNode), "New() returns %T, want %T", node, targetNode)
	assertFields(t, node, expected)
}

// NodeInit 检查 Init 后的设置
func NodeInit(t *testing.T, targetNodeType string, initConfig types.Configuration, expected types.Configuration, registry *types.SafeComponentSlice) {
	node, err := CreateAndInitNode(targetNodeType, initConfig, registry)
	assert.Nil(t, err)
	if err != nil {
		return
	}
	assertFields(t, node, expected)
}

// assertFields 比较节点表单中字段的当前值
func assertFields(t *testing.T, node types.Node, expected types.Configuration) {
	values := make(map[string]interface{})
	for _, field := range reflect2.GetComponentForm(node).Fields {
		values[field.Name] = field.DefaultValue
	}
	for name, want := range expected {
		got, ok := values[name]
		assert.True(t, ok, "field %s not found", name)
		assert.Equal(t, want, got, "field %s", name)
	}
}

// OnMsg 同步执行节点并返回所有输出
func OnMsg(config types.Config, node types.Node, msg types.RuleMsg) []Result {
	return OnMsgWithContext(context.Background(), config, node, msg)
}

// OnMsgWithContext 使用指定上下文执行节点，用于测试取消
func OnMsgWithContext(ctx context.Context, config types.Config, node types.Node, msg types.RuleMsg) []Result {
	var results []Result
	ruleCtx := NewRuleContext(config, func(msg types.RuleMsg, relationType string, err error) {
		results = append(results, Result{Msg: msg, RelationType: relationType, Err: err})
	})
	node.OnMsg(ruleCtx.SetContext(ctx), msg)
	return results
}
