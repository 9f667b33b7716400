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

// Package base 组件公共工具：设置模板渲染、共享连接引用以及取消检查。
package base

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/rulego/rulego-components-file/utils/str"
)

var (
	ErrNetPoolNil    = errors.New("node pool is nil")
	ErrClientNotInit = errors.New("client not init")
)

var NodeUtils = &nodeUtils{}

type nodeUtils struct{}

// env 模板变量：msg、metadata、id、ts、type、dataType，metadata 的key同时展开到顶层
// 二进制消息不提供 msg 和 data
func env(msg types.RuleMsg) map[string]interface{} {
	vars := make(map[string]interface{}, len(msg.Metadata)+8)
	maps.Copy(vars, toAny(msg.Metadata))
	vars[types.IdKey] = msg.Id
	vars[types.TsKey] = msg.Ts
	vars[types.MetadataKey] = map[string]string(msg.Metadata)
	vars[types.MsgTypeKey] = msg.Type
	vars[types.TypeKey] = msg.Type
	vars[types.DataTypeKey] = string(msg.DataType)
	if msg.DataType == types.BINARY {
		return vars
	}
	vars[types.DataKey] = msg.Data
	vars[types.MsgKey] = msg.Data
	if msg.DataType == types.JSON {
		var parsed interface{}
		if json.Unmarshal([]byte(msg.Data), &parsed) == nil {
			vars[types.MsgKey] = parsed
		}
	}
	return vars
}

func toAny(metadata types.Metadata) map[string]interface{} {
	m := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		m[k] = v
	}
	return m
}

// Render 渲染路径、命令等设置，不包含变量时不解析消息
func (n *nodeUtils) Render(tmpl str.Template, _ types.RuleContext, msg types.RuleMsg) string {
	if tmpl == nil {
		return ""
	}
	return tmpl.ExecuteFn(func() map[string]any {
		return env(msg)
	})
}

// IsNetPool 是否引用共享节点，例如 ref://nas
func (n *nodeUtils) IsNetPool(resource string) bool {
	return strings.HasPrefix(resource, types.NodeConfigurationPrefixInstanceId)
}

// GetInstanceId 共享节点ID，不是引用时返回空
func (n *nodeUtils) GetInstanceId(resource string) string {
	id, _ := strings.CutPrefix(resource, types.NodeConfigurationPrefixInstanceId)
	if id == resource {
		return ""
	}
	return id
}

// CheckContext 已取消时返回带 operation 的错误
func (n *nodeUtils) CheckContext(ctx context.Context, operation string) error {
	if ctx == nil || ctx.Err() == nil {
		return nil
	}
	return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
}

// SharedNode 节点使用的共享实例，例如连接凭证
// resource 为 ref://id 时每次 Get 从共享池查找，否则由 newInstance 根据节点自身设置创建
type SharedNode[T any] struct {
	config      types.Config
	nodeType    string
	instanceId  string
	newInstance func() (T, error)
}

// Init initNow=true 时立即调用一次 newInstance 校验设置
func (x *SharedNode[T]) Init(ruleConfig types.Config, nodeType, resource string, initNow bool, newInstance func() (T, error)) error {
	x.config = ruleConfig
	x.nodeType = nodeType
	if id := NodeUtils.GetInstanceId(resource); id != "" {
		x.instanceId = id
		return nil
	}
	x.newInstance = newInstance
	if initNow && newInstance != nil {
		_, err := newInstance()
		return err
	}
	return nil
}

func (x *SharedNode[T]) IsFromPool() bool {
	return x.instanceId != ""
}

// GetInstance 实现 types.SharedNode
func (x *SharedNode[T]) GetInstance() (interface{}, error) {
	return x.Get()
}

func (x *SharedNode[T]) Get() (T, error) {
	var zero T
	switch {
	case x.instanceId != "":
		return x.fromPool()
	case x.newInstance != nil:
		return x.newInstance()
	default:
		return zero, ErrClientNotInit
	}
}

func (x *SharedNode[T]) fromPool() (T, error) {
	var zero T
	if x.config.NetPool == nil {
		return zero, ErrNetPoolNil
	}
	instance, err := x.config.NetPool.GetInstance(x.instanceId)
	if err != nil {
		return zero, err
	}
	v, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%s: shared node %s is %T, want %T", x.nodeType, x.instanceId, instance, zero)
	}
	return v, nil
}
