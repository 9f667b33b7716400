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

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/str"
)

var _ types.NodeCtx = (*RuleNodeCtx)(nil)

// RuleNodeCtx 已初始化的节点实例以及它在描述文件中的定义
type RuleNodeCtx struct {
	types.Node
	SelfDefinition *types.RuleNode
	config         types.Config
}

// InitRuleNodeCtx 创建并初始化节点，初始化前把字符串设置中的 ${global.xx} 替换为全局属性
func InitRuleNodeCtx(config types.Config, selfDefinition *types.RuleNode) (*RuleNodeCtx, error) {
	if config.ComponentsRegistry == nil {
		return nil, fmt.Errorf("%w: registry is nil", types.ErrComponentNotFound)
	}
	node, err := config.ComponentsRegistry.NewNode(selfDefinition.Type)
	if err != nil {
		return nil, err
	}
	configuration := processVariables(config, selfDefinition.Configuration)
	if err = node.Init(config, configuration); err != nil {
		return nil, fmt.Errorf("init node %s(%s) failed: %w", selfDefinition.Id, selfDefinition.Type, err)
	}
	return &RuleNodeCtx{
		Node:           node,
		SelfDefinition: selfDefinition,
		config:         config,
	}, nil
}

func (rn *RuleNodeCtx) Config() types.Config {
	return rn.config
}

func (rn *RuleNodeCtx) IsDebugMode() bool {
	return rn.SelfDefinition.DebugMode
}

func (rn *RuleNodeCtx) GetNodeId() types.RuleNodeId {
	return types.RuleNodeId{Id: rn.SelfDefinition.Id, Type: types.NODE}
}

func (rn *RuleNodeCtx) DSL() []byte {
	if rn.config.Parser == nil {
		return nil
	}
	v, _ := rn.config.Parser.EncodeRuleNode(rn.SelfDefinition)
	return v
}

// processVariables 替换设置中的全局变量，返回新的设置，不修改原定义
func processVariables(config types.Config, configuration types.Configuration) types.Configuration {
	var result = make(types.Configuration, len(configuration))
	for key, value := range configuration {
		result[key] = processValue(config, value)
	}
	return result
}

func processValue(config types.Config, value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return str.SprintfVar(v, types.Global+".", config.Properties)
	case types.Configuration:
		return processVariables(config, v)
	case map[string]interface{}:
		return map[string]interface{}(processVariables(config, v))
	case []interface{}:
		var items = make([]interface{}, len(v))
		for i, item := range v {
			items[i] = processValue(config, item)
		}
		return items
	default:
		return value
	}
}
