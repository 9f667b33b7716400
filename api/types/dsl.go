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

// RuleChain 流程定义
type RuleChain struct {
	//流程基础信息定义
	RuleChain RuleChainBaseInfo `json:"ruleChain" yaml:"ruleChain"`
	//包含了流程中节点和连接的信息
	Metadata RuleMetadata `json:"metadata" yaml:"metadata"`
}

// RuleChainBaseInfo 流程基础信息定义
type RuleChainBaseInfo struct {
	//流程ID
	ID string `json:"id" yaml:"id"`
	//Name 流程的名称
	Name string `json:"name" yaml:"name"`
	//DebugMode 调试模式，打印每个节点的输入输出
	DebugMode bool `json:"debugMode" yaml:"debugMode"`
	//Configuration 流程配置信息，作为全局属性合并到 ${global.xx}
	Configuration Configuration `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	//扩展字段
	AdditionalInfo map[string]string `json:"additionalInfo,omitempty" yaml:"additionalInfo,omitempty"`
}

// RuleMetadata 流程元数据定义，包含了流程中节点和连接的信息
type RuleMetadata struct {
	//数据流转的第一个节点，默认:0
	FirstNodeIndex int `json:"firstNodeIndex" yaml:"firstNodeIndex"`
	//节点组件定义
	Nodes []*RuleNode `json:"nodes" yaml:"nodes"`
	//连接定义
	Connections []NodeConnection `json:"connections" yaml:"connections"`
	//共享节点定义，例如远程连接节点，通过 ref://id 引用
	SharedNodes []*RuleNode `json:"sharedNodes,omitempty" yaml:"sharedNodes,omitempty"`
}

// RuleNode 节点信息定义
type RuleNode struct {
	//节点的唯一标识符
	Id string `json:"id" yaml:"id"`
	//节点的类型，应该与注册的节点类型之一匹配
	Type string `json:"type" yaml:"type"`
	//节点的名称
	Name string `json:"name" yaml:"name"`
	//调试模式
	DebugMode bool `json:"debugMode" yaml:"debugMode"`
	//节点设置，具体内容取决于节点类型
	Configuration Configuration `json:"configuration" yaml:"configuration"`
}

// NodeConnection 节点连接定义
type NodeConnection struct {
	//连接的源节点的id
	FromId string `json:"fromId" yaml:"fromId"`
	//连接的目标节点的id
	ToId string `json:"toId" yaml:"toId"`
	//连接的类型，例如 Success/Failure
	Type string `json:"type" yaml:"type"`
}

// RuleNodeId 节点ID
type RuleNodeId struct {
	//节点ID
	Id string
	//节点类型
	Type ComponentType
}

// ComponentType 组件类型：节点或者流程
type ComponentType int

const (
	NODE ComponentType = iota
	CHAIN
)
