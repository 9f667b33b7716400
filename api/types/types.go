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

// Package types defines the node contract shared by the flow engine and the
// file handling components: node lifecycle, messages, settings and registries.
package types

import (
	"context"
)

// 节点之间的连接关系
const (
	Success = "Success"
	Failure = "Failure"
	True    = "True"
	False   = "False"
)

// Configuration 节点设置，New() 的 Config 字段通过 maps.Map2Struct 从这里填充
type Configuration map[string]interface{}

// ComponentRegistry 按类型创建节点实例
type ComponentRegistry interface {
	// Register 类型已存在返回 ErrComponentExists
	Register(node Node) error
	Unregister(componentType string) error
	NewNode(nodeType string) (Node, error)
	GetComponents() map[string]Node
	// GetComponentForms 节点设置说明
	GetComponentForms() ComponentFormList
}

// Node 文件处理节点
// Init 校验设置，返回错误表示设置无效；OnMsg 处理一条消息，
// 结束时必须调用 TellSuccess、TellFailure 或 TellNext 之一；Destroy 释放资源。
// 流程中每个节点都是独立实例。
type Node interface {
	New() Node
	// Type 全局唯一，使用 / 区分命名空间，例如 file/copyOrMove
	Type() string
	Init(ruleConfig Config, configuration Configuration) error
	OnMsg(ctx RuleContext, msg RuleMsg)
	Destroy()
}

// NodeCtx 已初始化的节点以及它的定义
type NodeCtx interface {
	Node
	Config() Config
	GetNodeId() RuleNodeId
	// DSL 节点定义
	DSL() []byte
}

// RuleContext 节点处理消息时的上下文，负责把消息路由到下一个节点
type RuleContext interface {
	TellSuccess(msg RuleMsg)
	// TellFailure 错误信息写入结果的 Err
	TellFailure(msg RuleMsg, err error)
	TellNext(msg RuleMsg, relationTypes ...string)
	NewMsg(msgType string, metaData Metadata, data string) RuleMsg
	GetSelfId() string
	Config() Config
	// SetContext 替换 context，长时间的复制、上传在取消时中止
	SetContext(c context.Context) RuleContext
	GetContext() context.Context
}

// Parser 流程描述文件编解码，JSON 或 YAML
type Parser interface {
	DecodeRuleChain(dsl []byte) (RuleChain, error)
	DecodeRuleNode(dsl []byte) (RuleNode, error)
	EncodeRuleChain(def interface{}) ([]byte, error)
	EncodeRuleNode(def interface{}) ([]byte, error)
}
