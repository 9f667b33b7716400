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

package test

import (
	"context"

	"github.com/rulego/rulego-components-file/api/types"
)

var _ types.RuleContext = (*NodeTestRuleContext)(nil)

// OutputHandler 节点输出回调：消息、关系和失败原因
type OutputHandler func(msg types.RuleMsg, relationType string, err error)

// NodeTestRuleContext 单节点测试上下文，节点的每个输出都交给 handler，不会路由到其他节点
type NodeTestRuleContext struct {
	ctx     context.Context
	config  types.Config
	selfId  string
	handler OutputHandler
}

func NewRuleContext(config types.Config, callback func(msg types.RuleMsg, relationType string, err error)) types.RuleContext {
	return NewRuleContextWithId(config, "", callback)
}

// NewRuleContextWithId 创建指定节点ID的测试上下文
func NewRuleContextWithId(config types.Config, selfId string, callback func(msg types.RuleMsg, relationType string, err error)) types.RuleContext {
	return &NodeTestRuleContext{ctx: context.Background(), config: config, selfId: selfId, handler: callback}
}

func (x *NodeTestRuleContext) output(msg types.RuleMsg, relationType string, err error) {
	if x.handler != nil {
		x.handler(msg, relationType, err)
	}
}

func (x *NodeTestRuleContext) TellSuccess(msg types.RuleMsg) {
	x.output(msg, types.Success, nil)
}

func (x *NodeTestRuleContext) TellFailure(msg types.RuleMsg, err error) {
	x.output(msg, types.Failure, err)
}

func (x *NodeTestRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	for _, relationType := range relationTypes {
		x.output(msg, relationType, nil)
	}
}

func (x *NodeTestRuleContext) NewMsg(msgType string, metaData types.Metadata, data string) types.RuleMsg {
	return types.NewMsg(0, msgType, types.JSON, metaData, data)
}

func (x *NodeTestRuleContext) GetSelfId() string {
	return x.selfId
}

func (x *NodeTestRuleContext) Config() types.Config {
	return x.config
}

// SetContext 替换上下文，用于测试取消
func (x *NodeTestRuleContext) SetContext(c context.Context) types.RuleContext {
	if c != nil {
		x.ctx = c
	}
	return x
}

func (x *NodeTestRuleContext) GetContext() context.Context {
	return x.ctx
}
