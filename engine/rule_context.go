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
	"context"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/metrics"
)

var _ types.RuleContext = (*DefaultRuleContext)(nil)

// DefaultRuleContext 默认消息处理上下文，在当前协程同步执行后续节点
type DefaultRuleContext struct {
	context context.Context
	flow    *Flow
	self    *RuleNodeCtx
	ends    *endCollector
}

func (ctx *DefaultRuleContext) TellSuccess(msg types.RuleMsg) {
	ctx.tellNext(msg, nil, types.Success)
}

func (ctx *DefaultRuleContext) TellFailure(msg types.RuleMsg, err error) {
	ctx.tellNext(msg, err, types.Failure)
}

func (ctx *DefaultRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	for _, relationType := range relationTypes {
		ctx.tellNext(msg, nil, relationType)
	}
}

func (ctx *DefaultRuleContext) tellNext(msg types.RuleMsg, err error, relationType string) {
	selfId := ctx.self.SelfDefinition.Id
	metrics.RecordNodeExecution(ctx.self.Type(), relationType)
	if ctx.self.IsDebugMode() {
		errStr := ""
		if err != nil {
			errStr = err.Error()
		}
		ctx.flow.config.Printf("[%s] OUT node=%s relation=%s msgId=%s data=%s err=%s", ctx.flow.id, selfId, relationType, msg.Id, debugData(msg), errStr)
	}
	nextNodes := ctx.flow.nextNodes(selfId, relationType)
	if len(nextNodes) == 0 {
		ctx.ends.add(msg, err, relationType, selfId)
		return
	}
	for _, next := range nextNodes {
		m := msg
		if len(nextNodes) > 1 {
			m = msg.Copy()
		}
		ctx.flow.executeNode(ctx.context, next, m, ctx.ends)
	}
}

func (ctx *DefaultRuleContext) NewMsg(msgType string, metaData types.Metadata, data string) types.RuleMsg {
	return types.NewMsg(0, msgType, types.JSON, metaData, data)
}

func (ctx *DefaultRuleContext) GetSelfId() string {
	return ctx.self.SelfDefinition.Id
}

func (ctx *DefaultRuleContext) Config() types.Config {
	return ctx.flow.config
}

func (ctx *DefaultRuleContext) SetContext(c context.Context) types.RuleContext {
	ctx.context = c
	return ctx
}

func (ctx *DefaultRuleContext) GetContext() context.Context {
	return ctx.context
}
