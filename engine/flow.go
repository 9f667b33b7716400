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

// Package engine parses flow definitions, creates their nodes and executes
// messages through them synchronously.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/metrics"
	"github.com/rulego/rulego-components-file/utils/str"
)

// Flow 流程实例，由多个节点以及节点之间的关系组成
type Flow struct {
	id        string
	config    types.Config
	def       *types.RuleChain
	nodes     map[string]*RuleNodeCtx
	nodeOrder []string
	//fromId -> relationType -> []toId
	relations map[string]map[string][]string
	firstNode *RuleNodeCtx
	destroyed sync.Once
}

// New 通过流程描述文件（json或者yaml）创建流程实例
func New(id string, dsl []byte, opts ...types.Option) (*Flow, error) {
	if len(dsl) == 0 {
		return nil, types.ErrDslEmpty
	}
	config := NewConfig(opts...)
	def, err := config.Parser.DecodeRuleChain(dsl)
	if err != nil {
		return nil, err
	}
	return NewFromDef(id, def, config)
}

// NewFromDef 通过流程定义创建流程实例
func NewFromDef(id string, def types.RuleChain, config types.Config) (*Flow, error) {
	if config.ComponentsRegistry == nil {
		config.ComponentsRegistry = Registry
	}
	if config.Parser == nil {
		config.Parser = &DefaultParser{}
	}
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if len(def.Metadata.Nodes) == 0 {
		return nil, types.ErrFlowHasNoNodes
	}
	if id == "" {
		id = def.RuleChain.ID
	}
	if id == "" {
		id = def.RuleChain.Name
	}
	config.Properties = mergeProperties(config.Properties, def.RuleChain.Configuration)

	if len(def.Metadata.SharedNodes) > 0 {
		if config.NetPool == nil {
			return nil, fmt.Errorf("flow %s declares shared nodes but no node pool is configured", id)
		}
		if _, err := config.NetPool.LoadFromRuleChain(def); err != nil {
			return nil, err
		}
	}

	flow := &Flow{
		id:        id,
		config:    config,
		def:       &def,
		nodes:     make(map[string]*RuleNodeCtx),
		relations: make(map[string]map[string][]string),
	}
	for _, item := range def.Metadata.Nodes {
		if item == nil {
			continue
		}
		if item.Id == "" {
			flow.Destroy()
			return nil, fmt.Errorf("node of type %s has no id", item.Type)
		}
		if _, ok := flow.nodes[item.Id]; ok {
			flow.Destroy()
			return nil, fmt.Errorf("duplicate node id %s", item.Id)
		}
		if def.RuleChain.DebugMode {
			item.DebugMode = true
		}
		nodeCtx, err := InitRuleNodeCtx(config, item)
		if err != nil {
			flow.Destroy()
			return nil, err
		}
		flow.nodes[item.Id] = nodeCtx
		flow.nodeOrder = append(flow.nodeOrder, item.Id)
	}
	for _, conn := range def.Metadata.Connections {
		if _, ok := flow.nodes[conn.FromId]; !ok {
			flow.Destroy()
			return nil, fmt.Errorf("connection from unknown node %s", conn.FromId)
		}
		if _, ok := flow.nodes[conn.ToId]; !ok {
			flow.Destroy()
			return nil, fmt.Errorf("connection to unknown node %s", conn.ToId)
		}
		routes, ok := flow.relations[conn.FromId]
		if !ok {
			routes = make(map[string][]string)
			flow.relations[conn.FromId] = routes
		}
		routes[conn.Type] = append(routes[conn.Type], conn.ToId)
	}
	index := def.Metadata.FirstNodeIndex
	if index < 0 || index >= len(flow.nodeOrder) {
		flow.Destroy()
		return nil, fmt.Errorf("firstNodeIndex %d out of range", index)
	}
	flow.firstNode = flow.nodes[flow.nodeOrder[index]]
	return flow, nil
}

// mergeProperties 流程配置作为全局属性，不覆盖引擎配置中已有的属性
func mergeProperties(properties types.Metadata, configuration types.Configuration) types.Metadata {
	merged := types.NewMetadata()
	for k, v := range configuration {
		merged.PutValue(k, str.ToString(v))
	}
	for k, v := range properties {
		merged.PutValue(k, v)
	}
	return merged
}

// Id 流程ID
func (f *Flow) Id() string {
	return f.id
}

// Config 流程配置
func (f *Flow) Config() types.Config {
	return f.config
}

// Definition 流程定义
func (f *Flow) Definition() *types.RuleChain {
	return f.def
}

// DSL 流程描述文件
func (f *Flow) DSL() []byte {
	v, _ := f.config.Parser.EncodeRuleChain(f.def)
	return v
}

// GetNode 通过节点ID获取节点
func (f *Flow) GetNode(id string) (*RuleNodeCtx, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Execute 把消息交给第一个节点同步执行，返回所有分支的结束结果
// ctx 取消后，尚未执行的节点以 Failure 结束
func (f *Flow) Execute(ctx context.Context, msg types.RuleMsg) []types.WrapperMsg {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ends := &endCollector{}
	f.executeNode(ctx, f.firstNode, msg, ends)
	metrics.RecordFlowExecution(f.id, time.Since(start))
	return ends.results
}

func (f *Flow) executeNode(ctx context.Context, node *RuleNodeCtx, msg types.RuleMsg, ends *endCollector) {
	nodeId := node.SelfDefinition.Id
	if err := ctx.Err(); err != nil {
		ends.add(msg, err, types.Failure, nodeId)
		return
	}
	if node.IsDebugMode() {
		f.config.Printf("[%s] IN node=%s type=%s msgId=%s data=%s", f.id, nodeId, node.Type(), msg.Id, debugData(msg))
	}
	ruleCtx := &DefaultRuleContext{
		context: ctx,
		flow:    f,
		self:    node,
		ends:    ends,
	}
	defer func() {
		if e := recover(); e != nil {
			ends.add(msg, fmt.Errorf("node %s panic: %v", nodeId, e), types.Failure, nodeId)
		}
	}()
	node.OnMsg(ruleCtx, msg)
}

func (f *Flow) nextNodes(fromId, relationType string) []*RuleNodeCtx {
	var nodes []*RuleNodeCtx
	for _, id := range f.relations[fromId][relationType] {
		nodes = append(nodes, f.nodes[id])
	}
	return nodes
}

// Destroy 销毁所有节点
func (f *Flow) Destroy() {
	f.destroyed.Do(func() {
		for _, id := range f.nodeOrder {
			f.nodes[id].Destroy()
		}
	})
}

func debugData(msg types.RuleMsg) string {
	if msg.DataType == types.BINARY {
		return fmt.Sprintf("<%d bytes>", len(msg.Data))
	}
	return msg.Data
}

type endCollector struct {
	results []types.WrapperMsg
}

func (c *endCollector) add(msg types.RuleMsg, err error, relationType, nodeId string) {
	w := types.WrapperMsg{Msg: msg, RelationType: relationType, NodeId: nodeId}
	if err != nil {
		w.Err = err.Error()
	}
	c.results = append(c.results, w)
}
