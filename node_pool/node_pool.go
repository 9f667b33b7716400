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

// Package node_pool manages shared nodes, such as remote connection settings,
// that other nodes reference with ref://id.
package node_pool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/engine"
	"github.com/rulego/rulego-components-file/remote"
)

var (
	ErrNotImplemented = errors.New("not SharedNode")
	ErrNotConnection  = errors.New("shared node is not a connection")
)

var _ types.NodePool = (*NodePool)(nil)

// NodePool 共享节点池，节点在加载时初始化，Stop 时销毁
type NodePool struct {
	Config  types.Config
	mu      sync.RWMutex
	entries map[string]*sharedNodeCtx
}

func NewNodePool(config types.Config) *NodePool {
	return &NodePool{Config: config, entries: make(map[string]*sharedNodeCtx)}
}

// Load 加载流程描述文件中的 sharedNodes
func (n *NodePool) Load(dsl []byte) (types.NodePool, error) {
	def, err := n.Config.Parser.DecodeRuleChain(dsl)
	if err != nil {
		return nil, err
	}
	return n.LoadFromRuleChain(def)
}

// LoadFromRuleChain 加载流程定义中的共享节点，任意节点失败时返回错误，已加载的节点保留
func (n *NodePool) LoadFromRuleChain(def types.RuleChain) (types.NodePool, error) {
	for _, item := range def.Metadata.SharedNodes {
		if item == nil {
			continue
		}
		if _, err := n.NewFromRuleNode(*item); err != nil {
			return nil, fmt.Errorf("shared node %s: %w", item.Id, err)
		}
	}
	return n, nil
}

// NewFromRuleNode 创建并登记一个共享节点
func (n *NodePool) NewFromRuleNode(def types.RuleNode) (types.SharedNodeCtx, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.entries[def.Id]; ok {
		return nil, fmt.Errorf("duplicate node id:%s", def.Id)
	}
	ctx, err := engine.InitRuleNodeCtx(n.Config, &def)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Node.(types.SharedNode); !ok {
		ctx.Destroy()
		return nil, ErrNotImplemented
	}
	entry := &sharedNodeCtx{RuleNodeCtx: ctx}
	n.entries[def.Id] = entry
	return entry, nil
}

func (n *NodePool) Get(id string) (types.SharedNodeCtx, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	entry, ok := n.entries[id]
	if !ok {
		return nil, false
	}
	return entry, true
}

// GetInstance 获取共享节点实例，连接节点返回 *remote.Credentials
func (n *NodePool) GetInstance(id string) (interface{}, error) {
	entry, ok := n.Get(id)
	if !ok {
		return nil, fmt.Errorf("node resource not found id=%s", id)
	}
	return entry.GetInstance()
}

// Credentials 获取连接节点的凭证
func (n *NodePool) Credentials(id string) (*remote.Credentials, error) {
	instance, err := n.GetInstance(id)
	if err != nil {
		return nil, err
	}
	credentials, ok := instance.(*remote.Credentials)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnection, id)
	}
	return credentials, nil
}

// Del 删除并销毁共享节点
func (n *NodePool) Del(id string) {
	n.mu.Lock()
	entry, ok := n.entries[id]
	delete(n.entries, id)
	n.mu.Unlock()
	if ok {
		entry.Destroy()
	}
}

// Stop 销毁所有共享节点
func (n *NodePool) Stop() {
	for _, id := range n.ids() {
		n.Del(id)
	}
}

// GetAll 所有共享节点，按ID排序
func (n *NodePool) GetAll() []types.SharedNodeCtx {
	var items []types.SharedNodeCtx
	for _, id := range n.ids() {
		if entry, ok := n.Get(id); ok {
			items = append(items, entry)
		}
	}
	return items
}

func (n *NodePool) ids() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.entries))
	for id := range n.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type sharedNodeCtx struct {
	*engine.RuleNodeCtx
}

func (n *sharedNodeCtx) GetInstance() (interface{}, error) {
	return n.RuleNodeCtx.Node.(types.SharedNode).GetInstance()
}
