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

// SharedNode 可以被其他节点引用的节点，例如 remote/connection 提供连接凭证
type SharedNode interface {
	Node
	GetInstance() (interface{}, error)
}

// SharedNodeCtx 共享池中已初始化的共享节点
type SharedNodeCtx interface {
	NodeCtx
	GetInstance() (interface{}, error)
}

// NodePool 共享节点池，流程中的 ref://id 从这里解析
type NodePool interface {
	// Load 加载描述文件 metadata.sharedNodes 中的节点
	Load(dsl []byte) (NodePool, error)
	LoadFromRuleChain(def RuleChain) (NodePool, error)
	// NewFromRuleNode ID 重复或者节点不是 SharedNode 时返回错误
	NewFromRuleNode(def RuleNode) (SharedNodeCtx, error)
	Get(id string) (SharedNodeCtx, bool)
	GetInstance(id string) (interface{}, error)
	// Del 删除并销毁
	Del(id string)
	// Stop 销毁全部
	Stop()
	GetAll() []SharedNodeCtx
}
