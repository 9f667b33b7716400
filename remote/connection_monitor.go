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

package remote

import (
	"net/url"

	"github.com/rulego/rulego-components-file/api/types"
)

// ConnectionMonitor 单次节点执行内的连接缓存
// 每个连接标识（scheme://user@host:port）最多保留一个连接。
// 不支持并发访问，节点在 OnMsg 中创建，并在 defer 中调用 CloseConnections
type ConnectionMonitor struct {
	logger      types.Logger
	connections map[string]Connection
	//注册顺序，关闭时按顺序关闭
	order []string
}

// NewConnectionMonitor 创建连接缓存，logger 为 nil 时不打印关闭日志
func NewConnectionMonitor(logger types.Logger) *ConnectionMonitor {
	return &ConnectionMonitor{
		logger:      logger,
		connections: make(map[string]Connection),
	}
}

// GetConnection 获取该URI对应的连接，不存在返回nil
func (m *ConnectionMonitor) GetConnection(u *url.URL) Connection {
	if m == nil || u == nil {
		return nil
	}
	return m.connections[Identifier(u)]
}

// RegisterConnection 注册连接，同标识的旧连接被关闭后替换
func (m *ConnectionMonitor) RegisterConnection(u *url.URL, conn Connection) {
	if m == nil || u == nil {
		return
	}
	id := Identifier(u)
	old, ok := m.connections[id]
	if !ok {
		m.order = append(m.order, id)
	}
	m.connections[id] = conn
	if ok && old != nil && old != conn {
		m.close(id, old)
	}
}

// Len 已注册连接数
func (m *ConnectionMonitor) Len() int {
	if m == nil {
		return 0
	}
	return len(m.connections)
}

// CloseConnections 关闭所有连接，忽略关闭错误，并清空缓存
func (m *ConnectionMonitor) CloseConnections() {
	if m == nil {
		return
	}
	for _, id := range m.order {
		conn, ok := m.connections[id]
		if !ok || conn == nil {
			continue
		}
		m.close(id, conn)
	}
	m.connections = make(map[string]Connection)
	m.order = nil
}

func (m *ConnectionMonitor) close(id string, conn Connection) {
	if m.logger != nil {
		m.logger.Printf("closing connection %s", id)
	}
	if err := conn.Close(); err != nil && m.logger != nil {
		m.logger.Printf("close connection %s error: %v", id, err)
	}
}
