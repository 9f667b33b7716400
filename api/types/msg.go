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

import (
	"encoding/base64"
	"maps"
	"time"

	"github.com/gofrs/uuid/v5"
)

// DataType 消息负载格式
type DataType string

const (
	JSON   = DataType("JSON")
	TEXT   = DataType("TEXT")
	BINARY = DataType("BINARY")
)

// Metadata 消息元数据，文件节点把路径、大小、状态等结果写到这里
type Metadata map[string]string

func NewMetadata() Metadata {
	return Metadata{}
}

// BuildMetadata 复制 data 作为新的元数据
func BuildMetadata(data map[string]string) Metadata {
	md := make(Metadata, len(data))
	maps.Copy(md, data)
	return md
}

func (md Metadata) Copy() Metadata {
	return BuildMetadata(md)
}

func (md Metadata) Has(key string) bool {
	_, ok := md[key]
	return ok
}

func (md Metadata) GetValue(key string) string {
	return md[key]
}

// PutValue 空key忽略
func (md Metadata) PutValue(key, value string) {
	if key == "" {
		return
	}
	md[key] = value
}

func (md Metadata) Values() map[string]string {
	return md
}

// RuleMsg 节点之间传递的消息
type RuleMsg struct {
	Ts       int64    `json:"ts"`
	Id       string   `json:"id"`
	DataType DataType `json:"dataType"`
	Type     string   `json:"type"`
	// BINARY 时保存原始字节
	Data     string   `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// NewMsg 创建消息，ts<=0 使用当前时间，ID 使用 uuid v4
func NewMsg(ts int64, msgType string, dataType DataType, metaData Metadata, data string) RuleMsg {
	msg := RuleMsg{Ts: ts, Type: msgType, DataType: dataType, Data: data, Metadata: metaData}
	if msg.Ts <= 0 {
		msg.Ts = time.Now().UnixMilli()
	}
	if id, err := uuid.NewV4(); err == nil {
		msg.Id = id.String()
	}
	if msg.Metadata == nil {
		msg.Metadata = NewMetadata()
	}
	return msg
}

// Copy 复制消息，元数据深拷贝，ID 不变
func (m *RuleMsg) Copy() RuleMsg {
	c := *m
	c.Metadata = m.Metadata.Copy()
	return c
}

func (m *RuleMsg) GetBytes() []byte {
	return []byte(m.Data)
}

// SetBytes 设置二进制负载
func (m *RuleMsg) SetBytes(b []byte) {
	m.Data, m.DataType = string(b), BINARY
}

// DataBase64 负载的base64编码，JSON 输出二进制消息时使用
func (m *RuleMsg) DataBase64() string {
	return base64.StdEncoding.EncodeToString(m.GetBytes())
}

// WrapperMsg 流程执行到末端节点的结果
type WrapperMsg struct {
	Msg RuleMsg `json:"msg"`
	// 失败原因，成功为空
	Err          string `json:"err"`
	RelationType string `json:"relationType"`
	NodeId       string `json:"nodeId"`
}
