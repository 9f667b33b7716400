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

import "errors"

// 环境变量key，用于模板替换
const (
	IdKey       = "id"
	TsKey       = "ts"
	DataKey     = "data"
	MsgKey      = "msg"
	MetadataKey = "metadata"
	MsgTypeKey  = "msgType"
	TypeKey     = "type"
	DataTypeKey = "dataType"
)

const (
	// Global 全局属性前缀，节点配置可以通过 ${global.key} 引用
	Global = "global"
)

const (
	// NodeConfigurationPrefixInstanceId 从共享资源池获取实例的前缀，例如 ref://ftpConn
	NodeConfigurationPrefixInstanceId = "ref://"
)

const (
	// MetadataCount 输出行数
	MetadataCount = "count"
	// MetadataFailed 失败行数
	MetadataFailed = "failed"
)

var (
	// ErrFlowHasNoNodes is returned when the flow definition has no nodes.
	ErrFlowHasNoNodes = errors.New("the flow has no nodes")
	// ErrDslEmpty is returned when the flow dsl is empty.
	ErrDslEmpty = errors.New("dsl can not empty")
	// ErrComponentNotFound is returned when a node type is not registered.
	ErrComponentNotFound = errors.New("component not found")
	// ErrComponentExists is returned when a node type is registered twice.
	ErrComponentExists = errors.New("component already exists")
)
