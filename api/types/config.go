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

import "log"

// Config 引擎以及节点共享的配置
type Config struct {
	// 默认 engine.Registry
	ComponentsRegistry ComponentRegistry
	// 默认 JSON/YAML 解析器
	Parser Parser
	Logger Logger
	// 全局属性，初始化节点时替换字符串设置中的 ${global.key}，只替换一次
	Properties Metadata
	// AES-256 密钥，解密设置中加密保存的密码
	SecretKey string
	// 共享连接节点，其他节点通过 ref://id 引用
	NetPool NodePool
}

// NewConfig 创建默认配置并应用 opts
func NewConfig(opts ...Option) Config {
	c := Config{Logger: DefaultLogger(), Properties: NewMetadata()}
	for _, opt := range opts {
		_ = opt(&c)
	}
	return c
}

// Printf 零值 Config 时使用标准库 log
func (c Config) Printf(format string, v ...interface{}) {
	if c.Logger == nil {
		log.Printf(format, v...)
		return
	}
	c.Logger.Printf(format, v...)
}
