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

import "maps"

// Option 修改引擎配置
type Option func(*Config) error

// WithComponentsRegistry 使用自定义节点注册表，默认 engine.Registry
func WithComponentsRegistry(registry ComponentRegistry) Option {
	return func(c *Config) error {
		c.ComponentsRegistry = registry
		return nil
	}
}

func WithParser(parser Parser) Option {
	return func(c *Config) error {
		c.Parser = parser
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithSecretKey 设置中的加密密码使用该密钥解密
func WithSecretKey(secretKey string) Option {
	return func(c *Config) error {
		c.SecretKey = secretKey
		return nil
	}
}

// WithProperties 合并全局属性，节点设置通过 ${global.key} 引用
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		if c.Properties == nil {
			c.Properties = NewMetadata()
		}
		maps.Copy(c.Properties, properties)
		return nil
	}
}

// WithNetPool 共享连接池，ref://id 从这里查找
func WithNetPool(netPool NodePool) Option {
	return func(c *Config) error {
		c.NetPool = netPool
		return nil
	}
}
