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

import "github.com/rulego/rulego-components-file/api/types"

// NewConfig creates a new Config with the default registry and parser.
func NewConfig(opts ...types.Option) types.Config {
	c := types.NewConfig(opts...)
	if c.ComponentsRegistry == nil {
		c.ComponentsRegistry = Registry
	}
	if c.Parser == nil {
		c.Parser = &DefaultParser{}
	}
	return c
}
