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
	"bytes"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/json"
	"gopkg.in/yaml.v3"
)

var _ types.Parser = (*JsonParser)(nil)
var _ types.Parser = (*YamlParser)(nil)
var _ types.Parser = (*DefaultParser)(nil)

// JsonParser Json
type JsonParser struct {
}

// DecodeRuleChain 通过json解析流程定义
func (p *JsonParser) DecodeRuleChain(dsl []byte) (types.RuleChain, error) {
	var def types.RuleChain
	err := json.Unmarshal(dsl, &def)
	return def, err
}

// DecodeRuleNode 通过json解析节点定义
func (p *JsonParser) DecodeRuleNode(dsl []byte) (types.RuleNode, error) {
	var def types.RuleNode
	err := json.Unmarshal(dsl, &def)
	return def, err
}

func (p *JsonParser) EncodeRuleChain(def interface{}) ([]byte, error) {
	return json.MarshalIndent(def)
}

func (p *JsonParser) EncodeRuleNode(def interface{}) ([]byte, error) {
	return json.MarshalIndent(def)
}

// YamlParser Yaml
type YamlParser struct {
}

// DecodeRuleChain 通过yaml解析流程定义
func (p *YamlParser) DecodeRuleChain(dsl []byte) (types.RuleChain, error) {
	var def types.RuleChain
	err := yaml.Unmarshal(dsl, &def)
	return def, err
}

// DecodeRuleNode 通过yaml解析节点定义
func (p *YamlParser) DecodeRuleNode(dsl []byte) (types.RuleNode, error) {
	var def types.RuleNode
	err := yaml.Unmarshal(dsl, &def)
	return def, err
}

func (p *YamlParser) EncodeRuleChain(def interface{}) ([]byte, error) {
	return yaml.Marshal(def)
}

func (p *YamlParser) EncodeRuleNode(def interface{}) ([]byte, error) {
	return yaml.Marshal(def)
}

// DefaultParser 根据内容选择解析器：以 `{` 开头使用json，否则使用yaml。编码统一使用json
type DefaultParser struct {
	JsonParser
	yaml YamlParser
}

func (p *DefaultParser) DecodeRuleChain(dsl []byte) (types.RuleChain, error) {
	if isJson(dsl) {
		return p.JsonParser.DecodeRuleChain(dsl)
	}
	return p.yaml.DecodeRuleChain(dsl)
}

func (p *DefaultParser) DecodeRuleNode(dsl []byte) (types.RuleNode, error) {
	if isJson(dsl) {
		return p.JsonParser.DecodeRuleNode(dsl)
	}
	return p.yaml.DecodeRuleNode(dsl)
}

func isJson(dsl []byte) bool {
	trimmed := bytes.TrimSpace(dsl)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
