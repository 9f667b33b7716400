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

// Package reflect builds settings descriptors (component forms) from the
// `Config` struct of a node, the way a dialog is generated for its settings.
package reflect

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
)

const componentsPkgPrefix = "github.com/rulego/rulego-components-file/components/"

// GetComponentForm 读取节点 Config 字段生成设置说明，默认值取自 node 当前的 Config
func GetComponentForm(node types.Node) types.ComponentForm {
	nodeType, config := GetComponentConfig(node)
	form := types.ComponentForm{
		Type:          node.Type(),
		Label:         nodeType.Name(),
		Category:      strings.TrimPrefix(nodeType.PkgPath(), componentsPkgPrefix),
		Fields:        fields(config),
		RelationTypes: []string{types.Success, types.Failure},
	}
	if v, ok := node.(types.CategoryGetter); ok {
		form.Category = v.Category()
	}
	if v, ok := node.(types.DescGetter); ok {
		form.Desc = v.Desc()
	}
	return form
}

// GetComponentConfig 节点结构体类型以及 Config 字段的值，没有 Config 字段时值无效
func GetComponentConfig(node types.Node) (reflect.Type, reflect.Value) {
	v := reflect.Indirect(reflect.ValueOf(node))
	if v.Kind() != reflect.Struct {
		return v.Type(), reflect.Value{}
	}
	return v.Type(), v.FieldByName("Config")
}

func fields(config reflect.Value) types.ComponentFormFieldList {
	if !config.IsValid() || config.Kind() != reflect.Struct {
		return nil
	}
	var list types.ComponentFormFieldList
	t := config.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		value := config.Field(i)
		required, _ := strconv.ParseBool(sf.Tag.Get("required"))
		field := types.ComponentFormField{
			Name:         name,
			Type:         typeName(sf.Type),
			DefaultValue: value.Interface(),
			Label:        sf.Tag.Get("label"),
			Desc:         sf.Tag.Get("desc"),
			Required:     required,
		}
		if sf.Type.Kind() == reflect.Struct {
			field.Fields = fields(value)
		}
		list = append(list, field)
	}
	return list
}

// fieldName json tag 名称，没有tag时首字母小写，未导出或者 json:"-" 跳过
func fieldName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	switch name {
	case "-":
		return "", false
	case "":
		return strings.ToLower(sf.Name[:1]) + sf.Name[1:], true
	default:
		return name, true
	}
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Map:
		return "map"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct:
		return "struct"
	default:
		return t.Name()
	}
}
