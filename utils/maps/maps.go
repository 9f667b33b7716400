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

// Package maps decodes settings trees into node configuration structs and
// reads nested values out of template environments.
package maps

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct Decode takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
// Strings are converted to numbers, booleans and durations, so settings coming from
// templates or command line properties decode the same as typed JSON values.
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Get 获取多级map字段值，例如：Get(dict, "msg.file.name")
func Get(input interface{}, fieldName string) interface{} {
	if input == nil {
		return nil
	}
	current := input
	for _, key := range strings.Split(fieldName, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[key]
			if !ok {
				return nil
			}
			current = v
		case map[string]string:
			v, ok := m[key]
			if !ok {
				return nil
			}
			current = v
		default:
			rv := reflect.ValueOf(current)
			if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
				return nil
			}
			v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return nil
			}
			current = v.Interface()
		}
	}
	return current
}
