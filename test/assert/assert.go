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

// Package assert provides the small set of assertions used by the tests of this module.
package assert

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// Equal asserts that two objects are equal.
func Equal(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !ObjectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("Not equal: \nexpected: %#v\nactual  : %#v", expected, actual), msgAndArgs...)
	}
}

// NotEqual asserts that the specified values are NOT equal.
func NotEqual(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if ObjectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("Should not be: %#v", actual), msgAndArgs...)
	}
}

// True asserts that the specified value is true.
func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !value {
		fail(t, "Should be true", msgAndArgs...)
	}
}

// False asserts that the specified value is false.
func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if value {
		fail(t, "Should be false", msgAndArgs...)
	}
}

// Nil asserts that the specified object is nil.
func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !isNil(object) {
		fail(t, fmt.Sprintf("Expected nil, but got: %#v", object), msgAndArgs...)
	}
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if isNil(object) {
		fail(t, "Expected value not to be nil.", msgAndArgs...)
	}
}

// Contains asserts that s contains substr.
func Contains(t testing.TB, s, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(s, substr) {
		fail(t, fmt.Sprintf("%q does not contain %q", s, substr), msgAndArgs...)
	}
}

// ObjectsAreEqual determines if two objects are considered equal.
func ObjectsAreEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return isNil(expected) && isNil(actual)
	}
	exp, ok := expected.([]byte)
	if !ok {
		return reflect.DeepEqual(expected, actual)
	}
	act, ok := actual.([]byte)
	if !ok {
		return false
	}
	return bytes.Equal(exp, act)
}

func isNil(object interface{}) bool {
	if object == nil {
		return true
	}
	value := reflect.ValueOf(object)
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return value.IsNil()
	}
	return false
}

func fail(t testing.TB, failureMessage string, msgAndArgs ...interface{}) {
	t.Helper()
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			failureMessage += "\n" + fmt.Sprintf(format, msgAndArgs[1:]...)
		} else {
			failureMessage += "\n" + fmt.Sprint(msgAndArgs...)
		}
	}
	t.Error(failureMessage)
}
