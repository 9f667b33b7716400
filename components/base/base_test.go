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

package base

import (
	"context"
	"errors"
	"testing"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/test/assert"
	"github.com/rulego/rulego-components-file/utils/str"
)

func TestGetInstanceId(t *testing.T) {
	assert.Equal(t, "ftpConn", NodeUtils.GetInstanceId("ref://ftpConn"))
	assert.Equal(t, "", NodeUtils.GetInstanceId("ftp://host"))
	assert.Equal(t, "", NodeUtils.GetInstanceId("ref://"))
	assert.True(t, NodeUtils.IsNetPool("ref://a"))
	assert.False(t, NodeUtils.IsNetPool("a"))
}

func TestRender(t *testing.T) {
	metadata := types.NewMetadata()
	metadata.PutValue("fileName", "a.txt")
	msg := types.NewMsg(0, "TEST", types.JSON, metadata, `{"dir":"/in"}`)
	assert.Equal(t, "/in/a.txt", NodeUtils.Render(str.NewTemplate("${msg.dir}/${fileName}"), nil, msg))
	assert.Equal(t, "/out/a.txt", NodeUtils.Render(str.NewTemplate("/out/${metadata.fileName}"), nil, msg))
	assert.Equal(t, "plain", NodeUtils.Render(str.NewTemplate("plain"), nil, msg))
	assert.Equal(t, "", NodeUtils.Render(nil, nil, msg))
}

func TestCheckContext(t *testing.T) {
	assert.Nil(t, NodeUtils.CheckContext(context.Background(), "copy"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NodeUtils.CheckContext(ctx, "copy")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSharedNode(t *testing.T) {
	var node SharedNode[string]
	err := node.Init(types.NewConfig(), "test", "", true, func() (string, error) {
		return "instance", nil
	})
	assert.Nil(t, err)
	assert.False(t, node.IsFromPool())
	v, err := node.Get()
	assert.Nil(t, err)
	assert.Equal(t, "instance", v)

	var fromPool SharedNode[string]
	err = fromPool.Init(types.NewConfig(), "test", "ref://conn", true, nil)
	assert.Nil(t, err)
	assert.True(t, fromPool.IsFromPool())
	_, err = fromPool.Get()
	assert.Equal(t, ErrNetPoolNil, err)

	var empty SharedNode[string]
	_, err = empty.Get()
	assert.Equal(t, ErrClientNotInit, err)
}

func TestReadPaths(t *testing.T) {
	read := func(dataType types.DataType, data string) ([]string, error) {
		return NodeUtils.ReadPaths(types.NewMsg(0, "TEST", dataType, nil, data))
	}
	paths, err := read(types.JSON, `["/a.txt",{"uri":"sftp://h/b"},{"path":"/c"}]`)
	assert.Nil(t, err)
	assert.Equal(t, []string{"/a.txt", "sftp://h/b", "/c"}, paths)

	paths, err = read(types.TEXT, " /data/in.csv\n")
	assert.Nil(t, err)
	assert.Equal(t, []string{"/data/in.csv"}, paths)

	paths, err = read(types.JSON, `{"target":"s3://bucket/x"}`)
	assert.Nil(t, err)
	assert.Equal(t, []string{"s3://bucket/x"}, paths)

	_, err = read(types.JSON, "")
	assert.Equal(t, ErrNoFiles, err)
	_, err = read(types.JSON, "[]")
	assert.Equal(t, ErrNoFiles, err)
	_, err = read(types.BINARY, "abc")
	assert.Equal(t, ErrNoFiles, err)
	_, err = read(types.JSON, `[{"size":1}]`)
	assert.NotNil(t, err)
	_, err = read(types.JSON, `[1,`)
	assert.NotNil(t, err)
}

func TestWriteRows(t *testing.T) {
	msg := types.NewMsg(0, "TEST", types.TEXT, nil, "x")
	err := NodeUtils.WriteRows(&msg, []map[string]string{{"uri": "a&b"}}, 1, 0)
	assert.Nil(t, err)
	assert.Equal(t, types.JSON, msg.DataType)
	assert.Equal(t, `[{"uri":"a&b"}]`, msg.Data)
	assert.Equal(t, "1", msg.Metadata.GetValue(KeyCount))
	assert.Equal(t, "0", msg.Metadata.GetValue(KeyFailed))

	paths, err := NodeUtils.Paths(str.NewTemplate("/in/${metadata.name}"), nil, types.NewMsg(0, "TEST", types.JSON, types.Metadata{"name": "a"}, ""))
	assert.Nil(t, err)
	assert.Equal(t, []string{"/in/a"}, paths)
	assert.NotNil(t, NodeUtils.Context(nil))
}
