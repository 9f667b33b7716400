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

package node_pool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/engine"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/test/assert"
)

var sharedDsl = `{
  "ruleChain": {"id": "pool"},
  "metadata": {
    "sharedNodes": [
      {"id": "nas", "type": "remote/connection",
       "configuration": {"protocol": "smb", "host": "nas", "options": {"mountPath": "MOUNT", "share": "data"}}}
    ],
    "nodes": [
      {"id": "list", "type": "remote/list", "configuration": {"connection": "ref://nas", "directory": "/data"}}
    ]
  }
}`

func TestNodePool(t *testing.T) {
	mount := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(mount, "a.txt"), []byte("a"), 0o644))
	dsl := strings.ReplaceAll(sharedDsl, "MOUNT", filepath.ToSlash(mount))

	pool := NewNodePool(engine.NewConfig())
	_, err := pool.Load([]byte(dsl))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(pool.GetAll()))

	instance, err := pool.GetInstance("nas")
	assert.Nil(t, err)
	credentials, ok := instance.(*remote.Credentials)
	assert.True(t, ok)
	assert.Equal(t, "smb", credentials.Protocol)
	assert.Equal(t, filepath.ToSlash(mount), credentials.Option("mountPath"))

	_, err = pool.GetInstance("none")
	assert.NotNil(t, err)
	credentials, err = pool.Credentials("nas")
	assert.Nil(t, err)
	assert.Equal(t, "nas", credentials.Host)

	//重复ID
	_, err = pool.Load([]byte(dsl))
	assert.NotNil(t, err)

	//非共享节点
	_, err = pool.NewFromRuleNode(types.RuleNode{Id: "zip", Type: "file/zip", Configuration: types.Configuration{"target": "/a.zip"}})
	assert.Equal(t, ErrNotImplemented, err)

	flow, err := engine.New("pool", []byte(dsl), types.WithNetPool(NewNodePool(engine.NewConfig())))
	assert.Nil(t, err)
	defer flow.Destroy()
	results := flow.Execute(context.Background(), types.NewMsg(0, "TEST", types.JSON, types.NewMetadata(), ""))
	assert.Equal(t, 1, len(results))
	assert.Equal(t, "", results[0].Err)
	assert.Equal(t, "1", results[0].Msg.Metadata.GetValue("count"))
	assert.Contains(t, results[0].Msg.Data, "a.txt")

	pool.Del("nas")
	_, ok = pool.Get("nas")
	assert.False(t, ok)
	pool.Stop()
}
