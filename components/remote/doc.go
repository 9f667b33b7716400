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

// Package remote provides the components that work on a remote file system
// through a shared connection: the connection node holding the credentials,
// upload, download, list, delete and remote command execution.
//
// Package remote 提供远程文件系统组件，凭证由连接节点统一管理。
//
// A connection node is declared once as a shared node and referenced by the
// other nodes with "ref://<id>". Remote paths may be plain paths on the
// connection (/upload/${metadata.day}) or full URIs:
//
//	{
//	  "ruleChain": {"id": "upload"},
//	  "metadata": {
//	    "sharedNodes": [{
//	      "id": "backup",
//	      "type": "remote/connection",
//	      "configuration": {"protocol": "sftp", "host": "backup.local", "user": "knime", "password": "..."}
//	    }],
//	    "nodes": [{
//	      "id": "up",
//	      "type": "remote/upload",
//	      "configuration": {"connection": "ref://backup", "source": "/data/out", "target": "/archive"}
//	    }]
//	  }
//	}
package remote

import (
	"github.com/rulego/rulego-components-file/api/types"

	// 注册所有连接器
	_ "github.com/rulego/rulego-components-file/remote/box"
	_ "github.com/rulego/rulego-components-file/remote/ftp"
	_ "github.com/rulego/rulego-components-file/remote/local"
	_ "github.com/rulego/rulego-components-file/remote/s3"
	_ "github.com/rulego/rulego-components-file/remote/scp"
	_ "github.com/rulego/rulego-components-file/remote/sftp"
	_ "github.com/rulego/rulego-components-file/remote/smb"
)

// Registry 远程组件列表
var Registry = &types.SafeComponentSlice{}
