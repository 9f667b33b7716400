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

package file

import (
	"errors"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/filehandling"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/str"
)

func init() {
	Registry.Add(&DeleteNode{})
}

// DeleteConfiguration 删除节点配置
type DeleteConfiguration struct {
	//Path 要删除的文件或目录，为空时从消息数据读取文件列表
	Path string `json:"path" label:"Path"`
	//FailIfNotExist 文件不存在时视为失败
	FailIfNotExist bool `json:"failIfNotExist" label:"Fail if file does not exist"`
	//AbortOnFail 第一个失败即停止并走失败分支
	AbortOnFail bool `json:"abortOnFail" label:"Abort on fail"`
	Retries     int  `json:"retries" label:"Retries"`
}

// DeleteNode 删除文件，目录递归删除
type DeleteNode struct {
	//节点配置
	Config       DeleteConfiguration
	pathTemplate str.Template
}

func (x *DeleteNode) Type() string {
	return "file/delete"
}

func (x *DeleteNode) New() types.Node {
	return &DeleteNode{Config: DeleteConfiguration{AbortOnFail: true, Retries: 3}}
}

func (x *DeleteNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	x.pathTemplate = str.NewTemplate(x.Config.Path)
	return nil
}

func (x *DeleteNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	paths, err := base.NodeUtils.Paths(x.pathTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	rows, failed, err := filehandling.Delete(base.NodeUtils.Context(ctx), filehandling.DeleteRequest{
		Paths:          paths,
		Connections:    connections,
		FailIfNotExist: x.Config.FailIfNotExist,
		AbortOnFail:    x.Config.AbortOnFail,
		Retry:          remote.DefaultRetryConfig().WithAttempts(x.Config.Retries),
	})
	if writeErr := base.NodeUtils.WriteRows(&msg, rows, len(rows), failed); writeErr != nil {
		err = errors.Join(err, writeErr)
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}

func (x *DeleteNode) Destroy() {
}
