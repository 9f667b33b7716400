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

package remote

import (
	"errors"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/filehandling"
	remotefs "github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/str"
)

var ErrDirectoryRequired = errors.New("directory can not be empty")

func init() {
	Registry.Add(&ListNode{})
	Registry.Add(&DeleteNode{})
}

// ListConfiguration 远程列表节点配置
type ListConfiguration struct {
	Connection string `json:"connection" label:"Connection"`
	//Directory 连接上的目录或URI
	Directory     string `json:"directory" label:"Folder" required:"true"`
	Subfolders    bool   `json:"subfolders" label:"Include subfolders"`
	Directories   bool   `json:"directories" label:"Include folders"`
	UseFilter     bool   `json:"useFilter" label:"Filter files"`
	FilterType    string `json:"filterType" label:"Filter type"`
	FilterPattern string `json:"filterPattern" label:"Filter"`
}

// ListNode 列出远程目录中的文件
type ListNode struct {
	//节点配置
	Config            ListConfiguration
	connection        credentialsRef
	directoryTemplate str.Template
	filter            *filehandling.Filter
}

func (x *ListNode) Type() string {
	return "remote/list"
}

func (x *ListNode) New() types.Node {
	return &ListNode{Config: ListConfiguration{Directory: "/", FilterType: filehandling.FilterWildcard}}
}

func (x *ListNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Directory) == "" {
		return ErrDirectoryRequired
	}
	if x.filter, err = filehandling.NewFilter(x.Config.UseFilter, x.Config.FilterType, x.Config.FilterPattern); err != nil {
		return err
	}
	x.directoryTemplate = str.NewTemplate(x.Config.Directory)
	return x.connection.init(ruleConfig, x.Type(), x.Config.Connection)
}

func (x *ListNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	credentials, err := x.connection.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	c := base.NodeUtils.Context(ctx)
	connections := remotefs.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	dir, err := remotefs.Resolve(c, connections, uri(credentials, base.NodeUtils.Render(x.directoryTemplate, ctx, msg)), credentials)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	entries, err := filehandling.List(c, filehandling.ListRequest{
		Directory:   dir,
		Subfolders:  x.Config.Subfolders,
		Directories: x.Config.Directories,
		Filter:      x.filter,
	})
	if err == nil {
		err = base.NodeUtils.WriteRows(&msg, entries, len(entries), 0)
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}

func (x *ListNode) Destroy() {
}

// DeleteConfiguration 远程删除节点配置
type DeleteConfiguration struct {
	Connection string `json:"connection" label:"Connection"`
	//Target 要删除的文件或目录，为空时从消息数据读取文件列表
	Target         string `json:"target" label:"Target"`
	FailIfNotExist bool   `json:"failIfNotExist" label:"Fail if file does not exist"`
	AbortOnFail    bool   `json:"abortOnFail" label:"Abort on fail"`
	Retries        int    `json:"retries" label:"Retries"`
}

// DeleteNode 删除远程文件，目录递归删除
type DeleteNode struct {
	//节点配置
	Config         DeleteConfiguration
	connection     credentialsRef
	targetTemplate str.Template
}

func (x *DeleteNode) Type() string {
	return "remote/delete"
}

func (x *DeleteNode) New() types.Node {
	return &DeleteNode{Config: DeleteConfiguration{AbortOnFail: true, Retries: 3}}
}

func (x *DeleteNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	x.targetTemplate = str.NewTemplate(x.Config.Target)
	return x.connection.init(ruleConfig, x.Type(), x.Config.Connection)
}

func (x *DeleteNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	credentials, err := x.connection.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	paths, err := base.NodeUtils.Paths(x.targetTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	for i := range paths {
		paths[i] = uri(credentials, paths[i])
	}
	connections := remotefs.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	rows, failed, err := filehandling.Delete(base.NodeUtils.Context(ctx), filehandling.DeleteRequest{
		Paths:          paths,
		Connections:    connections,
		Credentials:    credentials,
		FailIfNotExist: x.Config.FailIfNotExist,
		AbortOnFail:    x.Config.AbortOnFail,
		Retry:          remotefs.DefaultRetryConfig().WithAttempts(x.Config.Retries),
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
