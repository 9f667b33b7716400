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
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/filehandling"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/str"
)

var ErrDirectoryRequired = errors.New("directory can not be empty")

func init() {
	Registry.Add(&ListNode{})
}

// ListConfiguration 列表节点配置
type ListConfiguration struct {
	//Directory 目录，本地路径或URI，支持 ${metadata.key}
	Directory   string `json:"directory" label:"Folder" required:"true"`
	Subfolders  bool   `json:"subfolders" label:"Include subfolders"`
	Directories bool   `json:"directories" label:"Include folders"`
	UseFilter   bool   `json:"useFilter" label:"Filter files"`
	//FilterType wildcard、regex 或 expression
	FilterType    string `json:"filterType" label:"Filter type"`
	FilterPattern string `json:"filterPattern" label:"Filter"`
}

// ListNode 列出目录中的文件
// 输出 [{uri, path, name, size, modTime, isDir}]，元数据 count
type ListNode struct {
	//节点配置
	Config            ListConfiguration
	directoryTemplate str.Template
	filter            *filehandling.Filter
}

func (x *ListNode) Type() string {
	return "file/list"
}

func (x *ListNode) New() types.Node {
	return &ListNode{Config: ListConfiguration{FilterType: filehandling.FilterWildcard}}
}

func (x *ListNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Directory) == "" {
		return ErrDirectoryRequired
	}
	x.filter, err = filehandling.NewFilter(x.Config.UseFilter, x.Config.FilterType, x.Config.FilterPattern)
	x.directoryTemplate = str.NewTemplate(x.Config.Directory)
	return err
}

func (x *ListNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	dir, err := remote.Resolve(c, connections, base.NodeUtils.Render(x.directoryTemplate, ctx, msg), nil)
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
