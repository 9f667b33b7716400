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

var ErrTargetRequired = errors.New("target can not be empty")

func init() {
	Registry.Add(&UploadNode{})
	Registry.Add(&DownloadNode{})
}

// TransferConfiguration 上传/下载节点配置
type TransferConfiguration struct {
	//Connection 连接节点 ref://<id>，或者带凭证的URI，为空时使用路径URI中的凭证
	Connection string `json:"connection" label:"Connection"`
	//Source 源文件或目录，为空时从消息数据读取文件列表
	Source string `json:"source" label:"Source"`
	//Target 目标目录
	Target string `json:"target" label:"Target folder" required:"true"`
	//OverwritePolicy 目标已存在时：overwrite、overwriteIfNewer、ignore、fail
	OverwritePolicy string `json:"overwritePolicy" label:"If exists"`
	PathHandling    string `json:"pathHandling" label:"Path handling"`
	Prefix          string `json:"prefix" label:"Prefix"`
	Subfolders      bool   `json:"subfolders" label:"Include subfolders"`
	UseFilter       bool   `json:"useFilter" label:"Filter files"`
	FilterType      string `json:"filterType" label:"Filter type"`
	FilterPattern   string `json:"filterPattern" label:"Filter"`
	//DeleteSource 传输成功后删除源文件
	DeleteSource bool `json:"deleteSource" label:"Delete source files"`
	AbortOnFail  bool `json:"abortOnFail" label:"Abort on fail"`
	Retries      int  `json:"retries" label:"Retries"`
}

func defaultTransferConfiguration() TransferConfiguration {
	return TransferConfiguration{
		OverwritePolicy: string(filehandling.Fail),
		PathHandling:    string(filehandling.OnlyFilename),
		FilterType:      filehandling.FilterWildcard,
		AbortOnFail:     true,
		Retries:         3,
	}
}

// transfer 上传和下载的公共实现，remoteSource 表示源在连接上
type transfer struct {
	config          TransferConfiguration
	connection      credentialsRef
	sourceTemplate  str.Template
	targetTemplate  str.Template
	action          filehandling.Action
	overwritePolicy filehandling.OverwritePolicy
	pathHandling    filehandling.PathHandling
	filter          *filehandling.Filter
	remoteSource    bool
}

func (x *transfer) init(ruleConfig types.Config, nodeType string, config TransferConfiguration) error {
	var err error
	x.config = config
	if strings.TrimSpace(x.config.Target) == "" {
		return ErrTargetRequired
	}
	x.action = filehandling.ActionCopy
	if x.config.DeleteSource {
		x.action = filehandling.ActionMove
	}
	if x.overwritePolicy, err = filehandling.ParseOverwritePolicy(x.config.OverwritePolicy); err != nil {
		return err
	}
	if x.pathHandling, err = filehandling.ParsePathHandling(x.config.PathHandling); err != nil {
		return err
	}
	if x.filter, err = filehandling.NewFilter(x.config.UseFilter, x.config.FilterType, x.config.FilterPattern); err != nil {
		return err
	}
	x.sourceTemplate = str.NewTemplate(x.config.Source)
	x.targetTemplate = str.NewTemplate(x.config.Target)
	return x.connection.init(ruleConfig, nodeType, x.config.Connection)
}

func (x *transfer) onMsg(ctx types.RuleContext, msg types.RuleMsg) {
	credentials, err := x.connection.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	paths, err := base.NodeUtils.Paths(x.sourceTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	target := base.NodeUtils.Render(x.targetTemplate, ctx, msg)
	if x.remoteSource {
		for i := range paths {
			paths[i] = uri(credentials, paths[i])
		}
	} else {
		target = uri(credentials, target)
	}

	c := base.NodeUtils.Context(ctx)
	connections := remotefs.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	sources := make([]*remotefs.File, 0, len(paths))
	for _, p := range paths {
		f, err := remotefs.Resolve(c, connections, p, credentials)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		sources = append(sources, f)
	}
	targetDir, err := remotefs.Resolve(c, connections, target, credentials)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	retry := remotefs.DefaultRetryConfig().WithAttempts(x.config.Retries)
	results, err := filehandling.CopyOrMove(c, filehandling.Request{
		Sources:         sources,
		TargetDir:       targetDir,
		Action:          x.action,
		OverwritePolicy: x.overwritePolicy,
		PathHandling:    x.pathHandling,
		Prefix:          x.config.Prefix,
		Subfolders:      x.config.Subfolders,
		Filter:          x.filter,
		AbortOnFail:     x.config.AbortOnFail,
		Retry:           retry,
		Monitor: filehandling.NewCopyOrMoveMonitor(x.action, filehandling.URIFileSystem{
			Connections: connections,
			Credentials: credentials,
			Retry:       retry,
		}),
		Logger: ctx.Config().Logger,
	})
	tellRows(ctx, msg, results, err)
}

// UploadNode 上传本地文件到连接上的目录
// 输出 [{source, target, status, error}]，元数据 count、failed
type UploadNode struct {
	//节点配置
	Config   TransferConfiguration
	transfer transfer
}

func (x *UploadNode) Type() string {
	return "remote/upload"
}

func (x *UploadNode) New() types.Node {
	return &UploadNode{Config: defaultTransferConfiguration()}
}

func (x *UploadNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	return x.transfer.init(ruleConfig, x.Type(), x.Config)
}

func (x *UploadNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	x.transfer.onMsg(ctx, msg)
}

func (x *UploadNode) Destroy() {
}

// DownloadNode 从连接下载文件到本地目录，deleteSource=true 时为移动
type DownloadNode struct {
	//节点配置
	Config   TransferConfiguration
	transfer transfer
}

func (x *DownloadNode) Type() string {
	return "remote/download"
}

func (x *DownloadNode) New() types.Node {
	return &DownloadNode{Config: defaultTransferConfiguration()}
}

func (x *DownloadNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	x.transfer.remoteSource = true
	return x.transfer.init(ruleConfig, x.Type(), x.Config)
}

func (x *DownloadNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	x.transfer.onMsg(ctx, msg)
}

func (x *DownloadNode) Destroy() {
}

// tellRows 输出结果行并统计失败数量
func tellRows(ctx types.RuleContext, msg types.RuleMsg, rows []filehandling.Result, err error) {
	if rows == nil {
		rows = []filehandling.Result{}
	}
	failed := 0
	for _, r := range rows {
		if r.Status == filehandling.StatusFailed {
			failed++
		}
	}
	if writeErr := base.NodeUtils.WriteRows(&msg, rows, len(rows), failed); writeErr != nil {
		err = errors.Join(err, writeErr)
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}
