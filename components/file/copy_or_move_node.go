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

var (
	ErrTargetRequired = errors.New("target can not be empty")
	ErrSourceRequired = errors.New("source can not be empty")
)

func init() {
	Registry.Add(&CopyOrMoveNode{})
}

// CopyOrMoveConfiguration 复制/移动节点配置
type CopyOrMoveConfiguration struct {
	//Source 源文件或目录，本地路径或URI，支持 ${metadata.key}
	//为空时从消息数据读取文件列表
	Source string `json:"source" label:"Source" desc:"Source file or folder, empty reads the file list from message data"`
	//Target 目标目录
	Target string `json:"target" label:"Target folder" required:"true"`
	//Action copy 或 move
	Action string `json:"action" label:"Action" desc:"copy or move"`
	//OverwritePolicy 目标已存在时：overwrite、overwriteIfNewer、ignore、fail
	OverwritePolicy string `json:"overwritePolicy" label:"If exists" desc:"overwrite, overwriteIfNewer, ignore or fail"`
	//PathHandling 目标路径：fullPath、onlyFilename、truncatePrefix
	PathHandling string `json:"pathHandling" label:"Path handling" desc:"fullPath, onlyFilename or truncatePrefix"`
	//Prefix pathHandling=truncatePrefix 时去掉的源路径前缀
	Prefix string `json:"prefix" label:"Prefix"`
	//Subfolders 源是目录时是否包含子目录
	Subfolders bool `json:"subfolders" label:"Include subfolders"`
	UseFilter  bool `json:"useFilter" label:"Filter files"`
	//FilterType wildcard、regex 或 expression
	FilterType    string `json:"filterType" label:"Filter type"`
	FilterPattern string `json:"filterPattern" label:"Filter"`
	//AbortOnFail 任意文件失败时回滚已处理的文件
	AbortOnFail bool `json:"abortOnFail" label:"Abort on fail"`
	//Retries 每个文件最大尝试次数
	Retries int `json:"retries" label:"Retries"`
}

// CopyOrMoveNode 复制或移动文件到目标目录
// 每个处理过的文件登记到回滚记录器，中止时删除已复制的文件，或把已移动的文件移回原位置。
// 输出消息数据为结果行 [{source, target, status, error}]，元数据 count、failed
type CopyOrMoveNode struct {
	//节点配置
	Config CopyOrMoveConfiguration

	sourceTemplate  str.Template
	targetTemplate  str.Template
	action          filehandling.Action
	overwritePolicy filehandling.OverwritePolicy
	pathHandling    filehandling.PathHandling
	filter          *filehandling.Filter
}

func (x *CopyOrMoveNode) Type() string {
	return "file/copyOrMove"
}

func (x *CopyOrMoveNode) New() types.Node {
	return &CopyOrMoveNode{Config: CopyOrMoveConfiguration{
		Action:          string(filehandling.ActionCopy),
		OverwritePolicy: string(filehandling.Fail),
		PathHandling:    string(filehandling.OnlyFilename),
		FilterType:      filehandling.FilterWildcard,
		Retries:         3,
	}}
}

func (x *CopyOrMoveNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Target) == "" {
		return ErrTargetRequired
	}
	if x.action, err = filehandling.ParseAction(x.Config.Action); err != nil {
		return err
	}
	if x.overwritePolicy, err = filehandling.ParseOverwritePolicy(x.Config.OverwritePolicy); err != nil {
		return err
	}
	if x.pathHandling, err = filehandling.ParsePathHandling(x.Config.PathHandling); err != nil {
		return err
	}
	if x.filter, err = filehandling.NewFilter(x.Config.UseFilter, x.Config.FilterType, x.Config.FilterPattern); err != nil {
		return err
	}
	x.sourceTemplate = str.NewTemplate(x.Config.Source)
	x.targetTemplate = str.NewTemplate(x.Config.Target)
	return nil
}

func (x *CopyOrMoveNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	sources, err := base.NodeUtils.Paths(x.sourceTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	target := base.NodeUtils.Render(x.targetTemplate, ctx, msg)
	if target == "" {
		ctx.TellFailure(msg, ErrTargetRequired)
		return
	}
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()

	files := make([]*remote.File, 0, len(sources))
	for _, source := range sources {
		f, err := remote.Resolve(c, connections, source, nil)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		files = append(files, f)
	}
	targetDir, err := remote.Resolve(c, connections, target, nil)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	retry := remote.DefaultRetryConfig().WithAttempts(x.Config.Retries)
	results, err := filehandling.CopyOrMove(c, filehandling.Request{
		Sources:         files,
		TargetDir:       targetDir,
		Action:          x.action,
		OverwritePolicy: x.overwritePolicy,
		PathHandling:    x.pathHandling,
		Prefix:          x.Config.Prefix,
		Subfolders:      x.Config.Subfolders,
		Filter:          x.filter,
		AbortOnFail:     x.Config.AbortOnFail,
		Retry:           retry,
		Monitor: filehandling.NewCopyOrMoveMonitor(x.action, filehandling.URIFileSystem{
			Connections: connections,
			Retry:       retry,
		}),
		Logger: ctx.Config().Logger,
	})
	tellResults(ctx, msg, results, err)
}

func (x *CopyOrMoveNode) Destroy() {
}

// tellResults 输出结果行，err 不为空时走失败分支
func tellResults(ctx types.RuleContext, msg types.RuleMsg, results []filehandling.Result, err error) {
	if results == nil {
		results = []filehandling.Result{}
	}
	failed := 0
	for _, r := range results {
		if r.Status == filehandling.StatusFailed {
			failed++
		}
	}
	if writeErr := base.NodeUtils.WriteRows(&msg, results, len(results), failed); writeErr != nil {
		err = errors.Join(err, writeErr)
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}
