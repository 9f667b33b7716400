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
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/filehandling"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/str"
)

// KeyArchive 输出元数据：压缩包URI
const KeyArchive = "archive"

func init() {
	Registry.Add(&ZipNode{})
	Registry.Add(&UnzipNode{})
}

// ZipConfiguration 压缩节点配置
type ZipConfiguration struct {
	//Source 文件或目录，为空时从消息数据读取文件列表
	Source string `json:"source" label:"Source"`
	//Target zip 文件路径
	Target       string `json:"target" label:"Archive" required:"true"`
	PathHandling string `json:"pathHandling" label:"Path handling" desc:"fullPath, onlyFilename or truncatePrefix"`
	Prefix       string `json:"prefix" label:"Prefix"`
	//CompressionLevel 0-9，-1 默认级别
	CompressionLevel int `json:"compressionLevel" label:"Compression level"`
	//OverwritePolicy 压缩包已存在时：overwrite、append、fail
	OverwritePolicy string `json:"overwritePolicy" label:"If exists" desc:"overwrite, append or fail"`
	UseFilter       bool   `json:"useFilter" label:"Filter files"`
	FilterType      string `json:"filterType" label:"Filter type"`
	FilterPattern   string `json:"filterPattern" label:"Filter"`
}

// ZipNode 把文件压缩到 zip 文件
// 输出 [{source, entry, size}]，元数据 archive、count
type ZipNode struct {
	//节点配置
	Config         ZipConfiguration
	sourceTemplate str.Template
	targetTemplate str.Template
	pathHandling   filehandling.PathHandling
	mode           filehandling.ArchiveMode
	filter         *filehandling.Filter
}

func (x *ZipNode) Type() string {
	return "file/zip"
}

func (x *ZipNode) New() types.Node {
	return &ZipNode{Config: ZipConfiguration{
		PathHandling:     string(filehandling.OnlyFilename),
		CompressionLevel: flate.DefaultCompression,
		OverwritePolicy:  string(filehandling.ArchiveFail),
		FilterType:       filehandling.FilterWildcard,
	}}
}

func (x *ZipNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Target) == "" {
		return ErrTargetRequired
	}
	if x.Config.CompressionLevel < flate.HuffmanOnly || x.Config.CompressionLevel > flate.BestCompression {
		return filehandling.ErrCompressionLevel
	}
	if x.pathHandling, err = filehandling.ParsePathHandling(x.Config.PathHandling); err != nil {
		return err
	}
	if x.mode, err = filehandling.ParseArchiveMode(x.Config.OverwritePolicy); err != nil {
		return err
	}
	if x.filter, err = filehandling.NewFilter(x.Config.UseFilter, x.Config.FilterType, x.Config.FilterPattern); err != nil {
		return err
	}
	x.sourceTemplate = str.NewTemplate(x.Config.Source)
	x.targetTemplate = str.NewTemplate(x.Config.Target)
	return nil
}

func (x *ZipNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	paths, err := base.NodeUtils.Paths(x.sourceTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	sources := make([]*remote.File, 0, len(paths))
	for _, p := range paths {
		f, err := remote.Resolve(c, connections, p, nil)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		sources = append(sources, f)
	}
	target, err := remote.Resolve(c, connections, base.NodeUtils.Render(x.targetTemplate, ctx, msg), nil)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	entries, err := filehandling.Compress(c, filehandling.CompressRequest{
		Sources:      sources,
		Target:       target,
		PathHandling: x.pathHandling,
		Prefix:       x.Config.Prefix,
		Level:        x.Config.CompressionLevel,
		Mode:         x.mode,
		Filter:       x.filter,
	})
	if err == nil {
		err = base.NodeUtils.WriteRows(&msg, entries, len(entries), 0)
	}
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	msg.Metadata.PutValue(KeyArchive, target.String())
	ctx.TellSuccess(msg)
}

func (x *ZipNode) Destroy() {
}

// UnzipConfiguration 解压节点配置
type UnzipConfiguration struct {
	//Source zip 文件，为空时从消息数据读取
	Source string `json:"source" label:"Archive"`
	//Target 解压目录
	Target string `json:"target" label:"Target folder" required:"true"`
	//OverwritePolicy 文件已存在时：overwrite、overwriteIfNewer、ignore、fail
	OverwritePolicy string `json:"overwritePolicy" label:"If exists"`
}

// UnzipNode 解压 zip 文件
// 条目路径会写到目标目录之外时拒绝解压；失败时删除已解压的文件
type UnzipNode struct {
	//节点配置
	Config          UnzipConfiguration
	sourceTemplate  str.Template
	targetTemplate  str.Template
	overwritePolicy filehandling.OverwritePolicy
}

func (x *UnzipNode) Type() string {
	return "file/unzip"
}

func (x *UnzipNode) New() types.Node {
	return &UnzipNode{Config: UnzipConfiguration{OverwritePolicy: string(filehandling.Fail)}}
}

func (x *UnzipNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Target) == "" {
		return ErrTargetRequired
	}
	if x.overwritePolicy, err = filehandling.ParseOverwritePolicy(x.Config.OverwritePolicy); err != nil {
		return err
	}
	x.sourceTemplate = str.NewTemplate(x.Config.Source)
	x.targetTemplate = str.NewTemplate(x.Config.Target)
	return nil
}

func (x *UnzipNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	paths, err := base.NodeUtils.Paths(x.sourceTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	targetDir, err := remote.Resolve(c, connections, base.NodeUtils.Render(x.targetTemplate, ctx, msg), nil)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	//多个压缩包共用回滚记录器，任意失败时全部回滚
	monitor := filehandling.NewCopyOrMoveMonitor(filehandling.ActionCopy, filehandling.URIFileSystem{
		Connections: connections,
		Retry:       remote.NoRetry(),
	})
	sources := make([]*remote.File, 0, len(paths))
	for _, p := range paths {
		source, err := remote.Resolve(c, connections, p, nil)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		sources = append(sources, source)
	}
	var results []filehandling.Result
	for _, source := range sources {
		extracted, err := filehandling.Extract(c, filehandling.ExtractRequest{
			Source:          source,
			TargetDir:       targetDir,
			OverwritePolicy: x.overwritePolicy,
			Monitor:         monitor,
		})
		results = append(results, extracted...)
		if err != nil {
			tellResults(ctx, msg, results, err)
			return
		}
	}
	tellResults(ctx, msg, results, nil)
}

func (x *UnzipNode) Destroy() {
}
