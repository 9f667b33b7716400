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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/filehandling"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/mimetype"
	"github.com/rulego/rulego-components-file/utils/str"
)

var ErrFileTooLarge = errors.New("file is larger than maxSize")

// KeyStatus 输出元数据：写入状态
const KeyStatus = "status"

func init() {
	Registry.Add(&ToBinaryNode{})
	Registry.Add(&FromBinaryNode{})
}

// ToBinaryConfiguration 读取文件节点配置
type ToBinaryConfiguration struct {
	//Path 文件路径，为空时读取消息数据中的第一个文件
	Path string `json:"path" label:"Path"`
	//MaxSize 最大字节数，<=0 不限制
	MaxSize int64 `json:"maxSize" label:"Max size"`
}

// ToBinaryNode 读取文件内容到消息，消息数据类型为 BINARY
// 元数据 mimeType、fileName、size、uri
type ToBinaryNode struct {
	//节点配置
	Config       ToBinaryConfiguration
	pathTemplate str.Template
}

func (x *ToBinaryNode) Type() string {
	return "file/toBinary"
}

func (x *ToBinaryNode) New() types.Node {
	return &ToBinaryNode{Config: ToBinaryConfiguration{MaxSize: 64 << 20}}
}

func (x *ToBinaryNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	x.pathTemplate = str.NewTemplate(x.Config.Path)
	return nil
}

func (x *ToBinaryNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	paths, err := base.NodeUtils.Paths(x.pathTemplate, ctx, msg)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	f, err := remote.Resolve(c, connections, paths[0], nil)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	data, err := x.read(c, f)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	msg.SetBytes(data)
	msg.Metadata.PutValue(KeyMimeType, mimetype.Detect(f.Name(), data))
	msg.Metadata.PutValue(KeyFileName, f.Name())
	msg.Metadata.PutValue(KeySize, strconv.Itoa(len(data)))
	msg.Metadata.PutValue(KeyURI, f.String())
	ctx.TellSuccess(msg)
}

func (x *ToBinaryNode) Destroy() {
}

func (x *ToBinaryNode) read(ctx context.Context, f *remote.File) ([]byte, error) {
	info, err := f.Stat(ctx)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", f)
	}
	if x.Config.MaxSize > 0 && info.Size() > x.Config.MaxSize {
		return nil, fmt.Errorf("%w: %s %d > %d", ErrFileTooLarge, f, info.Size(), x.Config.MaxSize)
	}
	r, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var reader io.Reader = r
	if x.Config.MaxSize > 0 {
		//文件在读取过程中变大
		reader = io.LimitReader(r, x.Config.MaxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if x.Config.MaxSize > 0 && int64(len(data)) > x.Config.MaxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, f)
	}
	return data, nil
}

// FromBinaryConfiguration 写入文件节点配置
type FromBinaryConfiguration struct {
	//Target 目标文件路径，例如 /data/out/${metadata.fileName}
	Target string `json:"target" label:"Target" required:"true"`
	//OverwritePolicy 文件已存在时：overwrite、ignore、fail
	OverwritePolicy string `json:"overwritePolicy" label:"If exists" desc:"overwrite, ignore or fail"`
}

// FromBinaryNode 把消息数据写入文件
// 元数据 uri、size、status(written|skipped)
type FromBinaryNode struct {
	//节点配置
	Config          FromBinaryConfiguration
	targetTemplate  str.Template
	overwritePolicy filehandling.OverwritePolicy
}

func (x *FromBinaryNode) Type() string {
	return "file/fromBinary"
}

func (x *FromBinaryNode) New() types.Node {
	return &FromBinaryNode{Config: FromBinaryConfiguration{OverwritePolicy: string(filehandling.Fail)}}
}

func (x *FromBinaryNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
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
	if x.overwritePolicy == filehandling.OverwriteIfNewer {
		return fmt.Errorf("%w: %s", filehandling.ErrUnknownOverwritePolicy, x.Config.OverwritePolicy)
	}
	x.targetTemplate = str.NewTemplate(x.Config.Target)
	return nil
}

func (x *FromBinaryNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()
	f, err := remote.Resolve(c, connections, base.NodeUtils.Render(x.targetTemplate, ctx, msg), nil)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	msg.Metadata.PutValue(KeyURI, f.String())
	info, err := f.Stat(c)
	switch {
	case err == nil:
		if info.IsDir() {
			ctx.TellFailure(msg, fmt.Errorf("%w: %s is a directory", filehandling.ErrTargetExists, f))
			return
		}
		if x.overwritePolicy == filehandling.Ignore {
			msg.Metadata.PutValue(KeyStatus, filehandling.StatusSkipped)
			ctx.TellSuccess(msg)
			return
		}
		if x.overwritePolicy != filehandling.Overwrite {
			ctx.TellFailure(msg, fmt.Errorf("%w: %s", filehandling.ErrTargetExists, f))
			return
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		ctx.TellFailure(msg, err)
		return
	}
	n, err := f.Write(c, bytes.NewReader(msg.GetBytes()))
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	msg.Metadata.PutValue(KeySize, strconv.FormatInt(n, 10))
	msg.Metadata.PutValue(KeyStatus, "written")
	ctx.TellSuccess(msg)
}

func (x *FromBinaryNode) Destroy() {
}
