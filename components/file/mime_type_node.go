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
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/json"
	"github.com/rulego/rulego-components-file/utils/maps"
	"github.com/rulego/rulego-components-file/utils/mimetype"
	"github.com/rulego/rulego-components-file/utils/str"
)

// 元数据key
const (
	KeyMimeType = "mimeType"
	KeyFileName = "fileName"
	KeySize     = "size"
	KeyURI      = "uri"
)

func init() {
	Registry.Add(&MimeTypeNode{})
}

// MimeTypeConfiguration MIME 类型节点配置
type MimeTypeConfiguration struct {
	//Path 文件路径，设置时结果写入元数据 mimeType；为空时给消息数据中的每一行增加 mimeType
	Path string `json:"path" label:"Path"`
	//Sniff 扩展名未知时读取文件内容识别
	Sniff bool `json:"sniff" label:"Detect from content"`
	//Types 自定义扩展名和类型，例如 {"knwf":"application/x-knime-workflow"}
	Types map[string]string `json:"types" label:"Additional types"`
}

// MimeTypeNode 识别文件的 MIME 类型
type MimeTypeNode struct {
	//节点配置
	Config       MimeTypeConfiguration
	pathTemplate str.Template
}

func (x *MimeTypeNode) Type() string {
	return "file/mimeType"
}

func (x *MimeTypeNode) New() types.Node {
	return &MimeTypeNode{Config: MimeTypeConfiguration{Sniff: true}}
}

func (x *MimeTypeNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	for ext, t := range x.Config.Types {
		mimetype.Register(ext, t)
	}
	x.pathTemplate = str.NewTemplate(x.Config.Path)
	return nil
}

func (x *MimeTypeNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	c := base.NodeUtils.Context(ctx)
	connections := remote.NewConnectionMonitor(ctx.Config().Logger)
	defer connections.CloseConnections()

	single := base.NodeUtils.Render(x.pathTemplate, ctx, msg)
	var rows []interface{}
	if single == "" && strings.HasPrefix(strings.TrimSpace(msg.Data), "[") {
		if err := json.Unmarshal([]byte(msg.Data), &rows); err != nil {
			ctx.TellFailure(msg, err)
			return
		}
	} else if single == "" {
		paths, err := base.NodeUtils.ReadPaths(msg)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		single = paths[0]
	}
	if single != "" {
		t, err := x.detect(c, connections, single)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		msg.Metadata.PutValue(KeyMimeType, t)
		ctx.TellSuccess(msg)
		return
	}

	for i, row := range rows {
		var p string
		switch v := row.(type) {
		case string:
			p = v
			row = map[string]interface{}{KeyURI: v}
		case map[string]interface{}:
			p, _ = v[KeyURI].(string)
			if p == "" {
				p, _ = v["path"].(string)
			}
		}
		m, ok := row.(map[string]interface{})
		if !ok || p == "" {
			ctx.TellFailure(msg, fmt.Errorf("row %d is not a file reference", i))
			return
		}
		t, err := x.detect(c, connections, p)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		m[KeyMimeType] = t
		rows[i] = m
	}
	if err := base.NodeUtils.WriteRows(&msg, rows, len(rows), 0); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}

func (x *MimeTypeNode) Destroy() {
}

// detect 先按扩展名识别，未知时读取内容
func (x *MimeTypeNode) detect(ctx context.Context, connections *remote.ConnectionMonitor, p string) (string, error) {
	u, err := remote.ParseURI(p)
	if err != nil {
		return "", err
	}
	if t := mimetype.TypeByExtension(path.Ext(u.Path)); t != "" {
		return t, nil
	}
	if !x.Config.Sniff {
		return mimetype.Default, nil
	}
	f, err := remote.Resolve(ctx, connections, p, nil)
	if err != nil {
		return "", err
	}
	r, err := f.Open(ctx)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return mimetype.DetectReader(f.Name(), r), nil
}
