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
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/components/base"
	remotefs "github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/maps"
)

var ErrInvalidConnection = errors.New("connection must be ref://<id> or a URI with host")

// DefaultConnectTimeout 测试连接的默认超时
const DefaultConnectTimeout = 30 * time.Second

func init() {
	Registry.Add(&ConnectionNode{})
}

// ConnectionConfiguration 连接节点配置
type ConnectionConfiguration struct {
	//Protocol 协议：sftp、ssh、scp、ftp、smb、s3、box
	Protocol string `json:"protocol" label:"Protocol" required:"true"`
	//Host 主机，s3 为 bucket
	Host string `json:"host" label:"Host" required:"true"`
	//Port 0 使用协议默认端口
	Port int    `json:"port" label:"Port"`
	User string `json:"user" label:"User"`
	//Password 引擎配置了 SecretKey 时为加密后的密码
	Password    string `json:"password" label:"Password"`
	Keyfile     string `json:"keyfile" label:"Key file"`
	Certificate string `json:"certificate" label:"Certificate"`
	//Timeout 连接超时，例如 30s
	Timeout string `json:"timeout" label:"Timeout"`
	//Options 协议扩展参数，例如 region、endpoint、mountPath、knownHosts
	Options map[string]string `json:"options" label:"Options"`
	//TestConnection 初始化时建立一次连接校验凭证
	TestConnection bool `json:"testConnection" label:"Test connection"`
}

// ConnectionNode 远程连接节点，作为共享节点保存连接凭证
// 其他节点通过 connection: "ref://<id>" 引用，每次执行时使用凭证建立连接，执行结束关闭
type ConnectionNode struct {
	base.SharedNode[*remotefs.Credentials]
	//节点配置
	Config      ConnectionConfiguration
	credentials *remotefs.Credentials
}

func (x *ConnectionNode) Type() string {
	return "remote/connection"
}

func (x *ConnectionNode) New() types.Node {
	return &ConnectionNode{Config: ConnectionConfiguration{Protocol: remotefs.SchemeSFTP, Timeout: "30s"}}
}

func (x *ConnectionNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	credentials, err := remotefs.LoadCredentials(configuration, ruleConfig.SecretKey)
	if err != nil {
		return err
	}
	//未配置的字段使用默认值
	if credentials.Protocol == "" {
		credentials.Protocol = x.Config.Protocol
	}
	if credentials.Timeout <= 0 && x.Config.Timeout != "" {
		if credentials.Timeout, err = time.ParseDuration(x.Config.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %s: %w", x.Config.Timeout, err)
		}
	}
	if err := credentials.Validate(); err != nil {
		return err
	}
	handler, ok := remotefs.GetHandler(credentials.Protocol)
	if !ok {
		return fmt.Errorf("%w: %s", remotefs.ErrUnsupportedScheme, credentials.Protocol)
	}
	if x.Config.TestConnection {
		timeout := credentials.Timeout
		if timeout <= 0 {
			timeout = DefaultConnectTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		conn, err := handler.Connect(ctx, credentials)
		if err != nil {
			return fmt.Errorf("test connection %s: %w", credentials.Identifier(), err)
		}
		_ = conn.Close()
	}
	x.credentials = credentials
	return x.SharedNode.Init(ruleConfig, x.Type(), "", false, func() (*remotefs.Credentials, error) {
		c := *x.credentials
		return &c, nil
	})
}

// OnMsg 连接节点不处理数据，原样转发
func (x *ConnectionNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

func (x *ConnectionNode) Destroy() {
	x.credentials = nil
}

// credentialsRef 节点引用的连接凭证
// connection 为 ref://<id> 时从共享池获取，为URI时从URI读取，为空时使用各路径URI中的凭证
type credentialsRef struct {
	base.SharedNode[*remotefs.Credentials]
}

func (r *credentialsRef) init(ruleConfig types.Config, nodeType, connection string) error {
	return r.Init(ruleConfig, nodeType, connection, true, func() (*remotefs.Credentials, error) {
		if connection == "" {
			return nil, nil
		}
		u, err := url.Parse(connection)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConnection, connection)
		}
		c := remotefs.CredentialsFromURI(u)
		return c, c.Validate()
	})
}

// uri 连接上的路径转换为URI，已经是URI或者没有凭证时原样返回
func uri(credentials *remotefs.Credentials, p string) string {
	if credentials == nil || p == "" || strings.Contains(p, "://") {
		return p
	}
	u := url.URL{
		Scheme: credentials.Protocol,
		Host:   credentials.Host,
		Path:   path.Clean("/" + strings.ReplaceAll(p, "\\", "/")),
	}
	if port := credentials.Port; port > 0 && port != remotefs.DefaultPort(credentials.Protocol) {
		u.Host = net.JoinHostPort(credentials.Host, strconv.Itoa(port))
	}
	if credentials.User != "" {
		u.User = url.User(credentials.User)
	}
	return u.String()
}
