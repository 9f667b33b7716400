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
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rulego/rulego-components-file/api/types"
	"github.com/rulego/rulego-components-file/utils/aes"
	"github.com/rulego/rulego-components-file/utils/maps"
)

const (
	SchemeFile  = "file"
	SchemeSSH   = "ssh"
	SchemeSFTP  = "sftp"
	SchemeSCP   = "scp"
	SchemeFTP   = "ftp"
	SchemeSMB   = "smb"
	SchemeS3    = "s3"
	SchemeBox   = "box"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// 设置树中的key
const (
	KeyProtocol    = "protocol"
	KeyHost        = "host"
	KeyPort        = "port"
	KeyUser        = "user"
	KeyPassword    = "password"
	KeyKeyfile     = "keyfile"
	KeyCertificate = "certificate"
	KeyTimeout     = "timeout"
	KeyOptions     = "options"
)

var (
	ErrProtocolRequired = errors.New("protocol is required")
	ErrHostRequired     = errors.New("host is required")
	ErrProtocolMismatch = errors.New("protocol does not match")
	ErrHostMismatch     = errors.New("host does not match")
	ErrPortMismatch     = errors.New("port does not match")
	ErrUserMismatch     = errors.New("user does not match")
)

var defaultPorts = map[string]int{
	SchemeSSH:   22,
	SchemeFTP:   21,
	SchemeSMB:   445,
	SchemeS3:    443,
	SchemeBox:   443,
	SchemeHTTPS: 443,
	SchemeHTTP:  80,
}

// DefaultPort 协议默认端口，未知协议返回 -1
func DefaultPort(scheme string) int {
	if port, ok := defaultPorts[NormalizeScheme(scheme)]; ok {
		return port
	}
	return -1
}

// NormalizeScheme 协议小写，sftp 和 scp 都视为 ssh
func NormalizeScheme(scheme string) string {
	scheme = strings.ToLower(scheme)
	switch scheme {
	case SchemeSFTP, SchemeSCP:
		return SchemeSSH
	}
	return scheme
}

// Credentials 远程连接凭证
type Credentials struct {
	//协议，例如 ssh、ftp、smb
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	//0 表示使用协议默认端口
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	//私钥文件路径
	Keyfile string `json:"keyfile"`
	//证书文件路径
	Certificate string `json:"certificate"`
	//连接超时
	Timeout time.Duration `json:"timeout"`
	//协议扩展参数，例如 s3 的 region、ssh 的 knownHosts
	Options map[string]string `json:"options"`
}

// CredentialsFromURI 通过URI中的用户信息、主机和端口构造凭证
func CredentialsFromURI(u *url.URL) *Credentials {
	c := &Credentials{
		Protocol: strings.ToLower(u.Scheme),
		Host:     u.Hostname(),
		Port:     uriPort(u),
	}
	if u.User != nil {
		c.User = u.User.Username()
		c.Password, _ = u.User.Password()
	}
	//查询参数作为扩展参数，例如 s3://bucket/key?region=eu-west-1
	for k, v := range u.Query() {
		if c.Options == nil {
			c.Options = make(map[string]string)
		}
		c.Options[k] = v[0]
	}
	return c
}

// Validate 校验必填项，端口为0时使用默认端口
func (c *Credentials) Validate() error {
	if c.Protocol == "" {
		return ErrProtocolRequired
	}
	if c.Host == "" {
		return ErrHostRequired
	}
	c.Protocol = strings.ToLower(c.Protocol)
	if c.Port <= 0 {
		c.Port = DefaultPort(c.Protocol)
	}
	return nil
}

// GetPort 端口，0 时返回协议默认端口
func (c *Credentials) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultPort(c.Protocol)
}

// Address host:port
func (c *Credentials) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GetPort()))
}

// Option 获取扩展参数
func (c *Credentials) Option(key string) string {
	if c.Options == nil {
		return ""
	}
	return c.Options[key]
}

// Identifier scheme://user@host:port
func (c *Credentials) Identifier() string {
	return identifier(c.Protocol, c.User, c.Host, c.GetPort())
}

// FitsToURI 检查凭证是否可以用于访问该URI
// sftp、scp 和 ssh 视为同一协议，主机不区分大小写，URI未指定端口时使用默认端口，
// URI指定了用户时必须和凭证用户一致
func (c *Credentials) FitsToURI(u *url.URL) error {
	if u == nil {
		return errors.New("uri is nil")
	}
	if NormalizeScheme(c.Protocol) != NormalizeScheme(u.Scheme) {
		return fmt.Errorf("%w: %s != %s", ErrProtocolMismatch, c.Protocol, u.Scheme)
	}
	if !strings.EqualFold(c.Host, u.Hostname()) {
		return fmt.Errorf("%w: %s != %s", ErrHostMismatch, c.Host, u.Hostname())
	}
	if port := uriPort(u); port != c.GetPort() {
		return fmt.Errorf("%w: %d != %d", ErrPortMismatch, c.GetPort(), port)
	}
	if u.User != nil && u.User.Username() != "" && u.User.Username() != c.User {
		return fmt.Errorf("%w: %s != %s", ErrUserMismatch, c.User, u.User.Username())
	}
	return nil
}

// Fits FitsToURI 的便捷方法
func (c *Credentials) Fits(u *url.URL) bool {
	return c.FitsToURI(u) == nil
}

// Save 把凭证写入设置树，secretKey 不为空时加密密码
func (c *Credentials) Save(configuration types.Configuration, secretKey string) error {
	password := c.Password
	if secretKey != "" && password != "" {
		v, err := aes.Encrypt(password, []byte(secretKey))
		if err != nil {
			return err
		}
		password = v
	}
	configuration[KeyProtocol] = c.Protocol
	configuration[KeyHost] = c.Host
	configuration[KeyPort] = c.Port
	configuration[KeyUser] = c.User
	configuration[KeyPassword] = password
	configuration[KeyKeyfile] = c.Keyfile
	configuration[KeyCertificate] = c.Certificate
	if c.Timeout > 0 {
		configuration[KeyTimeout] = c.Timeout.String()
	}
	if len(c.Options) > 0 {
		options := make(map[string]interface{}, len(c.Options))
		for k, v := range c.Options {
			options[k] = v
		}
		configuration[KeyOptions] = options
	}
	return nil
}

// LoadCredentials 从设置树读取凭证，secretKey 不为空时解密密码
func LoadCredentials(configuration types.Configuration, secretKey string) (*Credentials, error) {
	var c Credentials
	if err := maps.Map2Struct(map[string]interface{}(configuration), &c); err != nil {
		return nil, err
	}
	if secretKey != "" && c.Password != "" {
		v, err := aes.Decrypt(c.Password, []byte(secretKey))
		if err != nil {
			return nil, fmt.Errorf("decrypt password: %w", err)
		}
		c.Password = v
	}
	return &c, nil
}

func uriPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			return port
		}
	}
	return DefaultPort(u.Scheme)
}

func identifier(scheme, user, host string, port int) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(scheme))
	sb.WriteString("://")
	if user != "" {
		sb.WriteString(user)
		sb.WriteString("@")
	}
	sb.WriteString(strings.ToLower(host))
	if port > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(port))
	}
	return sb.String()
}

// Identifier URI的连接标识 scheme://user@host:port
func Identifier(u *url.URL) string {
	user := ""
	if u.User != nil {
		user = u.User.Username()
	}
	return identifier(u.Scheme, user, u.Hostname(), uriPort(u))
}
