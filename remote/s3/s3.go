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

// Package s3 S3 及兼容对象存储连接，协议 s3://bucket/key
// 主机名为 bucket，以 / 结尾的空对象作为目录标记。
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rulego/rulego-components-file/remote"
)

const (
	// OptionRegion 区域
	OptionRegion = "region"
	// OptionEndpoint 自定义服务地址，例如 MinIO http://127.0.0.1:9000
	OptionEndpoint = "endpoint"
	// OptionPathStyle 使用 path-style 地址，设置 endpoint 时默认开启
	OptionPathStyle = "pathStyle"
	// OptionSessionToken 临时凭证 token
	OptionSessionToken = "sessionToken"
)

// DefaultRegion 未配置区域时使用
const DefaultRegion = "us-east-1"

var ErrDirectoryNotEmpty = errors.New("directory not empty")

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler S3 协议处理器，用户名为 access key，密码为 secret key
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeS3}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	client, err := NewClient(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return NewConnection(client, credentials.Host), nil
}

// NewClient 根据凭证创建客户端，未设置用户名时使用默认凭证链
func NewClient(ctx context.Context, c *remote.Credentials) (*s3.Client, error) {
	region := c.Option(OptionRegion)
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if c.User != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.User, c.Password, c.Option(OptionSessionToken)),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := c.Option(OptionEndpoint)
	pathStyle := endpoint != ""
	if v := c.Option(OptionPathStyle); v != "" {
		pathStyle = strings.EqualFold(v, "true")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			//兼容存储不一定支持新的校验和
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		if c.Timeout > 0 {
			o.HTTPClient = awsHTTPClient(c.Timeout)
		}
	}), nil
}

// Connection 单个 bucket 的连接
type Connection struct {
	client *s3.Client
	bucket string
}

// NewConnection 创建连接
func NewConnection(client *s3.Client, bucket string) *Connection {
	return &Connection{client: client, bucket: bucket}
}

func key(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func dirPrefix(p string) string {
	k := key(p)
	if k == "" {
		return ""
	}
	return k + "/"
}

func (c *Connection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	k := key(p)
	if k == "" {
		return &remote.FileInfo{FileName: "/", Dir: true}, nil
	}
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(k)})
	if err == nil {
		return &remote.FileInfo{
			FileName:    path.Base(k),
			FileSize:    aws.ToInt64(out.ContentLength),
			FileModTime: aws.ToTime(out.LastModified),
		}, nil
	}
	if err = wrap("stat", p, err); !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	//没有对象时查找该前缀下的对象
	list, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(k + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, wrap("stat", p, err)
	}
	if len(list.Contents) == 0 && len(list.CommonPrefixes) == 0 {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return &remote.FileInfo{FileName: path.Base(k), Dir: true}, nil
}

func (c *Connection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	prefix := dirPrefix(p)
	var infos []fs.FileInfo
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("list", p, err)
		}
		for _, cp := range page.CommonPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				infos = append(infos, &remote.FileInfo{FileName: name, Dir: true})
			}
		}
		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			infos = append(infos, &remote.FileInfo{
				FileName:    name,
				FileSize:    aws.ToInt64(obj.Size),
				FileModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	if !found && prefix != "" {
		info, err := c.Stat(ctx, p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, &fs.PathError{Op: "list", Path: p, Err: remote.ErrNotDirectory}
		}
	}
	return infos, nil
}

func (c *Connection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key(p))})
	if err != nil {
		return nil, wrap("open", p, err)
	}
	return out.Body, nil
}

// Write 上传对象，内容不可 seek 时先缓存到临时文件
func (c *Connection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	body, size, cleanup, err := seekable(r)
	if err != nil {
		return 0, err
	}
	defer cleanup()
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key(p)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return 0, wrap("create", p, err)
	}
	return size, nil
}

func (c *Connection) Delete(ctx context.Context, p string) error {
	info, err := c.Stat(ctx, p)
	if err != nil {
		return err
	}
	k := key(p)
	if info.IsDir() {
		children, err := c.List(ctx, p)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return &fs.PathError{Op: "remove", Path: p, Err: ErrDirectoryNotEmpty}
		}
		k += "/"
	}
	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(k)})
	return wrap("remove", p, err)
}

// Mkdirs 写入目录标记对象
func (c *Connection) Mkdirs(ctx context.Context, p string) error {
	prefix := dirPrefix(p)
	if prefix == "" {
		return nil
	}
	if info, err := c.Stat(ctx, p); err == nil {
		if !info.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: p, Err: remote.ErrNotDirectory}
		}
		return nil
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(prefix),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	return wrap("mkdir", p, err)
}

// Rename 复制后删除源对象，只支持文件
func (c *Connection) Rename(ctx context.Context, from, to string) error {
	_, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key(to)),
		CopySource: aws.String(copySource(c.bucket, key(from))),
	})
	if err != nil {
		return wrap("rename", from, err)
	}
	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key(from))})
	return wrap("rename", from, err)
}

func (c *Connection) Close() error {
	return nil
}

func copySource(bucket, k string) string {
	segments := strings.Split(k, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// wrap 根据错误码识别不存在和无权限错误
func wrap(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrNotExist, apiErr.ErrorCode())}
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrPermission, apiErr.ErrorCode())}
		}
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

// seekable 返回可以重读的内容和长度
func seekable(r io.Reader) (io.ReadSeeker, int64, func(), error) {
	switch v := r.(type) {
	case *bytes.Reader:
		return v, int64(v.Len()), func() {}, nil
	case *strings.Reader:
		return v, int64(v.Len()), func() {}, nil
	}
	tmp, err := os.CreateTemp("", "s3-upload-*")
	if err != nil {
		return nil, 0, nil, err
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	size, err := io.Copy(tmp, r)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	return tmp, size, cleanup, nil
}

func awsHTTPClient(timeout time.Duration) *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().WithTimeout(timeout)
}
