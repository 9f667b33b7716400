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

// Package box Box 云盘连接，协议 box://host/path
// 路径按文件夹逐级解析为 Box 项目ID，根目录ID为 0。
package box

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rulego/rulego-components-file/remote"
	"github.com/rulego/rulego-components-file/utils/json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// OptionBaseURL API 地址
	OptionBaseURL = "baseURL"
	// OptionUploadURL 上传 API 地址
	OptionUploadURL = "uploadURL"
	// OptionTokenURL 获取 token 地址
	OptionTokenURL = "tokenURL"
	// OptionClientID 设置后使用 client credentials 授权，密码为 client secret
	OptionClientID = "clientId"
	// OptionSubjectType enterprise 或 user
	OptionSubjectType = "subjectType"
	// OptionSubjectID 企业ID或用户ID
	OptionSubjectID = "subjectId"
)

const (
	DefaultBaseURL   = "https://api.box.com/2.0"
	DefaultUploadURL = "https://upload.box.com/api/2.0"
	DefaultTokenURL  = "https://api.box.com/oauth2/token"
	rootFolderID     = "0"
	pageLimit        = 1000
	itemFields       = "id,type,name,size,modified_at"
)

var ErrTokenRequired = errors.New("box access token or client credentials are required")

func init() {
	remote.Register(&Handler{})
}

var _ remote.Handler = (*Handler)(nil)
var _ remote.Connection = (*Connection)(nil)

// Handler Box 协议处理器
// 未设置 clientId 时密码作为 access token 使用
type Handler struct{}

func (h *Handler) Schemes() []string {
	return []string{remote.SchemeBox}
}

func (h *Handler) Connect(ctx context.Context, credentials *remote.Credentials) (remote.Connection, error) {
	client, err := NewHTTPClient(ctx, credentials)
	if err != nil {
		return nil, err
	}
	baseURL := credentials.Option(OptionBaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	uploadURL := credentials.Option(OptionUploadURL)
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return NewConnection(client, baseURL, uploadURL), nil
}

// NewHTTPClient 创建自动携带 token 的客户端
func NewHTTPClient(ctx context.Context, c *remote.Credentials) (*http.Client, error) {
	//token 刷新不能随单次操作取消
	ctx = context.WithoutCancel(ctx)
	var client *http.Client
	if clientID := c.Option(OptionClientID); clientID != "" {
		tokenURL := c.Option(OptionTokenURL)
		if tokenURL == "" {
			tokenURL = DefaultTokenURL
		}
		cfg := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: c.Password,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
			EndpointParams: url.Values{
				"box_subject_type": {c.Option(OptionSubjectType)},
				"box_subject_id":   {c.Option(OptionSubjectID)},
			},
		}
		client = cfg.Client(ctx)
	} else if c.Password != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Password, TokenType: "Bearer"}))
	} else {
		return nil, ErrTokenRequired
	}
	if c.Timeout > 0 {
		client.Timeout = c.Timeout
	}
	return client, nil
}

type item struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (i item) isFolder() bool {
	return i.Type == "folder"
}

func (i item) info() *remote.FileInfo {
	return &remote.FileInfo{FileName: i.Name, FileSize: i.Size, FileModTime: i.ModifiedAt, Dir: i.isFolder()}
}

type itemCollection struct {
	TotalCount int    `json:"total_count"`
	Entries    []item `json:"entries"`
}

type reference struct {
	ID string `json:"id"`
}

type attributes struct {
	Name   string     `json:"name,omitempty"`
	Parent *reference `json:"parent,omitempty"`
}

// apiError Box 错误响应
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("box api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Connection Box 连接，缓存已解析的路径
type Connection struct {
	client    *http.Client
	baseURL   string
	uploadURL string
	mu        sync.Mutex
	cache     map[string]item
}

// NewConnection 创建连接
func NewConnection(client *http.Client, baseURL, uploadURL string) *Connection {
	return &Connection{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		uploadURL: strings.TrimSuffix(uploadURL, "/"),
		cache:     make(map[string]item),
	}
}

func (c *Connection) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	it, err := c.resolve(ctx, p)
	if err != nil {
		return nil, wrap("stat", p, err)
	}
	info := it.info()
	if path.Clean("/"+p) == "/" {
		info.FileName = "/"
	}
	return info, nil
}

func (c *Connection) List(ctx context.Context, p string) ([]fs.FileInfo, error) {
	it, err := c.resolve(ctx, p)
	if err != nil {
		return nil, wrap("list", p, err)
	}
	if !it.isFolder() {
		return nil, &fs.PathError{Op: "list", Path: p, Err: remote.ErrNotDirectory}
	}
	items, err := c.items(ctx, it.ID)
	if err != nil {
		return nil, wrap("list", p, err)
	}
	infos := make([]fs.FileInfo, 0, len(items))
	for _, child := range items {
		infos = append(infos, child.info())
	}
	return infos, nil
}

func (c *Connection) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	it, err := c.resolve(ctx, p)
	if err != nil {
		return nil, wrap("open", p, err)
	}
	if it.isFolder() {
		return nil, &fs.PathError{Op: "open", Path: p, Err: errors.New("is a directory")}
	}
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/files/"+it.ID+"/content", nil, "")
	if err != nil {
		return nil, wrap("open", p, err)
	}
	return resp.Body, nil
}

// Write 上传文件，已存在时上传新版本
func (c *Connection) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	p = path.Clean("/" + p)
	parent, err := c.resolve(ctx, path.Dir(p))
	if err != nil {
		return 0, wrap("create", p, err)
	}
	if !parent.isFolder() {
		return 0, &fs.PathError{Op: "create", Path: p, Err: remote.ErrNotDirectory}
	}
	target := c.uploadURL + "/files/content"
	attrs := attributes{Name: path.Base(p), Parent: &reference{ID: parent.ID}}
	if existing, err := c.resolve(ctx, p); err == nil {
		if existing.isFolder() {
			return 0, &fs.PathError{Op: "create", Path: p, Err: errors.New("is a directory")}
		}
		target = c.uploadURL + "/files/" + existing.ID + "/content"
		attrs = attributes{Name: path.Base(p)}
	}

	counter := &countingReader{r: r}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		_ = pw.CloseWithError(writeUpload(mw, attrs, counter))
	}()
	resp, err := c.do(ctx, http.MethodPost, target, pr, mw.FormDataContentType())
	if err != nil {
		return counter.n, wrap("create", p, err)
	}
	var uploaded itemCollection
	err = decode(resp, &uploaded)
	if err == nil && len(uploaded.Entries) > 0 {
		c.store(p, uploaded.Entries[0])
	}
	return counter.n, err
}

func writeUpload(mw *multipart.Writer, attrs attributes, r io.Reader) error {
	b, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	//attributes 必须在 file 之前
	if err = mw.WriteField("attributes", string(b)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", attrs.Name)
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Connection) Delete(ctx context.Context, p string) error {
	it, err := c.resolve(ctx, p)
	if err != nil {
		return wrap("remove", p, err)
	}
	if it.ID == rootFolderID {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrPermission}
	}
	resp, err := c.do(ctx, http.MethodDelete, c.baseURL+"/"+it.Type+"s/"+it.ID, nil, "")
	if err != nil {
		return wrap("remove", p, err)
	}
	_ = resp.Body.Close()
	c.invalidate()
	return nil
}

func (c *Connection) Mkdirs(ctx context.Context, p string) error {
	current := "/"
	parent := item{Type: "folder", ID: rootFolderID}
	for _, segment := range strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/") {
		if segment == "" {
			continue
		}
		current = path.Join(current, segment)
		it, err := c.resolve(ctx, current)
		if err == nil {
			if !it.isFolder() {
				return &fs.PathError{Op: "mkdir", Path: current, Err: remote.ErrNotDirectory}
			}
			parent = it
			continue
		}
		if !isNotFound(err) {
			return wrap("mkdir", current, err)
		}
		body, _ := json.Marshal(attributes{Name: segment, Parent: &reference{ID: parent.ID}})
		resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/folders", strings.NewReader(string(body)), "application/json")
		if err != nil {
			return wrap("mkdir", current, err)
		}
		var created item
		if err = decode(resp, &created); err != nil {
			return err
		}
		c.store(current, created)
		parent = created
	}
	return nil
}

// Rename 移动或改名，目标文件已存在时先删除
func (c *Connection) Rename(ctx context.Context, from, to string) error {
	it, err := c.resolve(ctx, from)
	if err != nil {
		return wrap("rename", from, err)
	}
	to = path.Clean("/" + to)
	parent, err := c.resolve(ctx, path.Dir(to))
	if err != nil {
		return wrap("rename", to, err)
	}
	if existing, err := c.resolve(ctx, to); err == nil && !existing.isFolder() && existing.ID != it.ID {
		if err = c.Delete(ctx, to); err != nil {
			return err
		}
	}
	body, _ := json.Marshal(attributes{Name: path.Base(to), Parent: &reference{ID: parent.ID}})
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/"+it.Type+"s/"+it.ID, strings.NewReader(string(body)), "application/json")
	if err != nil {
		return wrap("rename", from, err)
	}
	_ = resp.Body.Close()
	c.invalidate()
	return nil
}

func (c *Connection) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// resolve 逐级解析路径
func (c *Connection) resolve(ctx context.Context, p string) (item, error) {
	p = path.Clean("/" + p)
	if p == "/" {
		return item{Type: "folder", ID: rootFolderID}, nil
	}
	c.mu.Lock()
	it, ok := c.cache[p]
	c.mu.Unlock()
	if ok {
		return it, nil
	}
	parent, err := c.resolve(ctx, path.Dir(p))
	if err != nil {
		return item{}, err
	}
	if !parent.isFolder() {
		return item{}, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: path.Dir(p) + " is not a folder"}
	}
	children, err := c.items(ctx, parent.ID)
	if err != nil {
		return item{}, err
	}
	name := path.Base(p)
	for _, child := range children {
		c.store(path.Join(path.Dir(p), child.Name), child)
		if child.Name == name {
			it, ok = child, true
		}
	}
	if !ok {
		return item{}, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: p}
	}
	return it, nil
}

func (c *Connection) items(ctx context.Context, folderID string) ([]item, error) {
	var all []item
	for offset := 0; ; offset += pageLimit {
		q := url.Values{"fields": {itemFields}, "limit": {fmt.Sprint(pageLimit)}, "offset": {fmt.Sprint(offset)}}
		resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/folders/"+folderID+"/items?"+q.Encode(), nil, "")
		if err != nil {
			return nil, err
		}
		var page itemCollection
		if err = decode(resp, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		if len(page.Entries) == 0 || offset+len(page.Entries) >= page.TotalCount {
			return all, nil
		}
	}
}

func (c *Connection) store(p string, it item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[p] = it
}

func (c *Connection) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]item)
}

func (c *Connection) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		apiErr := &apiError{Status: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = json.Unmarshal(b, apiErr)
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}
	return resp, nil
}

func decode(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func isNotFound(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// wrap 404 映射为不存在，401/403 映射为无权限
func wrap(op, p string, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrNotExist, apiErr.Message)}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &fs.PathError{Op: op, Path: p, Err: fmt.Errorf("%w: %s", fs.ErrPermission, apiErr.Message)}
		}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
