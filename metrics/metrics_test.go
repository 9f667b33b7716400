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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rulego/rulego-components-file/test/assert"
)

func scrape(t *testing.T) string {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandler(t *testing.T) {
	RecordNodeExecution("file/list", "Success")
	RecordConnection("ftp", false)
	RecordRollback(true)
	RecordFlowExecution("test", time.Millisecond)
	RecordFile("file", "copied")
	RecordBytes("sftp", 10)

	body := scrape(t)
	assert.True(t, strings.Contains(body, `rulego_file_node_executions_total{relation="Success",type="file/list"}`))
	assert.True(t, strings.Contains(body, `rulego_file_connections_opened_total{protocol="ftp",status="error"}`))
	assert.True(t, strings.Contains(body, `rulego_file_files_total{protocol="file",status="copied"}`))
	assert.True(t, strings.Contains(body, `rulego_file_bytes_transferred_total{protocol="sftp"}`))
	assert.True(t, strings.Contains(body, "rulego_file_rollbacks_total"))
}
