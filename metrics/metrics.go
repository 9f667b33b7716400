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

// Package metrics exposes Prometheus counters for node executions and file transfers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	nodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulego_file_node_executions_total",
			Help: "Total number of node executions by node type and output relation",
		},
		[]string{"type", "relation"},
	)

	flowExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulego_file_flow_execution_duration_seconds",
			Help:    "Flow execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	filesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulego_file_files_total",
			Help: "Total number of processed files by protocol and status",
		},
		[]string{"protocol", "status"},
	)

	bytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulego_file_bytes_transferred_total",
			Help: "Total bytes copied between file systems",
		},
		[]string{"protocol"},
	)

	connectionsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulego_file_connections_opened_total",
			Help: "Total number of remote connections opened",
		},
		[]string{"protocol", "status"},
	)

	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulego_file_rollbacks_total",
			Help: "Total number of copy/move rollbacks",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordNodeExecution counts one node output.
func RecordNodeExecution(nodeType, relation string) {
	nodeExecutionsTotal.WithLabelValues(nodeType, relation).Inc()
}

// RecordFlowExecution records the duration of one flow execution.
func RecordFlowExecution(flow string, duration time.Duration) {
	flowExecutionDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordFile counts one processed file, status is copied, moved, skipped, deleted or failed.
func RecordFile(protocol, status string) {
	filesTotal.WithLabelValues(protocol, status).Inc()
}

// RecordBytes adds n transferred bytes.
func RecordBytes(protocol string, n int64) {
	if n > 0 {
		bytesTransferred.WithLabelValues(protocol).Add(float64(n))
	}
}

// RecordConnection counts one connection attempt.
func RecordConnection(protocol string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	connectionsOpened.WithLabelValues(protocol, status).Inc()
}

// RecordRollback counts one ledger rollback.
func RecordRollback(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	rollbacksTotal.WithLabelValues(status).Inc()
}
