// Copyright 2026 The Pux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines the Prometheus collectors pux's components
// report to, registered once at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pux"

var (
	// RequestsTotal counts handled requests by entrypoint and the HTTP
	// status rendered to the client.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of requests handled, labeled by entrypoint and response status code.",
	}, []string{"entrypoint", "code"})

	// EntrypointAcceptedConnectionsTotal counts raw TCP connections
	// accepted by each entrypoint, before any TLS or HTTP processing.
	EntrypointAcceptedConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entrypoint_accepted_connections_total",
		Help:      "Total number of TCP connections accepted by an entrypoint.",
	}, []string{"entrypoint"})

	// PoolIdleConnections reports the current number of idle, reusable
	// connections held by an upstream's pool.
	PoolIdleConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_pool_idle_connections",
		Help:      "Current number of idle connections held by an upstream connection pool.",
	}, []string{"upstream"})

	// PoolActiveConnections reports the current number of connections
	// attributed to an upstream address, idle or in use.
	PoolActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_pool_active_connections",
		Help:      "Current number of connections (idle or in use) attributed to an upstream.",
	}, []string{"upstream"})
)
