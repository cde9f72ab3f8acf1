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

// Package upstream implements the pooled connection to a logical origin:
// one or more interchangeable replica addresses plus an optional TLS
// server name.
package upstream

import "net/http"

// Upstream is a logical origin: a set of interchangeable replica
// addresses, an optional SNI name used when dialing them over TLS, and
// the connection pool that amortizes dialing across requests.
type Upstream struct {
	Name string
	pool *Pool
}

// New builds an Upstream over addrs. name is used purely for metrics and
// log labeling so operators can tell pools apart.
func New(name string, addrs []string, sni string) *Upstream {
	return &Upstream{Name: name, pool: NewPool(name, addrs, sni)}
}

// Send forwards req through the pool, borrowing or opening a connection
// as described on Pool.Send.
func (u *Upstream) Send(req *http.Request) (*http.Response, error) {
	return u.pool.Send(req.Context(), req)
}

// Close stops the upstream's background sweeper.
func (u *Upstream) Close() {
	u.pool.Close()
}
