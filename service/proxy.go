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

package service

import (
	"net/http"

	"github.com/MarcelCoding/pux/upstream"
)

// hopHeaders are stripped before forwarding, same list net/http/httputil's
// ReverseProxy uses: these are connection-scoped, not end-to-end, so
// passing them upstream unchanged would be incorrect regardless of proxy
// implementation.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards a request to a pooled Upstream unchanged, save for
// hop-by-hop header stripping.
type Proxy struct {
	Upstream *upstream.Upstream
}

// NewProxy returns a Service that forwards every request it handles to u.
func NewProxy(u *upstream.Upstream) *Proxy {
	return &Proxy{Upstream: u}
}

// Handle implements Service.
func (p *Proxy) Handle(req *http.Request) (*http.Response, error) {
	req.Close = false
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	return p.Upstream.Send(req)
}
