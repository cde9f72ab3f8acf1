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

package pux

import (
	"sort"

	"github.com/MarcelCoding/pux/service"
)

// route is one inserted (host, path-prefix) -> service mapping.
type route struct {
	path    []string
	service service.Service
}

// Routes maps a host to its ordered list of routes, shortest path first.
// It is built once at startup and read concurrently without further
// synchronization: nothing mutates it after the initial Insert calls.
type Routes struct {
	byHost map[string][]route
}

// NewRoutes returns an empty routing table.
func NewRoutes() *Routes {
	return &Routes{byHost: make(map[string][]route)}
}

// Insert adds a route under host, keeping the host's bucket sorted by
// ascending path length so Find resolves the shortest matching prefix.
func (r *Routes) Insert(host string, path []string, svc service.Service) {
	bucket := append(r.byHost[host], route{path: path, service: svc})
	sort.SliceStable(bucket, func(i, j int) bool {
		return len(bucket[i].path) < len(bucket[j].path)
	})
	r.byHost[host] = bucket
}

// Find returns the service for the shortest inserted route whose path is
// a segment-prefix of segments, or nil if host is unknown or no route's
// path matches.
func (r *Routes) Find(host string, segments []string) service.Service {
	bucket, ok := r.byHost[host]
	if !ok {
		return nil
	}

	for _, rt := range bucket {
		if isPrefix(rt.path, segments) {
			return rt.service
		}
	}

	return nil
}

// isPrefix reports whether base is a segment-by-segment prefix of
// supplied. An empty base matches any supplied path, including an empty
// one.
func isPrefix(base, supplied []string) bool {
	if len(base) > len(supplied) {
		return false
	}

	for i, segment := range base {
		if supplied[i] != segment {
			return false
		}
	}

	return true
}
