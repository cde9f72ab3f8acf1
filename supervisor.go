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
	"sync"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns a set of entrypoints and drives their accept loops
// concurrently, fanning a single shutdown broadcast out to all of them.
type Supervisor struct {
	entrypoints []*Entrypoint

	once     sync.Once
	shutdown chan struct{}
}

// NewSupervisor returns a Supervisor over entrypoints. Each must already
// be bound (Entrypoint.Bind) before Start is called.
func NewSupervisor(entrypoints []*Entrypoint) *Supervisor {
	return &Supervisor{
		entrypoints: entrypoints,
		shutdown:    make(chan struct{}),
	}
}

// Start drives every entrypoint's accept loop concurrently and returns
// the first fatal error, or nil once all of them have drained cleanly.
func (s *Supervisor) Start() error {
	var g errgroup.Group

	for _, ep := range s.entrypoints {
		ep := ep
		g.Go(func() error {
			return ep.Serve(s.shutdown)
		})
	}

	return g.Wait()
}

// Shutdown broadcasts the shutdown signal to every entrypoint. It is
// safe to call more than once and safe to call before Start.
func (s *Supervisor) Shutdown() {
	s.once.Do(func() {
		close(s.shutdown)
	})
}
