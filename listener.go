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

import "net"

// nodelayListener sets TCP_NODELAY on every accepted connection before
// handing it back, so latency-sensitive small writes aren't held up by
// Nagle's algorithm.
type nodelayListener struct {
	*net.TCPListener
}

func (ln nodelayListener) Accept() (net.Conn, error) {
	conn, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}

	if err := conn.SetNoDelay(true); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
