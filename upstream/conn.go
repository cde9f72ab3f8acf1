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

package upstream

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// readyProbeTimeout bounds how long Connection.Ready waits to see
// whether the peer has closed its side before declaring the connection
// reusable.
const readyProbeTimeout = 5 * time.Millisecond

var errUnexpectedData = errors.New("unexpected data on idle upstream connection")

// Connection wraps one live HTTP/1.1 client connection to an upstream
// address, over a raw TCP stream or a TLS stream when an SNI name is
// configured. It serializes use with a mutex: exactly one request is ever
// in flight on a Connection at a time (send, then the post-request ready
// probe, happen-before one another by construction in pool.go).
type Connection struct {
	nc net.Conn
	br *bufio.Reader
	mu sync.Mutex
}

// Open dials addr, optionally performs a TLS handshake using sni as the
// server name, and returns a Connection ready to serve requests.
// Dialing and any TLS handshake both happen synchronously here, so
// ErrKindHTTPHandshake is never produced by Open; it remains part of
// OpenErrorKind for a future protocol that does negotiate separately.
func Open(ctx context.Context, addr, sni string) (*Connection, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newOpenError(ErrKindConnect, err)
	}

	if tc, ok := nc.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			_ = nc.Close()
			return nil, newOpenError(ErrKindOther, err)
		}
	}

	if sni != "" {
		tlsConn := tls.Client(nc, &tls.Config{ServerName: sni})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = nc.Close()
			return nil, newOpenError(ErrKindTLS, err)
		}
		nc = tlsConn
	}

	return &Connection{nc: nc, br: bufio.NewReader(nc)}, nil
}

// Send dispatches req on this connection and returns its response, with
// the response headers fully read (body streaming is transparent: the
// caller reads resp.Body as it pleases).
func (c *Connection) Send(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := req.Write(c.nc); err != nil {
		return nil, newForwardError(err)
	}

	resp, err := http.ReadResponse(c.br, req)
	if err != nil {
		return nil, newForwardError(err)
	}

	return resp, nil
}

// Ready resolves once the connection is confirmed idle-and-alive, or
// returns an error if the peer has closed its side. A short read
// deadline distinguishes "nothing pending, still open" (timeout, i.e.
// ready) from "peer closed" (EOF/reset) from "unexpected bytes arrived
// on an idle connection" (protocol violation, also treated as dead).
func (c *Connection) Ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.nc.SetReadDeadline(time.Now().Add(readyProbeTimeout)); err != nil {
		return err
	}
	defer c.nc.SetReadDeadline(time.Time{})

	_, err := c.br.Peek(1)
	switch {
	case err == nil:
		return errUnexpectedData
	case isTimeout(err):
		return nil
	default:
		return err
	}
}

// Close releases the underlying socket. It is called once a connection
// is evicted from the pool, whether by a failed liveness probe or the
// background sweeper.
func (c *Connection) Close() error {
	return c.nc.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
