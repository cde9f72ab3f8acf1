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
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, addrs ...string) *Pool {
	t.Helper()
	p := NewPool("test", addrs, "")
	t.Cleanup(p.Close)
	return p
}

// TestPoolSelectIdleForceUse verifies that an entry idle at least
// forceUseThreshold is preferred over a newer one and is the only entry
// removed from the idle set.
func TestPoolSelectIdleForceUse(t *testing.T) {
	p := newTestPool(t, "127.0.0.1:1")

	old := &Connection{}
	newer := &Connection{}

	p.idle = []poolEntry{
		{id: 1, idleSince: time.Now().Add(-forceUseThreshold * 3), conn: old},
		{id: 2, idleSince: time.Now(), conn: newer},
	}

	id, conn, ok := p.selectIdle()
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	assert.Same(t, old, conn)
	assert.Len(t, p.idle, 1)
}

// TestPoolSelectIdlePrefersOldestWithoutForceUse grounds the "otherwise
// keep whichever candidate has the older idle_since" branch of select().
func TestPoolSelectIdlePrefersOldestWithoutForceUse(t *testing.T) {
	p := newTestPool(t, "127.0.0.1:1")

	older := &Connection{}
	newer := &Connection{}

	now := time.Now()
	p.idle = []poolEntry{
		{id: 1, idleSince: now.Add(-2 * time.Millisecond), conn: older},
		{id: 2, idleSince: now.Add(-1 * time.Millisecond), conn: newer},
	}

	id, conn, ok := p.selectIdle()
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	assert.Same(t, older, conn)
}

func TestPoolSelectIdleEmpty(t *testing.T) {
	p := newTestPool(t, "127.0.0.1:1")
	_, _, ok := p.selectIdle()
	assert.False(t, ok)
}

// TestPoolSelectAddrLeastLoaded verifies that selectAddr picks the
// address with the fewest attributed connections.
func TestPoolSelectAddrLeastLoaded(t *testing.T) {
	p := newTestPool(t, "a:1", "b:1", "c:1")

	p.conns["a:1"] = []uint64{1, 2}
	p.conns["b:1"] = nil
	p.conns["c:1"] = []uint64{3}

	_, addr := p.selectAddr()
	assert.Equal(t, "b:1", addr)
	assert.Len(t, p.conns["b:1"], 1)
}

// TestPoolSweepTickEvictsStaleEntries verifies that the sweeper evicts
// idle entries older than idleSweepThreshold and leaves fresher ones in
// place.
func TestPoolSweepTickEvictsStaleEntries(t *testing.T) {
	p := newTestPool(t, "a:1")

	stale := &Connection{nc: mustPipe(t)}
	fresh := &Connection{nc: mustPipe(t)}

	p.conns["a:1"] = []uint64{1, 2}
	p.idle = []poolEntry{
		{id: 1, idleSince: time.Now().Add(-idleSweepThreshold * 2), conn: stale},
		{id: 2, idleSince: time.Now(), conn: fresh},
	}

	p.sweepTick()

	require.Len(t, p.idle, 1)
	assert.Equal(t, uint64(2), p.idle[0].id)
	assert.Equal(t, []uint64{2}, p.conns["a:1"])
}

// mustPipe returns a net.Conn backed by an in-memory pipe, closed
// automatically at test cleanup, for tests that only need Close() to be
// callable.
func mustPipe(t *testing.T) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client
}

// rawOrigin is a minimal HTTP/1.1 origin for pool integration tests: it
// accepts connections itself (rather than via net/http.Server) so tests
// can control exactly when it closes a connection after replying.
type rawOrigin struct {
	ln       net.Listener
	accepted int32

	closeAfterReply bool
}

func startRawOrigin(t *testing.T, closeAfterReply bool) *rawOrigin {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	o := &rawOrigin{ln: ln, closeAfterReply: closeAfterReply}
	go o.serve()
	t.Cleanup(func() { _ = ln.Close() })

	return o
}

func (o *rawOrigin) serve() {
	for {
		conn, err := o.ln.Accept()
		if err != nil {
			return
		}
		atomic.AddInt32(&o.accepted, 1)
		go o.handleConn(conn)
	}
}

func (o *rawOrigin) handleConn(conn net.Conn) {
	defer func() {
		if o.closeAfterReply {
			_ = conn.Close()
		}
	}()

	br := bufio.NewReader(conn)
	for {
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		_, _ = io.Copy(io.Discard, req.Body)

		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")

		if o.closeAfterReply {
			return
		}
	}
}

func (o *rawOrigin) Addr() string { return o.ln.Addr().String() }

func (o *rawOrigin) Accepted() int { return int(atomic.LoadInt32(&o.accepted)) }

func newGetRequest(addr string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, "http://"+addr+"/", nil)
	return req
}

// TestPoolReusesIdleConnection verifies that two sequential requests to
// the same single-address upstream open exactly one TCP connection.
func TestPoolReusesIdleConnection(t *testing.T) {
	origin := startRawOrigin(t, false)
	p := newTestPool(t, origin.Addr())

	resp1, err := p.Send(context.Background(), newGetRequest(origin.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp1.Body)
	_ = resp1.Body.Close()

	// Give the asynchronous post-send liveness probe time to reinsert
	// the connection into the idle set.
	time.Sleep(50 * time.Millisecond)

	resp2, err := p.Send(context.Background(), newGetRequest(origin.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp2.Body)
	_ = resp2.Body.Close()

	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, origin.Accepted())

	p.mu.Lock()
	assert.LessOrEqual(t, len(p.conns[origin.Addr()]), 1)
	p.mu.Unlock()
}

// TestPoolRecoversFromDeadConnection verifies that once the origin
// closes its side, the pool's liveness probe evicts the dead connection
// and the next send opens a fresh one, never exceeding one attributed
// connection for the single configured address.
func TestPoolRecoversFromDeadConnection(t *testing.T) {
	origin := startRawOrigin(t, true)
	p := newTestPool(t, origin.Addr())

	resp1, err := p.Send(context.Background(), newGetRequest(origin.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp1.Body)
	_ = resp1.Body.Close()

	time.Sleep(50 * time.Millisecond)

	p.mu.Lock()
	assert.LessOrEqual(t, len(p.conns[origin.Addr()]), 1)
	p.mu.Unlock()

	resp2, err := p.Send(context.Background(), newGetRequest(origin.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp2.Body)
	_ = resp2.Body.Close()

	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, origin.Accepted())

	p.mu.Lock()
	assert.LessOrEqual(t, len(p.conns[origin.Addr()]), 1)
	p.mu.Unlock()
}
