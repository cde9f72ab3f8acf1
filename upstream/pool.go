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
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarcelCoding/pux/metrics"
)

const (
	// forceUseThreshold is the idle age beyond which select prefers an
	// entry even if newer ones are available, so that long-idle sockets
	// get exercised often enough to detect half-open peers.
	forceUseThreshold = 10 * time.Millisecond
	// idleSweepThreshold is the idle age after which the background
	// sweeper evicts an entry outright.
	idleSweepThreshold = 10 * time.Second
	// sweepInterval is how often the sweeper runs.
	sweepInterval = 2 * time.Second
)

type poolEntry struct {
	id        uint64
	idleSince time.Time
	conn      *Connection
}

// Pool is a per-Upstream cache of live connections: it amortizes
// connection setup across requests, spreads load across replica
// addresses on a miss, and evicts dead or idle connections. A single
// mutex guards all bookkeeping; it is never held across I/O.
type Pool struct {
	name string
	sni  string

	mu     sync.Mutex
	addrs  []string
	conns  map[string][]uint64
	idle   []poolEntry
	nextID uint64

	cancelSweep context.CancelFunc
	sweepDone   chan struct{}
}

// NewPool builds a connection pool over addrs (dialed directly, or via
// TLS with server name sni if sni is non-empty) and starts its
// background sweeper. addrs must be non-empty: an Upstream with no
// addresses is a configuration error the caller must catch at startup,
// not at request time.
func NewPool(name string, addrs []string, sni string) *Pool {
	if len(addrs) == 0 {
		panic("upstream: pool requires at least one address")
	}

	conns := make(map[string][]uint64, len(addrs))
	for _, addr := range addrs {
		conns[addr] = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:        name,
		sni:         sni,
		addrs:       append([]string(nil), addrs...),
		conns:       conns,
		cancelSweep: cancel,
		sweepDone:   make(chan struct{}),
	}

	go p.sweepLoop(ctx)

	return p
}

// Close stops the background sweeper. It does not close any pooled
// connections; callers that want a full drain should do so before
// process exit via OS teardown.
func (p *Pool) Close() {
	p.cancelSweep()
	<-p.sweepDone
}

// Send borrows or opens a connection and dispatches req on it. The
// post-request liveness probe that returns the connection to the idle
// set or evicts it does not run until the response body has been fully
// drained and closed: probing (and potentially closing the socket)
// while the caller is still reading the body would race the body's own
// reads of the same buffered reader.
func (p *Pool) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	id, conn, addr := p.acquire()

	if conn == nil {
		opened, err := Open(ctx, addr, p.sni)
		if err != nil {
			p.mu.Lock()
			p.removeConn(id)
			p.mu.Unlock()
			p.reportGauges()
			return nil, err
		}
		conn = opened
	}

	resp, sendErr := conn.Send(req)
	if sendErr != nil {
		go p.postSend(id, conn)
		return nil, sendErr
	}

	resp.Body = &pooledBody{ReadCloser: resp.Body, probe: func() { p.postSend(id, conn) }}

	return resp, nil
}

// pooledBody wraps a response body so the pool's liveness probe fires
// only once the body has been fully read (EOF or a read error) or
// explicitly closed, whichever happens first. Without this, a probe
// started right after the headers are read would contend with the
// body's own reads on the same bufio.Reader, and would frequently
// mistake buffered body bytes for an unexpected-data protocol error.
type pooledBody struct {
	io.ReadCloser
	once  sync.Once
	probe func()
}

func (b *pooledBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil {
		b.fire()
	}
	return n, err
}

func (b *pooledBody) Close() error {
	err := b.ReadCloser.Close()
	b.fire()
	return err
}

func (b *pooledBody) fire() {
	b.once.Do(func() { go b.probe() })
}

// acquire picks an idle connection or, on a miss, reserves a fresh id
// against the least-loaded address for the caller to open.
func (p *Pool) acquire() (id uint64, conn *Connection, addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, conn, ok := p.selectIdle(); ok {
		return id, conn, ""
	}

	id, addr = p.selectAddr()
	return id, nil, addr
}

// selectIdle walks the idle list newest-to-oldest, picking the first
// entry old enough to exceed forceUseThreshold, or else the single
// oldest entry seen. Callers must hold p.mu.
func (p *Pool) selectIdle() (id uint64, conn *Connection, ok bool) {
	if len(p.idle) == 0 {
		return 0, nil, false
	}

	forceUseBefore := time.Now().Add(-forceUseThreshold)
	candidate := -1

	for i := len(p.idle) - 1; i >= 0; i-- {
		entry := p.idle[i]
		if !entry.idleSince.After(forceUseBefore) {
			candidate = i
			break
		}
		if candidate == -1 || p.idle[candidate].idleSince.After(entry.idleSince) {
			candidate = i
		}
	}

	entry := p.idle[candidate]
	p.idle = append(p.idle[:candidate], p.idle[candidate+1:]...)

	return entry.id, entry.conn, true
}

// selectAddr returns the address with the fewest connections currently
// attributed to it, registering a fresh id under that address. Callers
// must hold p.mu.
func (p *Pool) selectAddr() (id uint64, addr string) {
	best := ""
	bestLen := -1

	for _, a := range p.addrs {
		n := len(p.conns[a])
		if bestLen == -1 || n < bestLen {
			best, bestLen = a, n
		}
	}

	p.nextID++
	id = p.nextID
	p.conns[best] = append(p.conns[best], id)

	return id, best
}

// push reinserts conn into the idle set after a successful liveness
// probe. Callers must hold p.mu.
func (p *Pool) push(id uint64, conn *Connection) {
	p.idle = append(p.idle, poolEntry{id: id, idleSince: time.Now(), conn: conn})
}

// removeConn detaches id from whichever address list it belongs to.
// Callers must hold p.mu.
func (p *Pool) removeConn(id uint64) {
	for addr, ids := range p.conns {
		for i, cid := range ids {
			if cid == id {
				p.conns[addr] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	}
}

// postSend awaits the connection's post-request liveness probe and
// either returns it to the idle set or evicts and closes it.
func (p *Pool) postSend(id uint64, conn *Connection) {
	if err := conn.Ready(); err != nil {
		p.mu.Lock()
		p.removeConn(id)
		p.mu.Unlock()
		_ = conn.Close()
		zap.L().Debug("upstream connection closed",
			zap.String("upstream", p.name), zap.Error(err))
	} else {
		p.mu.Lock()
		p.push(id, conn)
		p.mu.Unlock()
	}

	p.reportGauges()
}

// sweepLoop periodically evicts idle connections that have outlived
// idleSweepThreshold, the only path by which an idle-but-healthy
// connection is retired.
func (p *Pool) sweepLoop(ctx context.Context) {
	defer close(p.sweepDone)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepTick()
		}
	}
}

func (p *Pool) sweepTick() {
	var toClose []*Connection

	p.mu.Lock()
	cutoff := time.Now().Add(-idleSweepThreshold)
	kept := p.idle[:0]
	for _, entry := range p.idle {
		if entry.idleSince.Before(cutoff) {
			p.removeConn(entry.id)
			toClose = append(toClose, entry.conn)
			continue
		}
		kept = append(kept, entry)
	}
	p.idle = kept
	p.mu.Unlock()

	for _, conn := range toClose {
		_ = conn.Close()
	}

	p.reportGauges()
}

func (p *Pool) reportGauges() {
	p.mu.Lock()
	idle := len(p.idle)
	active := 0
	for _, ids := range p.conns {
		active += len(ids)
	}
	p.mu.Unlock()

	metrics.PoolIdleConnections.WithLabelValues(p.name).Set(float64(idle))
	metrics.PoolActiveConnections.WithLabelValues(p.name).Set(float64(active))
}
