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
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pires/go-proxyproto"
	"go.uber.org/zap"

	"github.com/MarcelCoding/pux/metrics"
)

// Entrypoint is one bound TCP listener, an optional TLS acceptor
// configured against a shared certificate resolver, and the Handler
// that serves every connection accepted on it.
type Entrypoint struct {
	id            string
	addr          string
	tlsConfig     *tls.Config
	proxyProtocol bool
	handler       http.Handler

	listener *net.TCPListener
}

// NewEntrypoint describes (but does not yet bind) one entrypoint.
// tlsConfig may be nil for a plaintext entrypoint.
func NewEntrypoint(id, addr string, tlsConfig *tls.Config, proxyProtocol bool, handler http.Handler) *Entrypoint {
	return &Entrypoint{
		id:            id,
		addr:          addr,
		tlsConfig:     tlsConfig,
		proxyProtocol: proxyProtocol,
		handler:       handler,
	}
}

// ID returns the entrypoint's configured id.
func (e *Entrypoint) ID() string { return e.id }

// Bind opens the TCP listener. It must succeed before Serve is called.
func (e *Entrypoint) Bind() error {
	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return fmt.Errorf("entrypoint %s: bind %s: %w", e.id, e.addr, err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("entrypoint %s: listener for %s is not TCP", e.id, e.addr)
	}

	e.listener = tcpLn
	return nil
}

// Serve accepts connections until shutdown is closed, serving each over
// HTTP/1.1 (and HTTP/2 via ALPN, for TLS entrypoints). It returns nil on
// a clean shutdown and any other error is fatal to the entrypoint.
func (e *Entrypoint) Serve(shutdown <-chan struct{}) error {
	var ln net.Listener = nodelayListener{TCPListener: e.listener}

	if e.proxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	if e.tlsConfig != nil {
		ln = tls.NewListener(ln, e.tlsConfig)
	}

	srv := &http.Server{
		Handler:  e.handler,
		ErrorLog: zap.NewStdLog(Log().With(zap.String("entrypoint", e.id))),
		ConnState: func(_ net.Conn, state http.ConnState) {
			if state == http.StateNew {
				metrics.EntrypointAcceptedConnectionsTotal.WithLabelValues(e.id).Inc()
			}
		},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-shutdown:
		// Closing the raw listener unblocks Accept() inside srv.Serve
		// without forcibly tearing down connections already being
		// served: no new connections are accepted, but in-flight ones
		// keep running to completion.
		_ = e.listener.Close()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("entrypoint %s: serve: %w", e.id, err)
	}
}
