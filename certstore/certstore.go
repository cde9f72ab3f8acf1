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

// Package certstore implements SNI-keyed certificate resolution for
// pux's TLS-terminating entrypoints.
package certstore

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
)

// Store maps a lowercased SNI name to the certified key presented for
// it, falling back to a configured default name when the client sends
// no SNI at all. It is safe for concurrent Insert and Resolve, though in
// practice it is built once at startup and only read afterward.
type Store struct {
	mu           sync.RWMutex
	certs        map[string]*tls.Certificate
	fallbackName string
}

// New returns an empty Store that falls back to fallbackName when a
// ClientHello carries no server name.
func New(fallbackName string) *Store {
	return &Store{
		certs:        make(map[string]*tls.Certificate),
		fallbackName: strings.ToLower(fallbackName),
	}
}

// Insert associates name (lowercased) with cert, returning the
// previously stored certificate for that name, if any.
func (s *Store) Insert(name string, cert *tls.Certificate) *tls.Certificate {
	name = strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.certs[name]
	s.certs[name] = cert
	return prev
}

// Resolve looks up the certified key for serverName, falling back to
// the configured default name when serverName is empty. It
// returns nil, false on a miss, which the TLS layer should turn into a
// handshake failure.
func (s *Store) Resolve(serverName string) (*tls.Certificate, bool) {
	name := serverName
	if name == "" {
		name = s.fallbackName
	}
	name = strings.ToLower(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certs[name]
	return cert, ok
}

// GetCertificate adapts Resolve to the signature tls.Config.GetCertificate
// requires, so a Store plugs directly into a server's TLS configuration.
func (s *Store) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert, ok := s.Resolve(hello.ServerName)
	if !ok {
		return nil, fmt.Errorf("certstore: no certificate for %q", hello.ServerName)
	}
	return cert, nil
}
