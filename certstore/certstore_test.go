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

package certstore

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveCaseInsensitive verifies that SNI lookup is
// case-insensitive.
func TestResolveCaseInsensitive(t *testing.T) {
	store := New("fallback.example")
	cert := &tls.Certificate{}
	store.Insert("Example.COM", cert)

	got, ok := store.Resolve("example.com")
	require.True(t, ok)
	assert.Same(t, cert, got)

	got, ok = store.Resolve("EXAMPLE.COM")
	require.True(t, ok)
	assert.Same(t, cert, got)
}

// TestResolveFallsBackOnEmptySNI verifies the fallback-name behavior for
// clients that send no SNI at all.
func TestResolveFallsBackOnEmptySNI(t *testing.T) {
	store := New("fallback.example")
	cert := &tls.Certificate{}
	store.Insert("fallback.example", cert)

	got, ok := store.Resolve("")
	require.True(t, ok)
	assert.Same(t, cert, got)
}

func TestResolveMiss(t *testing.T) {
	store := New("fallback.example")
	_, ok := store.Resolve("unknown.example")
	assert.False(t, ok)
}

func TestInsertReturnsPrevious(t *testing.T) {
	store := New("fallback.example")
	first := &tls.Certificate{}
	second := &tls.Certificate{}

	assert.Nil(t, store.Insert("example.com", first))
	assert.Same(t, first, store.Insert("example.com", second))
}

func TestGetCertificateAdaptsToTLSConfig(t *testing.T) {
	store := New("fallback.example")
	cert := &tls.Certificate{}
	store.Insert("example.com", cert)

	got, err := store.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
	require.NoError(t, err)
	assert.Same(t, cert, got)

	_, err = store.GetCertificate(&tls.ClientHelloInfo{ServerName: "unknown.example"})
	assert.Error(t, err)
}
