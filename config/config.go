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

// Package config parses pux's declarative configuration document into
// typed values. The core never sees raw YAML, only the typed Config
// below.
package config

import (
	"crypto/tls"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the declarative configuration document.
type Config struct {
	Entrypoints []Entrypoint `yaml:"entrypoints"`
	Routes      []Route      `yaml:"routes"`
	Services    Services     `yaml:"services"`
	Upstreams   []Upstream   `yaml:"upstreams"`
	Certs       []Cert       `yaml:"certs"`
	Metrics     Metrics      `yaml:"metrics"`
}

// Entrypoint is one listener: an id, bind address, whether it terminates
// TLS, and whether it expects a PROXY protocol header ahead of the
// TLS/HTTP traffic.
type Entrypoint struct {
	ID            string `yaml:"id"`
	Addr          string `yaml:"addr"`
	TLS           bool   `yaml:"tls"`
	ProxyProtocol bool   `yaml:"proxy_protocol"`
}

// Route binds a host and path prefix, under a set of entrypoints, to a
// service.
type Route struct {
	Host        string   `yaml:"host"`
	Path        []string `yaml:"path"`
	Entrypoints []string `yaml:"entrypoints"`
	Service     string   `yaml:"service"`
}

// Services groups the service kinds pux currently supports. Proxy is the
// only kind in scope; the field is a slice so the document shape can
// grow additional kinds (static responder, redirector, ...) without
// breaking compatibility.
type Services struct {
	Proxy []ProxyService `yaml:"proxy"`
}

// ProxyService names a proxy-kind service and the upstream it forwards
// to.
type ProxyService struct {
	ID       string `yaml:"id"`
	Upstream string `yaml:"upstream"`
}

// Upstream is a logical origin: a set of interchangeable addresses and
// an optional SNI name for TLS to the origin.
type Upstream struct {
	ID    string   `yaml:"id"`
	Addrs []string `yaml:"addrs"`
	SNI   string   `yaml:"sni"`
}

// Cert names the SNI names a certificate chain and key cover, and where
// to load their PEM files from.
type Cert struct {
	Names []string `yaml:"names"`
	Chain string   `yaml:"chain"`
	Key   string   `yaml:"key"`
}

// Metrics configures the optional Prometheus exposition endpoint. An
// empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses the YAML document at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadCertificate loads the PEM-encoded certificate chain and private
// key named by c. A missing or malformed chain/key is a fatal startup
// error.
func LoadCertificate(c Cert) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(c.Chain, c.Key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("config: load certificate (chain=%s key=%s): %w", c.Chain, c.Key, err)
	}
	return cert, nil
}
