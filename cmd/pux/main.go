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

// Command pux runs the reverse proxy described by ./config.yaml.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MarcelCoding/pux"
	"github.com/MarcelCoding/pux/certstore"
	"github.com/MarcelCoding/pux/config"
	"github.com/MarcelCoding/pux/service"
	"github.com/MarcelCoding/pux/upstream"
)

// version is set at build time via -ldflags.
var version = "dev"

const metricsShutdownTimeout = 5 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "pux",
		Short:         "pux is a TLS-terminating HTTP reverse proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the pux version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		pux.Log().Error("fatal error", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return err
	}

	certStore, err := buildCertStore(cfg.Certs)
	if err != nil {
		return err
	}

	upstreams := make(map[string]*upstream.Upstream, len(cfg.Upstreams))
	for _, u := range cfg.Upstreams {
		upstreams[u.ID] = upstream.New(u.ID, u.Addrs, u.SNI)
	}
	defer func() {
		for _, u := range upstreams {
			u.Close()
		}
	}()

	services := make(map[string]service.Service, len(cfg.Services.Proxy))
	for _, p := range cfg.Services.Proxy {
		up, ok := upstreams[p.Upstream]
		if !ok {
			return fmt.Errorf("service %s: unknown upstream %s", p.ID, p.Upstream)
		}
		services[p.ID] = service.NewProxy(up)
	}

	entrypoints := make([]*pux.Entrypoint, 0, len(cfg.Entrypoints))
	for _, epCfg := range cfg.Entrypoints {
		routes := pux.NewRoutes()
		for _, r := range cfg.Routes {
			if !contains(r.Entrypoints, epCfg.ID) {
				continue
			}
			svc, ok := services[r.Service]
			if !ok {
				return fmt.Errorf("route %s%v: unknown service %s", r.Host, r.Path, r.Service)
			}
			routes.Insert(r.Host, r.Path, svc)
		}

		handler := pux.NewHandler(epCfg.ID, routes)

		var tlsConfig *tls.Config
		if epCfg.TLS {
			tlsConfig = &tls.Config{
				GetCertificate: certStore.GetCertificate,
				NextProtos:     []string{"h2", "http/1.1"},
			}
		}

		ep := pux.NewEntrypoint(epCfg.ID, epCfg.Addr, tlsConfig, epCfg.ProxyProtocol, handler)
		if err := ep.Bind(); err != nil {
			// Bind failures are per-entrypoint tolerant: log and
			// continue with the remaining entrypoints.
			pux.Log().Error("failed to bind entrypoint", zap.String("entrypoint", epCfg.ID), zap.Error(err))
			continue
		}

		pux.Log().Info("entrypoint bound", zap.String("entrypoint", epCfg.ID), zap.String("addr", epCfg.Addr))
		entrypoints = append(entrypoints, ep)
	}

	supervisor := pux.NewSupervisor(entrypoints)

	stopMetrics := serveMetrics(cfg.Metrics.Addr)
	defer stopMetrics()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		pux.Log().Info("shutdown signal received")
		supervisor.Shutdown()
	}()

	return supervisor.Start()
}

func buildCertStore(certs []config.Cert) (*certstore.Store, error) {
	store := certstore.New("m4rc3l.de")

	for _, c := range certs {
		cert, err := config.LoadCertificate(c)
		if err != nil {
			return nil, err
		}
		for _, name := range c.Names {
			store.Insert(name, &cert)
		}
	}

	return store, nil
}

// serveMetrics starts the optional Prometheus exposition endpoint and
// returns a function that shuts it down. It is a no-op when addr is
// empty.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pux.Log().Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
