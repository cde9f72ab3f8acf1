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
	"fmt"
	"net/http"
)

// StatusError carries a specific HTTP status that a Service or the
// Handler wants rendered as the error page, bypassing the generic
// 500 fallback.
type StatusError int

func (e StatusError) Error() string {
	return fmt.Sprintf("status %d %s", int(e), http.StatusText(int(e)))
}

// Status is the HTTP status code this error should be rendered as.
func (e StatusError) Status() int {
	return int(e)
}

// NewStatusError wraps a status code as an error for Service.Handle to
// return when it wants the handler to render a specific error page
// instead of forwarding a response.
func NewStatusError(code int) error {
	return StatusError(code)
}

// statusCoder is any error that wants to pick its own rendered HTTP
// status, not just the built-in StatusError.
type statusCoder interface {
	Status() int
}

// statusFromError extracts the HTTP status a handled error wants
// rendered. It returns ok=false for errors that don't carry a status,
// in which case the caller should fall back to 500.
func statusFromError(err error) (code int, ok bool) {
	sc, matches := err.(statusCoder)
	if !matches {
		return 0, false
	}
	return sc.Status(), true
}
