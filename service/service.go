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

// Package service defines the pluggable request-processing contract that
// the routes table resolves requests to.
package service

import "net/http"

// Service turns a matched request into a response, or an error the
// handler should render as an HTML error page. Returning a
// *pux.StatusError-compatible error (any error with a Status() int
// method) lets a service pick the rendered status code; any other error
// renders as 500.
type Service interface {
	Handle(req *http.Request) (*http.Response, error)
}
