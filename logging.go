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
	"sync"

	"go.uber.org/zap"
)

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   = newDefaultLogger()
)

// newDefaultLogger builds the process-wide logger (zap's production
// configuration). cmd/pux and the tests use it as is; SetLogger can
// replace it.
func newDefaultLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	zap.ReplaceGlobals(logger)
	return logger
}

// Log returns the process-wide logger. Components log through this
// accessor rather than threading a logger through every constructor.
func Log() *zap.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the process-wide logger, e.g. with a development
// logger during tests or a custom-configured one from cmd/pux. It also
// replaces zap's package-global logger, which the upstream package uses
// so it can log without importing the pux package and creating an
// import cycle.
func SetLogger(l *zap.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
	zap.ReplaceGlobals(l)
}
