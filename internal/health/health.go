// Copyright 2024 AI SA Assistant Project
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

// Package health reports the state of the advisory service and the stores it
// depends on.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependency states, ordered from best to worst
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	// DefaultTimeout bounds one full round of checks
	DefaultTimeout = 5 * time.Second
)

var statusRank = map[string]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

// CheckResult is the state of one dependency
type CheckResult struct {
	Status    string                 `json:"status"`
	Latency   time.Duration          `json:"latency"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthResponse is served on /health. Impaired lists the dependencies that
// are not healthy, in name order.
type HealthResponse struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Uptime       string                 `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Impaired     []string               `json:"impaired,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker reports the state of one dependency
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) CheckResult

// Check calls f
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager holds the named dependency checks of the service
type Manager struct {
	service string
	version string
	started time.Time
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewManager creates a manager with no checks registered
func NewManager(service, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		service:  service,
		version:  version,
		started:  time.Now(),
		timeout:  DefaultTimeout,
		logger:   logger,
		checkers: make(map[string]Checker),
	}
}

// SetTimeout changes the bound on one round of checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// AddChecker registers checker under name, replacing any previous one
func (m *Manager) AddChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// AddCheckerFunc registers a function as a checker
func (m *Manager) AddCheckerFunc(name string, checkFunc func(ctx context.Context) CheckResult) {
	m.AddChecker(name, CheckerFunc(checkFunc))
}

// snapshot returns the registered checkers sorted by name
func (m *Manager) snapshot() ([]string, map[string]Checker) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.checkers))
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		names = append(names, name)
		checkers[name] = c
	}
	sort.Strings(names)
	return names, checkers
}

// Check runs every registered check in name order. The overall status is
// the worst dependency status.
func (m *Manager) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	names, checkers := m.snapshot()
	resp := HealthResponse{
		Status:       StatusHealthy,
		Service:      m.service,
		Version:      m.version,
		Uptime:       time.Since(m.started).Round(time.Second).String(),
		Dependencies: make(map[string]CheckResult, len(names)),
	}

	for _, name := range names {
		start := time.Now()
		result := checkers[name].Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()
		resp.Dependencies[name] = result

		if result.Status != StatusHealthy {
			resp.Impaired = append(resp.Impaired, name)
		}
		if statusRank[result.Status] > statusRank[resp.Status] {
			resp.Status = result.Status
		}
	}

	if resp.Status != StatusHealthy {
		m.logger.Warn("Dependencies impaired",
			zap.String("status", resp.Status),
			zap.Strings("impaired", resp.Impaired))
	}
	resp.Timestamp = time.Now()
	return resp
}

// GinHandler serves Check as JSON. Degraded answers 200 since advice is
// still produced; unhealthy answers 503.
func (m *Manager) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := m.Check(c.Request.Context())

		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}

// DatabaseHealthChecker reports unhealthy when the database cannot be
// pinged, or degraded when the failure looks temporary
func DatabaseHealthChecker(name string, pingFunc func(ctx context.Context) error) Checker {
	return pingChecker("database", map[string]interface{}{"database": name}, pingFunc,
		func(err error) string {
			if isTemporaryError(err) {
				return StatusDegraded
			}
			return StatusUnhealthy
		})
}

// CacheHealthChecker reports degraded when the cache cannot be reached.
func CacheHealthChecker(backend string, pingFunc func(ctx context.Context) error) Checker {
	return pingChecker("cache", map[string]interface{}{"backend": backend}, pingFunc,
		func(error) string { return StatusDegraded })
}

// pingChecker turns a ping into a CheckResult; onError picks the status of a
// failed ping
func pingChecker(kind string, metadata map[string]interface{}, ping func(ctx context.Context) error, onError func(error) string) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Status: StatusHealthy, Metadata: metadata}

		if err := ping(ctx); err != nil {
			result.Status = onError(err)
			result.Error = fmt.Sprintf("%s ping failed: %v", kind, err)
		}

		result.Latency = time.Since(start)
		result.Timestamp = time.Now()
		return result
	})
}

var temporaryPatterns = []string{
	"timeout",
	"connection refused",
	"temporary failure",
	"network is unreachable",
	"context deadline exceeded",
	"database is locked",
}

// isTemporaryError matches error text that usually clears on its own
func isTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range temporaryPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
