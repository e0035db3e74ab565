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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/cache"
	"github.com/your-org/agri-advisor/internal/history"
)

func staticChecker(status, msg string) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		return CheckResult{Status: status, Error: msg, Timestamp: time.Now()}
	}
}

func TestManager_Check(t *testing.T) {
	manager := NewManager("agri-advisor", "1.0.0", zap.NewNop())
	manager.AddCheckerFunc("healthy", staticChecker(StatusHealthy, ""))
	manager.AddCheckerFunc("unhealthy", staticChecker(StatusUnhealthy, "history store is down"))

	result := manager.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}
	if result.Service != "agri-advisor" || result.Version != "1.0.0" {
		t.Errorf("Unexpected service identity %s %s", result.Service, result.Version)
	}
	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
	if len(result.Impaired) != 1 || result.Impaired[0] != "unhealthy" {
		t.Errorf("Expected only the unhealthy dependency to be impaired, got %v", result.Impaired)
	}
	if result.Uptime == "" {
		t.Error("Expected uptime to be reported")
	}
	if result.Dependencies["unhealthy"].Error != "history store is down" {
		t.Errorf("Expected error message, got %s", result.Dependencies["unhealthy"].Error)
	}
}

func TestManager_Check_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		expected string
	}{
		{"no dependencies", nil, StatusHealthy},
		{"all healthy", []string{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []string{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins over degraded", []string{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager("agri-advisor", "test", nil)
			for i, s := range tt.statuses {
				manager.AddCheckerFunc(string(rune('a'+i)), staticChecker(s, ""))
			}
			if got := manager.Check(context.Background()).Status; got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestManager_Check_Timeout(t *testing.T) {
	manager := NewManager("agri-advisor", "1.0.0", zap.NewNop())
	manager.SetTimeout(100 * time.Millisecond)

	manager.AddCheckerFunc("slow", func(ctx context.Context) CheckResult {
		select {
		case <-time.After(2 * time.Second):
			return CheckResult{Status: StatusHealthy}
		case <-ctx.Done():
			return CheckResult{Status: StatusUnhealthy, Error: "timeout"}
		}
	})

	if result := manager.Check(context.Background()); result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy due to timeout, got %s", result.Status)
	}
}

func TestDatabaseHealthChecker_WithHistoryStore(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	checker := DatabaseHealthChecker("history", store.Ping)
	if result := checker.Check(context.Background()); result.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s (%s)", result.Status, result.Error)
	}

	_ = store.Close()
	if result := checker.Check(context.Background()); result.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy after close, got %s", result.Status)
	}
}

func TestDatabaseHealthChecker_TemporaryFailure(t *testing.T) {
	checker := DatabaseHealthChecker("history", func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", result.Status)
	}
	if result.Error != "database ping failed: database is locked" {
		t.Errorf("Unexpected error text %q", result.Error)
	}
	if result.Metadata["database"] != "history" {
		t.Errorf("Expected database metadata, got %v", result.Metadata)
	}
}

func TestManager_HealthResponseFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewManager("agri-advisor", "1.2.3", zap.NewNop())
	manager.AddCheckerFunc("cache", staticChecker(StatusDegraded, "cache ping failed"))
	manager.AddCheckerFunc("history", staticChecker(StatusHealthy, ""))

	router := gin.New()
	router.GET("/health", manager.GinHandler())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"status", "service", "version", "uptime", "dependencies", "impaired", "timestamp"} {
		if _, ok := body[key]; !ok {
			t.Errorf("Expected %q in health response", key)
		}
	}
	for _, key := range []string{"metadata", "environment"} {
		if _, ok := body[key]; ok {
			t.Errorf("Unexpected %q in health response", key)
		}
	}
	if body["status"] != StatusDegraded {
		t.Errorf("Expected degraded, got %v", body["status"])
	}
}

func TestCacheHealthChecker_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := cache.NewRedisCacheWithClient(client, zap.NewNop())

	checker := CacheHealthChecker(cache.TypeRedis, rc.Ping)
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s (%s)", result.Status, result.Error)
	}
	if result.Metadata["backend"] != cache.TypeRedis {
		t.Errorf("Expected backend metadata, got %v", result.Metadata)
	}

	mr.Close()
	if result := checker.Check(context.Background()); result.Status != StatusDegraded {
		t.Errorf("Expected degraded with redis down, got %s", result.Status)
	}
}

func TestIsTemporaryError(t *testing.T) {
	temporaryErrors := []error{
		errors.New("timeout occurred"),
		errors.New("dial tcp: connection refused"),
		errors.New("temporary failure in name resolution"),
		errors.New("network is unreachable"),
		errors.New("context deadline exceeded"),
		errors.New("database is locked"),
	}
	for _, err := range temporaryErrors {
		if !isTemporaryError(err) {
			t.Errorf("Expected %v to be temporary error", err)
		}
	}

	nonTemporaryErrors := []error{
		errors.New("sql: database is closed"),
		errors.New("permission denied"),
	}
	for _, err := range nonTemporaryErrors {
		if isTemporaryError(err) {
			t.Errorf("Expected %v to not be temporary error", err)
		}
	}

	if isTemporaryError(nil) {
		t.Error("Expected nil error to not be temporary")
	}
}

func TestManager_GinHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		status     string
		statusCode int
	}{
		{"healthy", StatusHealthy, http.StatusOK},
		{"degraded keeps 200", StatusDegraded, http.StatusOK},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager("agri-advisor", "1.0.0", zap.NewNop())
			manager.AddCheckerFunc("dep", staticChecker(tt.status, ""))

			router := gin.New()
			router.GET("/health", manager.GinHandler())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, rr.Code)
			}
			var body HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != tt.status {
				t.Errorf("Expected body status %s, got %s", tt.status, body.Status)
			}
		})
	}
}
