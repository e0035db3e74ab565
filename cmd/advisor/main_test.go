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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/agri-advisor/internal/advisory"
	"github.com/your-org/agri-advisor/internal/config"
	"github.com/your-org/agri-advisor/internal/openai"
	"github.com/your-org/agri-advisor/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticGenerator struct {
	text string
}

func (g staticGenerator) Generate(context.Context, string) openai.Result {
	if g.text == "" {
		return openai.Failure("server error (status 500)")
	}
	return openai.Success(g.text)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Cache: config.CacheConfig{Type: "memory", Capacity: 64},
		Retrieval: config.RetrievalConfig{
			MaxAttempts: 3,
			RetryDelay:  time.Millisecond,
			RandomSeed:  42,
		},
		History: config.HistoryConfig{
			Enabled:      true,
			DBPath:       filepath.Join(t.TempDir(), "history.db"),
			SaveAttempts: 2,
			SaveDelay:    time.Millisecond,
		},
		Logging: config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, gen staticGenerator) (*ServiceDependencies, *gin.Engine) {
	t.Helper()
	deps, err := assembleDependencies(context.Background(), cfg, zaptest.NewLogger(t), gen)
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return deps, newRouter(deps)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdviseEndpoint(t *testing.T) {
	_, router := newTestServer(t, testConfig(t), staticGenerator{text: "Sell wheat at the nearest mandi."})

	w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "Wheat prices in Punjab"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp advisory.AdvisoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.AnswerText, "**Wheat prices in Punjab**")
	assert.Contains(t, resp.AnswerText, "Market Prices")
	assert.Contains(t, resp.AnswerText, "Sell wheat at the nearest mandi.")
	assert.NotEmpty(t, resp.Sources)
	assert.Equal(t, advisory.FactualBasisHigh, resp.FactualBasis)
}

func TestAdviseEndpointErrors(t *testing.T) {
	_, router := newTestServer(t, testConfig(t), staticGenerator{text: "ok"})

	tests := []struct {
		name         string
		body         interface{}
		expectedCode resilience.ErrorCode
	}{
		{"too short", AdviseRequest{Query: "hi"}, resilience.ErrorCodeInvalidQuery},
		{"no letters", AdviseRequest{Query: "12345"}, resilience.ErrorCodeInvalidQuery},
		{"missing query", map[string]string{"user_id": "u1"}, resilience.ErrorCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/advise", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var errResp resilience.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
			assert.Equal(t, string(tt.expectedCode), errResp.Code)
			assert.Equal(t, "req-123", errResp.RequestID)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestAdviseEndpointGenerationDown(t *testing.T) {
	_, router := newTestServer(t, testConfig(t), staticGenerator{})

	w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "weather in ludhiana"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp advisory.AdvisoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, advisory.FactualBasisLow, resp.FactualBasis)
	assert.Contains(t, resp.Disclaimer, "unavailable")
}

func TestHistoryEndpoints(t *testing.T) {
	deps, router := newTestServer(t, testConfig(t), staticGenerator{text: "Irrigate in the evening."})

	w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "irrigation in nashik", UserID: "farmer-1"})
	require.Equal(t, http.StatusOK, w.Code)
	deps.Saver.Wait()

	w = doJSON(t, router, http.MethodGet, "/api/history?user=farmer-1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	record := list.Records[0]
	assert.Equal(t, "irrigation in nashik", record.Query)
	assert.Contains(t, record.Answer, "Irrigate in the evening.")

	w = doJSON(t, router, http.MethodDelete, "/api/history/"+record.ID+"?user=someone-else", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/history/"+record.ID+"?user=farmer-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/history?user=farmer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Records)
}

func TestHistoryEndpointValidation(t *testing.T) {
	_, router := newTestServer(t, testConfig(t), staticGenerator{text: "ok"})

	for _, path := range []string{
		"/api/history",
		"/api/history?user=u1&limit=abc",
		"/api/history?user=u1&limit=-2",
	} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	w := doJSON(t, router, http.MethodDelete, "/api/history/some-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	deps, router := newTestServer(t, cfg, staticGenerator{text: "ok"})
	assert.Nil(t, deps.History)

	w := doJSON(t, router, http.MethodGet, "/api/history?user=u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "weather in pune", UserID: "u1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	_, router := newTestServer(t, testConfig(t), staticGenerator{text: "ok"})

	w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "soil health in indore"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	deps, ok := health["dependencies"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, deps, "history")

	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agri_advisor_advisory_requests_total")
	assert.Contains(t, w.Body.String(), "agri_advisor_retrieval_attempts_total")
}

func TestRedisCacheBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Cache = config.CacheConfig{Type: "redis", RedisAddress: mr.Addr()}
	deps, router := newTestServer(t, cfg, staticGenerator{text: "ok"})

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "weather in jaipur"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.NotEmpty(t, mr.Keys())

	result := deps.Health.Check(context.Background())
	require.Contains(t, result.Dependencies, "cache")
	assert.Equal(t, "healthy", result.Dependencies["cache"].Status)

	var resp advisory.AdvisoryResponse
	w := doJSON(t, router, http.MethodPost, "/api/advise", AdviseRequest{Query: "weather in jaipur"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, advisory.FreshnessCached, resp.Sources[0].Freshness)
}

func TestRedisCacheUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache = config.CacheConfig{Type: "redis", RedisAddress: "127.0.0.1:1"}

	_, err := assembleDependencies(context.Background(), cfg, zaptest.NewLogger(t), staticGenerator{text: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestLevelFor(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, levelFor(name), name)
	}
}

func TestCustomEndpoint(t *testing.T) {
	assert.Empty(t, customEndpoint(""))
	assert.Empty(t, customEndpoint("https://api.openai.com/v1"))
	assert.Equal(t, "http://localhost:11434/v1", customEndpoint("http://localhost:11434/v1"))
}

func TestPrintResponse(t *testing.T) {
	resp := advisory.AdvisoryResponse{
		AnswerText:   "**Question**\n\nAnswer",
		Sources:      []advisory.SourceReference{},
		Confidence:   0.5,
		FactualBasis: advisory.FactualBasisLow,
		Disclaimer:   "Data may be out of date.",
	}

	var text bytes.Buffer
	require.NoError(t, printResponse(&text, resp, false))
	assert.True(t, strings.HasPrefix(text.String(), "**Question**"))
	assert.Contains(t, text.String(), "Note: Data may be out of date.")

	var raw bytes.Buffer
	require.NoError(t, printResponse(&raw, resp, true))
	var decoded advisory.AdvisoryResponse
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Equal(t, resp.Disclaimer, decoded.Disclaimer)
	assert.Equal(t, resp.FactualBasis, decoded.FactualBasis)
}

func TestInitializeLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging = config.LoggingConfig{Level: "warn", Format: "json", Output: "stderr"}

	logger, err := initializeLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logLevel.SetLevel(levelFor("debug"))
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
