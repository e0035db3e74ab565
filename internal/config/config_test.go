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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	configPath := writeConfig(t, `
openai:
  apikey: "sk-test-key"  # pragma: allowlist secret
  endpoint: "https://api.openai.com/v1"
generation:
  model: "gpt-4o"
  max_tokens: 1000
  temperature: 0.2
  timeout: "45s"
cache:
  type: "redis"
  redis_address: "redis:6379"
  redis_db: 2
retrieval:
  max_attempts: 5
  retry_delay: "250ms"
history:
  db_path: "/var/lib/advisor/history.db"
  save_attempts: 4
server:
  port: 9090
logging:
  level: "debug"
  format: "json"
  output: "stdout"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-test-key" {
		t.Errorf("Expected OpenAI API key 'sk-test-key', got '%s'", config.OpenAI.APIKey)
	}
	if config.Generation.Temperature != 0.2 {
		t.Errorf("Expected generation temperature 0.2, got %f", config.Generation.Temperature)
	}
	if config.Generation.Timeout != 45*time.Second {
		t.Errorf("Expected generation timeout 45s, got %s", config.Generation.Timeout)
	}
	if config.Cache.Type != "redis" || config.Cache.RedisAddress != "redis:6379" || config.Cache.RedisDB != 2 {
		t.Errorf("Unexpected cache config %+v", config.Cache)
	}
	if config.Retrieval.MaxAttempts != 5 || config.Retrieval.RetryDelay != 250*time.Millisecond {
		t.Errorf("Unexpected retrieval config %+v", config.Retrieval)
	}
	if config.History.SaveAttempts != 4 || !config.History.Enabled {
		t.Errorf("Unexpected history config %+v", config.History)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Server.Port)
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	configPath := writeConfig(t, `
openai:
  apikey: "sk-default-key"
cache:
  type: "memory"
logging:
  level: "info"
  format: "json"
`)

	t.Setenv("OPENAI_API_KEY", "sk-env-key")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("PORT", "8181")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("AGRI_ADVISOR_RETRIEVAL_MAX_ATTEMPTS", "2")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-env-key" {
		t.Errorf("Expected env API key, got '%s'", config.OpenAI.APIKey)
	}
	if config.Cache.Type != "redis" || config.Cache.RedisAddress != "cache.internal:6380" {
		t.Errorf("Unexpected cache config %+v", config.Cache)
	}
	if config.Server.Port != 8181 {
		t.Errorf("Expected port 8181, got %d", config.Server.Port)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level 'warn', got '%s'", config.Logging.Level)
	}
	if config.Retrieval.MaxAttempts != 2 {
		t.Errorf("Expected prefixed env override of max_attempts, got %d", config.Retrieval.MaxAttempts)
	}
}

func TestDefaultValues(t *testing.T) {
	configPath := writeConfig(t, `
openai:
  apikey: "sk-test-key"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cache.Type != "memory" || config.Cache.Capacity != 1000 {
		t.Errorf("Unexpected cache defaults %+v", config.Cache)
	}
	if config.Retrieval.MaxAttempts != 3 || config.Retrieval.RetryDelay != time.Second {
		t.Errorf("Expected 3 attempts with a 1s delay, got %+v", config.Retrieval)
	}
	if config.Generation.Model != "gpt-4o-mini" || config.Generation.MaxTokens != 800 {
		t.Errorf("Unexpected generation defaults %+v", config.Generation)
	}
	if config.History.DBPath != "./data/history.db" || config.History.SaveAttempts != 3 {
		t.Errorf("Unexpected history defaults %+v", config.History)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}
	if config.Logging.Level != "info" || config.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults %+v", config.Logging)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()
	t.Setenv("OPENAI_API_KEY", "sk-env-only")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults and environment to be enough, got %v", err)
	}
	if config.OpenAI.APIKey != "sk-env-only" {
		t.Errorf("Unexpected API key %q", config.OpenAI.APIKey)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError string
	}{
		{
			name:        "missing API key",
			content:     "logging:\n  level: info\n",
			expectError: "openai.apikey",
		},
		{
			name:        "invalid cache type",
			content:     "openai:\n  apikey: sk-x\ncache:\n  type: memcached\n",
			expectError: "cache.type",
		},
		{
			name:        "redis without address",
			content:     "openai:\n  apikey: sk-x\ncache:\n  type: redis\n  redis_address: \"\"\n",
			expectError: "cache.redis_address",
		},
		{
			name:        "zero retrieval attempts",
			content:     "openai:\n  apikey: sk-x\nretrieval:\n  max_attempts: 0\n",
			expectError: "retrieval.max_attempts",
		},
		{
			name:        "temperature out of range",
			content:     "openai:\n  apikey: sk-x\ngeneration:\n  temperature: 3.5\n",
			expectError: "generation.temperature",
		},
		{
			name:        "invalid port",
			content:     "openai:\n  apikey: sk-x\nserver:\n  port: 70000\n",
			expectError: "server.port",
		},
		{
			name:        "invalid log level",
			content:     "openai:\n  apikey: sk-x\nlogging:\n  level: verbose\n",
			expectError: "logging.level",
		},
		{
			name:        "history enabled without path",
			content:     "openai:\n  apikey: sk-x\nhistory:\n  enabled: true\n  db_path: \"\"\n",
			expectError: "history.db_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("Expected error mentioning %q, got %v", tt.expectError, err)
			}
		})
	}
}

func TestHistoryDisabledSkipsValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "openai:\n  apikey: sk-x\nhistory:\n  enabled: false\n  db_path: \"\"\n"))
	if err != nil {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestConfigPathEnvironmentVariable(t *testing.T) {
	configPath := writeConfig(t, "openai:\n  apikey: sk-from-config-path\n")
	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("OPENAI_API_KEY", "")

	config, err := Load("ignored.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.OpenAI.APIKey != "sk-from-config-path" {
		t.Errorf("Expected key from CONFIG_PATH file, got %q", config.OpenAI.APIKey)
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(""); err == nil {
		t.Error("Expected error for missing CONFIG_PATH file")
	}
}

func TestLoadWithOptions_SkipValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	config, err := LoadWithOptions(LoadOptions{
		ConfigPath:       writeConfig(t, "logging:\n  level: info\n"),
		ValidateRequired: false,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.OpenAI.APIKey != "" {
		t.Errorf("Expected empty API key, got %q", config.OpenAI.APIKey)
	}
}

func TestMaskSensitiveValues(t *testing.T) {
	config := &Config{
		OpenAI: OpenAIConfig{APIKey: "sk-1234567890abcdef"},
		Cache:  CacheConfig{RedisPassword: "redis-secret-password"},
	}

	masked := config.MaskSensitiveValues()

	if masked.OpenAI.APIKey != "sk-12345***********" {
		t.Errorf("Unexpected masked API key %q", masked.OpenAI.APIKey)
	}
	if masked.Cache.RedisPassword != "redis-se*************" {
		t.Errorf("Unexpected masked password %q", masked.Cache.RedisPassword)
	}
	if config.OpenAI.APIKey != "sk-1234567890abcdef" {
		t.Error("Original config must not be modified")
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "12345678*"},
	}

	for _, tt := range tests {
		if got := maskValue(tt.input); got != tt.expected {
			t.Errorf("maskValue(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ENV", "")
	if got := getEnvironment(); got != "development" {
		t.Errorf("Expected development, got %s", got)
	}

	t.Setenv("ENV", "staging")
	if got := getEnvironment(); got != "staging" {
		t.Errorf("Expected staging, got %s", got)
	}

	t.Setenv("ENVIRONMENT", "production")
	if got := getEnvironment(); got != "production" {
		t.Errorf("Expected production, got %s", got)
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "cache.type", Message: "bad"}
	if err.Error() != "configuration validation failed for field 'cache.type': bad" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestWatchConfig(t *testing.T) {
	configPath := writeConfig(t, "openai:\n  apikey: sk-before\n")
	t.Setenv("OPENAI_API_KEY", "")

	changed := make(chan *Config, 1)
	err := WatchConfig(configPath, zaptest.NewLogger(t), func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}

	// Give the watcher time to start before rewriting the file
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configPath, []byte("openai:\n  apikey: sk-after\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case c := <-changed:
		if c.OpenAI.APIKey != "sk-after" {
			t.Errorf("Expected reloaded key sk-after, got %q", c.OpenAI.APIKey)
		}
	case <-time.After(3 * time.Second):
		t.Skip("file change notification not delivered on this filesystem")
	}
}
