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

// Package openai is the external text generation client. Every call yields a
// Result; transport and API failures never surface as errors to callers.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = openai.GPT4oMini
	// DefaultMaxTokens bounds the length of a generated answer
	DefaultMaxTokens = 800
	// DefaultTemperature keeps answers close to the supplied data
	DefaultTemperature = 0.3
	// DefaultTimeout bounds one generation call
	DefaultTimeout = 30 * time.Second

	// ApologyText replaces the answer whenever generation fails
	ApologyText = "Sorry, I am unable to generate an answer right now. Please try again in a little while."
)

// Config holds generation client settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Result is the outcome of one generation call: either Success with text or
// Failure with a reason.
type Result struct {
	ok     bool
	text   string
	reason string
}

// Success wraps generated text
func Success(text string) Result {
	return Result{ok: true, text: text}
}

// Failure wraps the reason a generation call failed
func Failure(reason string) Result {
	return Result{reason: reason}
}

// OK reports whether the result is a Success
func (r Result) OK() bool { return r.ok }

// Text returns the generated text; empty for a Failure
func (r Result) Text() string { return r.text }

// Reason returns the failure reason; empty for a Success
func (r Result) Reason() string { return r.reason }

// TextOr returns the generated text or fallback for a Failure
func (r Result) TextOr(fallback string) string {
	if r.ok {
		return r.text
	}
	return fallback
}

func (r Result) String() string {
	if r.ok {
		return "success"
	}
	return "failure: " + r.reason
}

// Client wraps the go-openai client for chat completions
type Client struct {
	client      *openai.Client
	logger      *zap.Logger
	model       string
	maxTokens   int
	temperature float32
}

// NewClient creates a generation client from cfg
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	// Keys for compatible endpoints behind a custom base URL use other formats.
	if cfg.BaseURL == "" && !strings.HasPrefix(cfg.APIKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		logger:      logger,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}

	logger.Info("Generation client initialized",
		zap.String("model", c.model),
		zap.Int("max_tokens", c.maxTokens),
		zap.Float64("temperature", float64(c.temperature)),
		zap.Duration("timeout", cfg.Timeout),
	)
	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as a single chat completion. It makes exactly one
// request; failures come back as a Failure result.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", c.model),
		zap.String("prompt_preview", truncateText(prompt, 100)),
	)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		reason := describeAPIError(err)
		c.logger.Warn("Generation failed",
			zap.String("reason", reason),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return Failure(reason)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("Generation returned no choices")
		return Failure("no choices returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		c.logger.Warn("Generation returned empty content",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
		return Failure("empty completion")
	}

	c.logger.Debug("Chat completion successful",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Success(text)
}

// GenerateText returns the generated text, or ApologyText on any failure
func (c *Client) GenerateText(ctx context.Context, prompt string) string {
	return c.Generate(ctx, prompt).TextOr(ApologyText)
}

// describeAPIError turns a client error into a short failure reason
func describeAPIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return "unauthorized"
		case http.StatusTooManyRequests:
			return "rate limited"
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Sprintf("server error (status %d)", apiErr.HTTPStatusCode)
		default:
			return fmt.Sprintf("api error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("request error (status %d)", reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	return "transport error"
}

// truncateText truncates text to a maximum length for logging
func truncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}

// SystemPrompt frames every generation call
const SystemPrompt = `You are an agricultural extension advisor helping small and marginal farmers in India.

When responding:
- Answer in the language of the question
- Give short, practical steps a farmer can act on this week
- Use only the data you are given for prices, weather and schemes; never invent numbers
- Mention when data may be out of date
- Recommend contacting the local Krishi Vigyan Kendra for field-specific diagnosis`
