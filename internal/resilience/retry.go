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

// Package resilience provides the fixed-delay retry helper and the service
// error taxonomy shared by the advisory service.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultAttempts is the total number of tries, the first included
	DefaultAttempts = 3
	// DefaultDelay is the fixed wait between tries
	DefaultDelay = time.Second
)

// RetryConfig holds configuration for fixed-delay retries. There is no
// exponential growth and no jitter: every wait is exactly Delay.
type RetryConfig struct {
	Attempts    int
	Delay       time.Duration
	RetryOnFunc func(error) bool
}

// DefaultRetryConfig returns 3 attempts with a 1 second delay
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    DefaultAttempts,
		Delay:       DefaultDelay,
		RetryOnFunc: DefaultRetryOnFunc,
	}
}

// DefaultRetryOnFunc determines if an error should trigger a retry
func DefaultRetryOnFunc(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// WithFixedDelay runs fn until it succeeds, returns a non-retryable error,
// or config.Attempts tries have been made. attempt is 1-based.
func WithFixedDelay(ctx context.Context, logger *zap.Logger, config RetryConfig, fn RetryFunc) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Attempts <= 0 {
		config.Attempts = 1
	}
	if config.RetryOnFunc == nil {
		config.RetryOnFunc = DefaultRetryOnFunc
	}

	var lastErr error
	for attempt := 1; attempt <= config.Attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", config.Attempts))
			}
			return nil
		}

		lastErr = err
		if !config.RetryOnFunc(err) {
			logger.Debug("Error is not retryable, stopping attempts",
				zap.Error(err),
				zap.Int("attempt", attempt))
			return err
		}

		if attempt == config.Attempts {
			break
		}

		logger.Debug("Retrying after delay",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", config.Delay))

		timer := time.NewTimer(config.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	logger.Warn("All retry attempts exhausted",
		zap.Error(lastErr),
		zap.Int("total_attempts", config.Attempts))

	return fmt.Errorf("operation failed after %d attempts: %w", config.Attempts, lastErr)
}
