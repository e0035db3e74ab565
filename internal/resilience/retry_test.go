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

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

var errTransient = errors.New("transient")

func fastConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Delay = 5 * time.Millisecond
	return cfg
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Attempts)
	}
	if cfg.Delay != time.Second {
		t.Errorf("expected 1s delay, got %v", cfg.Delay)
	}
	if cfg.RetryOnFunc == nil {
		t.Error("RetryOnFunc should be set")
	}
}

func TestWithFixedDelay_Success(t *testing.T) {
	calls := 0
	err := WithFixedDelay(context.Background(), zaptest.NewLogger(t), fastConfig(), func(_ context.Context, _ int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithFixedDelay_SuccessAfterRetry(t *testing.T) {
	var attempts []int
	err := WithFixedDelay(context.Background(), zaptest.NewLogger(t), fastConfig(), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("unexpected attempts %v", attempts)
	}
}

func TestWithFixedDelay_Exhausted(t *testing.T) {
	calls := 0
	err := WithFixedDelay(context.Background(), nil, fastConfig(), func(_ context.Context, _ int) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithFixedDelay_NonRetryable(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryOnFunc = func(err error) bool { return !errors.Is(err, errTransient) }

	calls := 0
	err := WithFixedDelay(context.Background(), nil, cfg, func(_ context.Context, _ int) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithFixedDelay_ContextCancellation(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithFixedDelay(ctx, nil, cfg, func(_ context.Context, _ int) error {
			calls++
			return errTransient
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestWithFixedDelay_FixedTiming(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.Delay = 20 * time.Millisecond

	var stamps []time.Time
	_ = WithFixedDelay(context.Background(), nil, cfg, func(_ context.Context, _ int) error {
		stamps = append(stamps, time.Now())
		return errTransient
	})

	if len(stamps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < cfg.Delay || gap > 10*cfg.Delay {
			t.Errorf("gap %d = %v, expected about %v", i, gap, cfg.Delay)
		}
	}
}

func TestDefaultRetryOnFunc(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{errTransient, true},
	}
	for _, tt := range tests {
		if got := DefaultRetryOnFunc(tt.err); got != tt.want {
			t.Errorf("DefaultRetryOnFunc(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
