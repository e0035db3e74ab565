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

package history

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/metrics"
)

// Inserter persists one record
type Inserter interface {
	Insert(ctx context.Context, rec Record) error
}

// SaverConfig controls background save retries
type SaverConfig struct {
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultSaverConfig returns 3 attempts, 500ms apart, 10s overall
func DefaultSaverConfig() SaverConfig {
	return SaverConfig{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		Timeout:  10 * time.Second,
	}
}

// Saver writes records in the background. Failures are logged and counted
// but never reach the caller.
type Saver struct {
	store  Inserter
	config SaverConfig
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewSaver creates a background saver for store
func NewSaver(store Inserter, config SaverConfig, logger *zap.Logger) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Attempts == 0 {
		config.Attempts = DefaultSaverConfig().Attempts
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSaverConfig().Timeout
	}
	return &Saver{store: store, config: config, logger: logger}
}

// Save schedules rec to be written and returns immediately
func (s *Saver) Save(rec Record) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.save(rec)
	}()
}

func (s *Saver) save(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	err := retry.Do(
		func() error {
			return s.store.Insert(ctx, rec)
		},
		retry.Context(ctx),
		retry.Attempts(s.config.Attempts),
		retry.Delay(s.config.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("Retrying history save",
				zap.String("id", rec.ID),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		metrics.HistorySaves.WithLabelValues("failure").Inc()
		s.logger.Error("Failed to save history record",
			zap.String("id", rec.ID),
			zap.String("user_id", rec.UserID),
			zap.Error(err))
		return
	}
	metrics.HistorySaves.WithLabelValues("success").Inc()
}

// Wait blocks until every scheduled save has finished
func (s *Saver) Wait() {
	s.wg.Wait()
}
