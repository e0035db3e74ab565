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

// Package retrieve runs the applicable retrieval agents for a query context,
// retrying the whole batch with a fixed delay when it comes back empty.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/agri-advisor/internal/advisory"
	"github.com/your-org/agri-advisor/internal/agents"
	"github.com/your-org/agri-advisor/internal/metrics"
	"github.com/your-org/agri-advisor/internal/resilience"
)

// ErrNoData is returned by a batch that produced zero data
var ErrNoData = errors.New("retrieval batch returned no data")

// Orchestrator calls retrieval agents and applies the retry and fallback policy
type Orchestrator struct {
	agents []agents.Agent
	retry  resilience.RetryConfig
	logger *zap.Logger
	errs   *resilience.ErrorHandler
	now    func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRetryConfig overrides the default 3 attempts with a 1 second delay
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(o *Orchestrator) {
		o.retry = cfg
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for fallback data
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator over the given agents
func NewOrchestrator(agentList []agents.Agent, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents: agentList,
		retry:  resilience.DefaultRetryConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.errs = resilience.NewErrorHandler(o.logger)
	// Only an empty batch is retried. Cancellation still stops the loop.
	o.retry.RetryOnFunc = func(err error) bool {
		return errors.Is(err, ErrNoData)
	}
	return o
}

// Applicable returns the agents that apply to qc, in registration order
func (o *Orchestrator) Applicable(qc advisory.QueryContext) []agents.Agent {
	var out []agents.Agent
	for _, a := range o.agents {
		if a.Applicable(qc) {
			out = append(out, a)
		}
	}
	return out
}

// Retrieve returns the data gathered for qc. It never fails: an exhausted
// retry yields the last known weather datum when a location is known, and an
// empty list otherwise.
func (o *Orchestrator) Retrieve(ctx context.Context, qc advisory.QueryContext) []advisory.RetrievedDatum {
	applicable := o.Applicable(qc)
	if len(applicable) == 0 {
		o.logger.Debug("No applicable retrieval agents")
		return o.fallback(qc)
	}

	var data []advisory.RetrievedDatum
	err := resilience.WithFixedDelay(ctx, o.logger, o.retry, func(ctx context.Context, attempt int) error {
		metrics.RetrievalAttempts.Inc()
		data = o.runBatch(ctx, qc, applicable)
		if len(data) == 0 {
			o.logger.Info("Retrieval batch returned no data",
				zap.Int("attempt", attempt),
				zap.Int("agents", len(applicable)))
			return ErrNoData
		}
		return nil
	})
	if err == nil {
		return data
	}

	o.logger.Warn("Retrieval exhausted", zap.Error(err))
	return o.fallback(qc)
}

func (o *Orchestrator) fallback(qc advisory.QueryContext) []advisory.RetrievedDatum {
	if qc.Location.IsZero() {
		return []advisory.RetrievedDatum{}
	}
	metrics.RetrievalFallbacks.Inc()
	o.logger.Info("Using last known weather data",
		zap.String("location", qc.Location.Key()))
	return []advisory.RetrievedDatum{agents.LastKnownWeather(qc, o.now())}
}

// runBatch calls every agent once. Agent failures and panics are logged and
// contribute nothing; the result keeps agent order.
func (o *Orchestrator) runBatch(ctx context.Context, qc advisory.QueryContext, batch []agents.Agent) []advisory.RetrievedDatum {
	results := make([][]advisory.RetrievedDatum, len(batch))

	g, gCtx := errgroup.WithContext(ctx)
	for idx, agent := range batch {
		g.Go(func() error {
			got, err := o.call(gCtx, agent, qc)
			if err != nil {
				metrics.AgentErrors.WithLabelValues(string(agent.Type())).Inc()
				o.errs.LogError(resilience.NewRetrievalFailure(string(agent.Type()), err), "retrieve",
					zap.String("agent", string(agent.Type())))
				return nil
			}
			results[idx] = got
			return nil
		})
	}
	_ = g.Wait()

	var out []advisory.RetrievedDatum
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (o *Orchestrator) call(ctx context.Context, agent agents.Agent, qc advisory.QueryContext) (data []advisory.RetrievedDatum, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return agent.Retrieve(ctx, qc)
}
