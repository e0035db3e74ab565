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

// Package agents contains the retrieval agents that supply weather, mandi
// price, crop advisory, soil and government scheme data. The data is
// synthesized from templates and bounded random values; every agent reads
// through the shared retrieval cache first.
package agents

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/advisory"
	"github.com/your-org/agri-advisor/internal/cache"
	"github.com/your-org/agri-advisor/internal/metrics"
)

// Agent retrieves one type of agricultural data for a query context
type Agent interface {
	Type() advisory.DataType
	Applicable(qc advisory.QueryContext) bool
	Retrieve(ctx context.Context, qc advisory.QueryContext) ([]advisory.RetrievedDatum, error)
}

// Random is a goroutine-safe source of bounded random values
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom creates a Random seeded with seed
func NewRandom(seed int64) *Random {
	return &Random{r: rand.New(rand.NewSource(seed))}
}

// Between returns a value in [lo, hi) rounded to one decimal place
func (r *Random) Between(lo, hi float64) float64 {
	r.mu.Lock()
	v := lo + r.r.Float64()*(hi-lo)
	r.mu.Unlock()
	return math.Round(v*10) / 10
}

// Pick returns one of options
func (r *Random) Pick(options []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return options[r.r.Intn(len(options))]
}

// Deps are the collaborators shared by all agents
type Deps struct {
	Cache  cache.Cache
	Random *Random
	Logger *zap.Logger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = cache.NewMemoryCache(cache.DefaultCapacity)
	}
	if d.Random == nil {
		d.Random = NewRandom(time.Now().UnixNano())
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// generator synthesizes one fresh datum for a context
type generator func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum

// cachedAgent implements the read-through cache behaviour shared by every agent
type cachedAgent struct {
	deps       Deps
	dataType   advisory.DataType
	applicable func(qc advisory.QueryContext) bool
	generate   generator
}

func (a *cachedAgent) Type() advisory.DataType {
	return a.dataType
}

func (a *cachedAgent) Applicable(qc advisory.QueryContext) bool {
	return a.applicable(qc)
}

func (a *cachedAgent) Retrieve(ctx context.Context, qc advisory.QueryContext) ([]advisory.RetrievedDatum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.NewKey(a.dataType, qc)
	if d, ok := a.deps.Cache.Get(ctx, key); ok {
		metrics.ObserveCache(string(a.dataType), true)
		a.deps.Logger.Debug("Serving cached data",
			zap.String("type", string(a.dataType)),
			zap.String("key", key.String()),
		)
		return []advisory.RetrievedDatum{d}, nil
	}
	metrics.ObserveCache(string(a.dataType), false)

	d := a.generate(qc, a.deps.Now())
	a.deps.Cache.Put(ctx, key, d, cache.TTLFor(a.dataType))

	a.deps.Logger.Debug("Generated fresh data",
		zap.String("type", string(a.dataType)),
		zap.String("source", d.SourceName),
		zap.String("key", key.String()),
	)
	return []advisory.RetrievedDatum{d}, nil
}

// NewDefaultAgents returns the five agents in retrieval order
func NewDefaultAgents(deps Deps) []Agent {
	deps = deps.withDefaults()
	return []Agent{
		NewWeatherAgent(deps),
		NewMarketAgent(deps),
		NewAdvisoryAgent(deps),
		NewSoilAgent(deps),
		NewSchemeAgent(deps),
	}
}

func hasLocation(qc advisory.QueryContext) bool {
	return !qc.Location.IsZero()
}

func copyLocation(l *advisory.Location) *advisory.Location {
	if l.IsZero() {
		return nil
	}
	c := *l
	return &c
}
