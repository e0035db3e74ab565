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

// Package cache stores retrieved agricultural data under a composite
// (type, location, crop) key with per-type expiry. Expiry is checked at
// read time, so a hit never returns an expired entry.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/agri-advisor/internal/advisory"
)

const (
	// TypeMemory selects the in-process cache
	TypeMemory = "memory"
	// TypeRedis selects the shared redis cache
	TypeRedis = "redis"

	// DefaultCapacity bounds the in-process cache
	DefaultCapacity = 1000
	// keyPrefix namespaces redis keys
	keyPrefix = "agri:data:"
)

// Class TTLs per data type
const (
	WeatherTTL  = time.Hour
	MarketTTL   = 24 * time.Hour
	AdvisoryTTL = 24 * time.Hour
	SoilTTL     = 7 * 24 * time.Hour
	SchemeTTL   = 7 * 24 * time.Hour
)

// TTLFor returns the class TTL for a data type
func TTLFor(t advisory.DataType) time.Duration {
	switch t {
	case advisory.DataTypeWeather:
		return WeatherTTL
	case advisory.DataTypeMarket:
		return MarketTTL
	case advisory.DataTypeAdvisory:
		return AdvisoryTTL
	case advisory.DataTypeSoil:
		return SoilTTL
	case advisory.DataTypeScheme:
		return SchemeTTL
	default:
		return time.Hour
	}
}

// Key identifies a cached datum
type Key struct {
	Type     advisory.DataType
	Location string
	Crop     string
}

// NewKey builds a cache key from a data type and query context
func NewKey(t advisory.DataType, qc advisory.QueryContext) Key {
	crop := qc.CropName()
	if crop == "" {
		crop = "any"
	}
	return Key{
		Type:     t,
		Location: qc.Location.Key(),
		Crop:     crop,
	}
}

// String renders the key in its storage form
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Type, strings.ToLower(k.Location), strings.ToLower(k.Crop))
}

// Cache is the retrieval cache contract used by the agents
type Cache interface {
	// Get returns an unexpired datum with freshness downgraded to cached
	Get(ctx context.Context, key Key) (advisory.RetrievedDatum, bool)
	// Put stores a datum for ttl
	Put(ctx context.Context, key Key, datum advisory.RetrievedDatum, ttl time.Duration)
	// Purge drops every entry
	Purge(ctx context.Context) error
}

// markCached labels a hit as cached whatever freshness it was stored with
func markCached(d advisory.RetrievedDatum) advisory.RetrievedDatum {
	d.Freshness = advisory.FreshnessCached
	return d
}

func copyPayload(p map[string]interface{}) map[string]interface{} {
	if p == nil {
		return nil
	}
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
