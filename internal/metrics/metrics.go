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

// Package metrics holds the prometheus instrumentation for the advisory
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agri_advisor"

var (
	AdvisoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_requests_total",
			Help:      "Advisory requests by outcome",
		},
		[]string{"outcome"},
	)

	AdvisoryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisory_duration_seconds",
			Help:      "End-to-end advisory pipeline latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	RetrievalAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_attempts_total",
			Help:      "Retrieval batches issued, including retries",
		},
	)

	RetrievalFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_fallbacks_total",
			Help:      "Retrievals that fell back to last known data",
		},
	)

	AgentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_errors_total",
			Help:      "Retrieval agent failures by data type",
		},
		[]string{"type"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Retrieval cache lookups by data type and result",
		},
		[]string{"type", "result"},
	)

	GenerationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Text generation calls by pass and result",
		},
		[]string{"pass", "result"},
	)

	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Confidence attached to advisory responses",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95},
		},
	)

	HistorySaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_saves_total",
			Help:      "Background history saves by result",
		},
		[]string{"result"},
	)
)

// ObserveAdvisory records the outcome and latency of one pipeline run
func ObserveAdvisory(outcome string, start time.Time, confidence float64) {
	AdvisoryRequests.WithLabelValues(outcome).Inc()
	AdvisoryDuration.Observe(time.Since(start).Seconds())
	if outcome != "invalid" {
		ConfidenceScore.Observe(confidence)
	}
}

// ObserveCache records a cache lookup result
func ObserveCache(dataType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(dataType, result).Inc()
}
