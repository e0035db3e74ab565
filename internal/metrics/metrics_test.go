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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("weather", "hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("weather", "miss"))

	ObserveCache("weather", true)
	ObserveCache("weather", false)
	ObserveCache("weather", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("weather", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheLookups.WithLabelValues("weather", "miss")))
}

func TestObserveAdvisory(t *testing.T) {
	before := testutil.ToFloat64(AdvisoryRequests.WithLabelValues("answered"))
	ObserveAdvisory("answered", time.Now().Add(-time.Second), 0.8)
	assert.Equal(t, before+1, testutil.ToFloat64(AdvisoryRequests.WithLabelValues("answered")))
}
