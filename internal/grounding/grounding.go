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

// Package grounding decides whether a draft answer needs retrieved data and
// scores how well the retrieved data backs the final answer.
package grounding

import (
	"math"
	"sort"
	"strings"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// Confidence weights. These breakpoints are fixed.
const (
	BaseConfidence     = 0.5
	FreshWeight        = 0.30
	CropMatchBonus     = 0.15
	LocationMatchBonus = 0.10
	DiversityPerType   = 0.05
	MaxDiversityBonus  = 0.20
	MaxConfidence      = 0.95
	MinSourcesForBasis = 2
	requestedCropField = "requested_crop"
)

// NeedsGrounding is the outcome of the grounding policy
type NeedsGrounding int

const (
	// No means the draft answer can be returned as is
	No NeedsGrounding = iota
	// Yes means the draft must be revised against retrieved data
	Yes
)

func (n NeedsGrounding) String() string {
	if n == Yes {
		return "yes"
	}
	return "no"
}

// groundingTypes trigger grounding when present in the query type set
var groundingTypes = []string{"weather", "market", "price", "scheme"}

// timeSensitiveWords in a draft answer trigger grounding
var timeSensitiveWords = []string{"current", "latest", "today"}

// Decide applies the grounding policy to a context and an optional draft
func Decide(qc advisory.QueryContext, draft string) NeedsGrounding {
	if !qc.Location.IsZero() || qc.CropName() != "" {
		return Yes
	}
	if qc.HasType(groundingTypes...) {
		return Yes
	}
	lower := strings.ToLower(draft)
	for _, w := range timeSensitiveWords {
		if strings.Contains(lower, w) {
			return Yes
		}
	}
	return No
}

// Confidence scores how well data supports an answer for qc, in [0, 0.95]
func Confidence(qc advisory.QueryContext, data []advisory.RetrievedDatum) float64 {
	score := BaseConfidence
	if len(data) == 0 {
		return score
	}

	fresh := countFresh(data)
	score += FreshWeight * float64(fresh) / float64(len(data))

	if cropMatched(qc, data) {
		score += CropMatchBonus
	}
	if locationMatched(qc, data) {
		score += LocationMatchBonus
	}

	types := make(map[advisory.DataType]struct{})
	for _, d := range data {
		types[d.Type] = struct{}{}
	}
	score += math.Min(MaxDiversityBonus, DiversityPerType*float64(len(types)))

	return math.Max(0, math.Min(MaxConfidence, score))
}

// FactualBasis labels the amount of data backing an answer
func FactualBasis(data []advisory.RetrievedDatum) advisory.FactualBasis {
	switch {
	case countFresh(data) >= MinSourcesForBasis:
		return advisory.FactualBasisHigh
	case len(data) >= MinSourcesForBasis:
		return advisory.FactualBasisMedium
	default:
		return advisory.FactualBasisLow
	}
}

// RelevantData orders data so entries matching the requested crop or
// location come first. Nothing is dropped.
func RelevantData(qc advisory.QueryContext, data []advisory.RetrievedDatum) []advisory.RetrievedDatum {
	out := make([]advisory.RetrievedDatum, len(data))
	copy(out, data)
	sort.SliceStable(out, func(i, j int) bool {
		return relevance(qc, out[i]) > relevance(qc, out[j])
	})
	return out
}

func relevance(qc advisory.QueryContext, d advisory.RetrievedDatum) int {
	r := 0
	if crop := qc.CropName(); crop != "" && strings.EqualFold(d.PayloadString(requestedCropField), crop) {
		r += 2
	}
	if qc.Location.Matches(d.Location) {
		r++
	}
	return r
}

func countFresh(data []advisory.RetrievedDatum) int {
	n := 0
	for _, d := range data {
		if d.Freshness == advisory.FreshnessFresh {
			n++
		}
	}
	return n
}

func cropMatched(qc advisory.QueryContext, data []advisory.RetrievedDatum) bool {
	crop := qc.CropName()
	if crop == "" {
		return false
	}
	for _, d := range data {
		if d.Type == advisory.DataTypeMarket && strings.EqualFold(d.PayloadString(requestedCropField), crop) {
			return true
		}
	}
	return false
}

func locationMatched(qc advisory.QueryContext, data []advisory.RetrievedDatum) bool {
	for _, d := range data {
		if qc.Location.Matches(d.Location) {
			return true
		}
	}
	return false
}
