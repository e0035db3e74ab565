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

// Package advisory defines the records that flow through the advisory
// pipeline: the normalized query, the extracted context, retrieved data
// points and the final response handed to the UI and history store.
package advisory

import (
	"fmt"
	"strings"
	"time"
)

// Language identifies the detected input language
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageHindi    Language = "hi"
	LanguageBengali  Language = "bn"
	LanguageGujarati Language = "gu"
	LanguageOdia     Language = "or"
	LanguageHinglish Language = "hinglish"
)

// DataType is the kind of agricultural data a retrieval agent produces
type DataType string

const (
	DataTypeWeather  DataType = "weather"
	DataTypeMarket   DataType = "market"
	DataTypeAdvisory DataType = "advisory"
	DataTypeSoil     DataType = "soil"
	DataTypeScheme   DataType = "scheme"
)

// AllDataTypes lists data types in retrieval and display order
var AllDataTypes = []DataType{
	DataTypeWeather,
	DataTypeMarket,
	DataTypeAdvisory,
	DataTypeSoil,
	DataTypeScheme,
}

// Freshness describes where a datum came from
type Freshness string

const (
	FreshnessFresh  Freshness = "fresh"
	FreshnessCached Freshness = "cached"
	FreshnessStale  Freshness = "stale"
)

// Reliability is the trust level attached to a source
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// FactualBasis summarizes how much retrieved data backs an answer
type FactualBasis string

const (
	FactualBasisHigh   FactualBasis = "high"
	FactualBasisMedium FactualBasis = "medium"
	FactualBasisLow    FactualBasis = "low"
)

// Query is the normalized form of a single user submission
type Query struct {
	OriginalText     string   `json:"original_text"`
	CleanedText      string   `json:"cleaned_text"`
	DetectedLanguage Language `json:"detected_language"`
	IsValid          bool     `json:"is_valid"`
	Error            string   `json:"error,omitempty"`
}

// Location is a state/district pair; either part may be empty
type Location struct {
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
}

// IsZero reports whether no part of the location is known
func (l *Location) IsZero() bool {
	return l == nil || (l.State == "" && l.District == "")
}

// Key returns a stable identifier used in cache keys
func (l *Location) Key() string {
	if l.IsZero() {
		return "unknown"
	}
	if l.District == "" {
		return l.State
	}
	return l.District + "," + l.State
}

// String renders the location for display
func (l *Location) String() string {
	if l.IsZero() {
		return ""
	}
	if l.District == "" {
		return titleCase(l.State)
	}
	if l.State == "" {
		return titleCase(l.District)
	}
	return titleCase(l.District) + ", " + titleCase(l.State)
}

// Matches reports whether two locations refer to the same place
func (l *Location) Matches(other *Location) bool {
	if l.IsZero() || other.IsZero() {
		return false
	}
	if l.District != "" && other.District != "" {
		return strings.EqualFold(l.District, other.District)
	}
	return l.State != "" && strings.EqualFold(l.State, other.State)
}

// Crop is a named crop and its growing season
type Crop struct {
	Name   string `json:"name"`
	Season string `json:"season,omitempty"`
}

// QueryContext is the structured context extracted from a query
type QueryContext struct {
	Location  *Location       `json:"location,omitempty"`
	Crop      *Crop           `json:"crop,omitempty"`
	QueryType map[string]bool `json:"query_type"`
	Language  Language        `json:"language"`
	Timestamp time.Time       `json:"timestamp"`
}

// HasType reports whether the query type set contains any of the given types
func (qc QueryContext) HasType(types ...string) bool {
	for _, t := range types {
		if qc.QueryType[t] {
			return true
		}
	}
	return false
}

// CropName returns the crop name or an empty string
func (qc QueryContext) CropName() string {
	if qc.Crop == nil {
		return ""
	}
	return qc.Crop.Name
}

// RetrievedDatum is one data point produced by a retrieval agent
type RetrievedDatum struct {
	SourceName  string                 `json:"source_name"`
	Type        DataType               `json:"type"`
	Payload     map[string]interface{} `json:"payload"`
	Confidence  float64                `json:"confidence"`
	Timestamp   time.Time              `json:"timestamp"`
	Location    *Location              `json:"location,omitempty"`
	Freshness   Freshness              `json:"freshness"`
	Reliability Reliability            `json:"reliability"`
}

// PayloadString returns a payload field as a string
func (d RetrievedDatum) PayloadString(key string) string {
	v, ok := d.Payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// SourceReference is the citation projection of a RetrievedDatum
type SourceReference struct {
	SourceName  string      `json:"source_name"`
	Type        DataType    `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	Location    string      `json:"location,omitempty"`
	Freshness   Freshness   `json:"freshness"`
	Reliability Reliability `json:"reliability"`
	Citation    string      `json:"citation"`
}

// Reference projects a datum into a SourceReference
func (d RetrievedDatum) Reference() SourceReference {
	ref := SourceReference{
		SourceName:  d.SourceName,
		Type:        d.Type,
		Timestamp:   d.Timestamp,
		Location:    d.Location.String(),
		Freshness:   d.Freshness,
		Reliability: d.Reliability,
	}
	ref.Citation = Citation(d.SourceName, d.Timestamp, ref.Location)
	return ref
}

// Citation combines source name, date and location
func Citation(source string, ts time.Time, location string) string {
	citation := fmt.Sprintf("%s (%s)", source, ts.Format("02 Jan 2006"))
	if location != "" {
		citation += " - " + location
	}
	return citation
}

// AdvisoryResponse is the final answer produced once per query
type AdvisoryResponse struct {
	AnswerText   string            `json:"answer_text"`
	Sources      []SourceReference `json:"sources"`
	Confidence   float64           `json:"confidence"`
	FactualBasis FactualBasis      `json:"factual_basis"`
	Disclaimer   string            `json:"disclaimer,omitempty"`
}

// References projects a list of data into citations
func References(data []RetrievedDatum) []SourceReference {
	refs := make([]SourceReference, 0, len(data))
	for _, d := range data {
		refs = append(refs, d.Reference())
	}
	return refs
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) > 0 && runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
