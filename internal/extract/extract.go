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

// Package extract derives location, crop and topic context from a
// normalized query using static lookup tables.
package extract

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// Extract builds the QueryContext for a normalized query. Absent matches
// leave the corresponding field nil; Extract never fails.
func Extract(q advisory.Query, now time.Time) advisory.QueryContext {
	text := strings.ToLower(q.CleanedText)

	return advisory.QueryContext{
		Location:  FindLocation(text),
		Crop:      FindCrop(text),
		QueryType: FindQueryTypes(text),
		Language:  q.DetectedLanguage,
		Timestamp: now,
	}
}

// FindLocation returns the first district match, falling back to the first
// state match.
func FindLocation(text string) *advisory.Location {
	for _, d := range districts {
		if containsTerm(text, d.name) {
			return &advisory.Location{State: d.state, District: canonicalDistrict(d)}
		}
	}
	for _, s := range states {
		if containsTerm(text, s.term) {
			return &advisory.Location{State: s.state}
		}
	}
	return nil
}

// canonicalDistrict returns the romanized name for Devanagari aliases
func canonicalDistrict(d district) string {
	if isASCII(d.name) {
		return d.name
	}
	if name, ok := districtAliases[d.name]; ok {
		return name
	}
	return d.name
}

var districtAliases = map[string]string{
	"लुधियाना": "ludhiana",
	"लखनऊ":    "lucknow",
	"पटना":    "patna",
	"इंदौर":   "indore",
	"जयपुर":   "jaipur",
}

// FindCrop returns the first crop in table order mentioned in text
func FindCrop(text string) *advisory.Crop {
	for _, c := range crops {
		if containsTerm(text, c.term) {
			return &advisory.Crop{Name: c.name, Season: c.season}
		}
	}
	return nil
}

// FindQueryTypes returns the set of topics mentioned in text
func FindQueryTypes(text string) map[string]bool {
	types := make(map[string]bool)
	for _, t := range topics {
		if containsTerm(text, t.keyword) {
			for _, typ := range t.types {
				types[typ] = true
			}
		}
	}
	return types
}

// containsTerm is a case-insensitive substring search anchored at word
// starts. Plural endings "s" and "es" are accepted after the term.
func containsTerm(text, term string) bool {
	text = strings.ToLower(text)
	term = strings.ToLower(term)

	offset := 0
	for {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if atWordStart(text, start) && acceptableTail(text[end:]) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func atWordStart(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordChar(prev)
}

func acceptableTail(rest string) bool {
	end := strings.IndexFunc(rest, func(c rune) bool { return !isWordChar(c) })
	if end < 0 {
		end = len(rest)
	}
	switch rest[:end] {
	case "", "s", "es":
		return true
	}
	return false
}

func isWordChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsMark(c) || unicode.IsDigit(c)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
