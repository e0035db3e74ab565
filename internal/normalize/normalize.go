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

// Package normalize cleans raw farmer questions, detects their language
// and validates them before any retrieval or generation happens.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/your-org/agri-advisor/internal/advisory"
)

const (
	// MinQueryLength is the minimum number of runes in a valid cleaned query
	MinQueryLength = 3
	// MaxRepeatedRunes is the longest run of one character kept by cleaning
	MaxRepeatedRunes = 3

	msgTooShort   = "Please enter a complete question (at least 3 characters)."
	msgNoLetters  = "Please type your question using English or a supported Indian language (Hindi, Bengali, Gujarati, Odia)."
	msgEmptyInput = "Please enter a question about your crops, weather, prices or schemes."
)

// ErrInvalidQuery is returned by Check for queries that failed validation
var ErrInvalidQuery = errors.New("invalid query")

// scriptRange is an inclusive Unicode block
type scriptRange struct {
	lo, hi rune
}

var (
	devanagari = scriptRange{0x0900, 0x097F}
	bengali    = scriptRange{0x0980, 0x09FF}
	gujarati   = scriptRange{0x0A80, 0x0AFF}
	odia       = scriptRange{0x0B00, 0x0B7F}

	indicScripts = []scriptRange{devanagari, bengali, gujarati, odia}

	// allowedPunctuation is kept verbatim by cleaning
	allowedPunctuation = ".,?!'\"-:;()/%₹&+"
)

func (r scriptRange) contains(c rune) bool {
	return c >= r.lo && c <= r.hi
}

func (r scriptRange) in(text string) bool {
	for _, c := range text {
		if r.contains(c) {
			return true
		}
	}
	return false
}

// Normalize turns raw input into a Query. It never fails; invalid input is
// reported through Query.IsValid and Query.Error.
func Normalize(raw string) advisory.Query {
	q := advisory.Query{OriginalText: raw}

	cleaned := Clean(raw)
	q.DetectedLanguage = DetectLanguage(cleaned)

	if q.DetectedLanguage == advisory.LanguageHinglish {
		cleaned = Transliterate(cleaned)
	}
	cleaned = CorrectSpelling(cleaned)
	q.CleanedText = cleaned

	if msg := validate(cleaned, raw); msg != "" {
		q.Error = msg
		return q
	}

	q.IsValid = true
	return q
}

// Check converts an invalid Query into an error wrapping ErrInvalidQuery
func Check(q advisory.Query) error {
	if q.IsValid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuery, q.Error)
}

// Clean applies Unicode normalization, character filtering, repeat
// collapsing, lower-casing and whitespace collapsing. Every Unicode space
// becomes a single ASCII space. Clean is idempotent.
func Clean(raw string) string {
	text := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(text))

	var prev rune
	run := 0
	for _, c := range text {
		if !allowed(c) || unicode.IsSpace(c) {
			c = ' '
		}
		c = unicode.ToLower(c)

		if c == prev {
			run++
		} else {
			prev = c
			run = 1
		}
		if run > MaxRepeatedRunes {
			continue
		}
		b.WriteRune(c)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func allowed(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case unicode.IsSpace(c):
		return true
	case strings.ContainsRune(allowedPunctuation, c):
		return true
	}
	for _, r := range indicScripts {
		if r.contains(c) {
			return true
		}
	}
	return false
}

func validate(cleaned, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return msgEmptyInput
	}
	if utf8.RuneCountInString(cleaned) < MinQueryLength {
		return msgTooShort
	}
	if !hasAllowedLetter(cleaned) {
		return msgNoLetters
	}
	return ""
}

func hasAllowedLetter(text string) bool {
	for _, c := range text {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
		for _, r := range indicScripts {
			if r.contains(c) && (unicode.IsLetter(c) || unicode.IsMark(c)) {
				return true
			}
		}
	}
	return false
}
