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

package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// LanguageRule maps a predicate over cleaned text to a language.
// Rules are evaluated in order and the first match wins.
type LanguageRule struct {
	Name     string
	Matches  func(text string) bool
	Language advisory.Language
}

// MinHinglishHits is how many romanized Hindi words a text needs before it
// counts as Hinglish. Single loanwords like "kisan" or "mandi" are common in
// English farming questions.
const MinHinglishHits = 2

// hinglishPatterns match romanized Hindi function words and farming nouns
var hinglishPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(kya|kaise|kaisa|kaisi|kab|kitna|kitne|kahan|kyun|kaun)\b`),
	regexp.MustCompile(`\b(hai|hain|mein|mera|meri|hamara|aur|nahi)\b`),
	regexp.MustCompile(`\b(kheti|fasal|kisan|mausam|barish|mitti|khad|beej|keet)\b`),
	regexp.MustCompile(`\b(gehun|dhan|chawal|ganna|kapas|sarson|makka|aloo|pyaz)\b`),
	regexp.MustCompile(`\b(bhav|mandi|daam|yojana|sarkari|sinchai|pani)\b`),
}

// LanguageRules is the ordered detection table
var LanguageRules = []LanguageRule{
	{Name: "devanagari", Matches: devanagari.in, Language: advisory.LanguageHindi},
	{Name: "bengali", Matches: bengali.in, Language: advisory.LanguageBengali},
	{Name: "gujarati", Matches: gujarati.in, Language: advisory.LanguageGujarati},
	{Name: "odia", Matches: odia.in, Language: advisory.LanguageOdia},
	{Name: "hinglish", Matches: isHinglish, Language: advisory.LanguageHinglish},
}

// DetectLanguage returns the language of the first matching rule, or English
func DetectLanguage(text string) advisory.Language {
	for _, rule := range LanguageRules {
		if rule.Matches(text) {
			return rule.Language
		}
	}
	return advisory.LanguageEnglish
}

func isHinglish(text string) bool {
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range hinglishPatterns {
		hits += len(p.FindAllStringIndex(lower, -1))
		if hits >= MinHinglishHits {
			return true
		}
	}
	return false
}

// transliterations maps known romanized words to Devanagari
var transliterations = map[string]string{
	"kisan":   "किसान",
	"kheti":   "खेती",
	"fasal":   "फसल",
	"mausam":  "मौसम",
	"barish":  "बारिश",
	"mitti":   "मिट्टी",
	"khad":    "खाद",
	"beej":    "बीज",
	"keet":    "कीट",
	"gehun":   "गेहूं",
	"dhan":    "धान",
	"chawal":  "चावल",
	"ganna":   "गन्ना",
	"kapas":   "कपास",
	"sarson":  "सरसों",
	"makka":   "मक्का",
	"aloo":    "आलू",
	"pyaz":    "प्याज",
	"bhav":    "भाव",
	"mandi":   "मंडी",
	"daam":    "दाम",
	"yojana":  "योजना",
	"sarkari": "सरकारी",
	"sinchai": "सिंचाई",
	"pani":    "पानी",
}

// spellingFixes corrects common misspellings of domain terms
var spellingFixes = map[string]string{
	"fertlizer":  "fertilizer",
	"fertiliser": "fertilizer",
	"fertilzer":  "fertilizer",
	"fertilizar": "fertilizer",
	"pesticde":   "pesticide",
	"pestiside":  "pesticide",
	"irigation":  "irrigation",
	"irrigaton":  "irrigation",
	"wether":     "weather",
	"weahter":    "weather",
	"whaet":      "wheat",
	"wheet":      "wheat",
	"prise":      "price",
	"sheme":      "scheme",
	"schem":      "scheme",
	"subsidey":   "subsidy",
	"subsidi":    "subsidy",
	"moisure":    "moisture",
	"tomatoe":    "tomato",
	"potatoe":    "potato",
	"harvset":    "harvest",
	"cotten":     "cotton",
	"soyabean":   "soybean",
}

// Transliterate replaces known romanized tokens with Devanagari. Unknown
// tokens are left untouched.
func Transliterate(text string) string {
	return replaceTokens(text, transliterations)
}

// CorrectSpelling applies the domain misspelling dictionary
func CorrectSpelling(text string) string {
	return replaceTokens(text, spellingFixes)
}

func replaceTokens(text string, dict map[string]string) string {
	words := strings.Split(text, " ")
	for i, w := range words {
		core, prefix, suffix := trimPunct(w)
		if repl, ok := dict[core]; ok {
			words[i] = prefix + repl + suffix
		}
	}
	return strings.Join(words, " ")
}

func trimPunct(w string) (core, prefix, suffix string) {
	start := strings.IndexFunc(w, isWordRune)
	if start < 0 {
		return "", w, ""
	}
	end := strings.LastIndexFunc(w, isWordRune)
	_, size := utf8.DecodeRuneInString(w[end:])
	return w[start : end+size], w[:start], w[end+size:]
}

func isWordRune(c rune) bool {
	return !strings.ContainsRune(allowedPunctuation, c)
}
