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

package synth

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// PromptConfig holds configuration for prompt generation
type PromptConfig struct {
	MaxTokens   int
	MaxDataRows int
}

// DefaultPromptConfig returns default configuration
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		MaxTokens:   3000,
		MaxDataRows: 10,
	}
}

// template holds the instruction text for one language
type template struct {
	draftIntro    string
	groundedIntro string
	questionLabel string
	contextLabel  string
	draftLabel    string
	dataLabel     string
	closing       string
}

var englishTemplate = template{
	draftIntro: "You are helping an Indian farmer. Give a short, practical general answer to the question below. " +
		"Do not quote specific prices, dates or weather figures.\n\n",
	groundedIntro: "Revise the draft answer below using only the data provided. " +
		"Correct anything the data contradicts, quote figures exactly as given and keep the answer short and practical.\n\n",
	questionLabel: "Farmer's question",
	contextLabel:  "Known context",
	draftLabel:    "Draft answer",
	dataLabel:     "Retrieved data",
	closing:       "\nAnswer in simple English.",
}

var hindiTemplate = template{
	draftIntro: "आप एक भारतीय किसान की मदद कर रहे हैं। नीचे दिए गए प्रश्न का छोटा और व्यावहारिक उत्तर दें। " +
		"कोई विशेष भाव, तारीख या मौसम के आंकड़े न बताएं।\n\n",
	groundedIntro: "नीचे दिए गए मसौदा उत्तर को केवल दिए गए आंकड़ों के आधार पर सुधारें। " +
		"आंकड़ों को जैसे दिए गए हैं वैसे ही लिखें और उत्तर छोटा व व्यावहारिक रखें।\n\n",
	questionLabel: "किसान का प्रश्न",
	contextLabel:  "ज्ञात जानकारी",
	draftLabel:    "मसौदा उत्तर",
	dataLabel:     "प्राप्त आंकड़े",
	closing:       "\nउत्तर सरल हिंदी में दें।",
}

func templateFor(lang advisory.Language) template {
	switch lang {
	case advisory.LanguageHindi, advisory.LanguageHinglish:
		return hindiTemplate
	default:
		return englishTemplate
	}
}

// BuildDraftPrompt builds the first-pass prompt, which carries no retrieved data
func BuildDraftPrompt(q advisory.Query, qc advisory.QueryContext) string {
	t := templateFor(q.DetectedLanguage)

	var prompt strings.Builder
	prompt.WriteString(t.draftIntro)
	prompt.WriteString(fmt.Sprintf("%s: %s\n", t.questionLabel, q.CleanedText))
	if summary := contextSummary(qc); summary != "" {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", t.contextLabel, summary))
	}
	prompt.WriteString(t.closing)
	return prompt.String()
}

// BuildGroundedPrompt builds the second-pass prompt asking the model to revise
// draft against data. The data section is truncated to the token budget.
func BuildGroundedPrompt(q advisory.Query, qc advisory.QueryContext, draft string, data []advisory.RetrievedDatum) string {
	return BuildGroundedPromptWithConfig(q, qc, draft, data, DefaultPromptConfig())
}

// BuildGroundedPromptWithConfig is BuildGroundedPrompt with explicit limits
func BuildGroundedPromptWithConfig(q advisory.Query, qc advisory.QueryContext, draft string, data []advisory.RetrievedDatum, config PromptConfig) string {
	t := templateFor(q.DetectedLanguage)

	if config.MaxDataRows > 0 && len(data) > config.MaxDataRows {
		data = data[:config.MaxDataRows]
	}

	var head strings.Builder
	head.WriteString(t.groundedIntro)
	head.WriteString(fmt.Sprintf("%s: %s\n", t.questionLabel, q.CleanedText))
	if summary := contextSummary(qc); summary != "" {
		head.WriteString(fmt.Sprintf("%s: %s\n", t.contextLabel, summary))
	}
	head.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", t.draftLabel, strings.TrimSpace(draft)))
	head.WriteString(fmt.Sprintf("\n--- %s ---\n", t.dataLabel))

	// Only the data section is cut; instructions and closing stay whole.
	dataText := FormatData(data)
	if config.MaxTokens > 0 {
		budget := config.MaxTokens - EstimateTokens(head.String()) - EstimateTokens(t.closing)
		if budget < 0 {
			budget = 0
		}
		dataText = TruncateToTokenLimit(dataText, budget)
	}

	return head.String() + dataText + t.closing
}

// contextSummary renders the extracted context on one line
func contextSummary(qc advisory.QueryContext) string {
	var parts []string
	if loc := qc.Location.String(); loc != "" {
		parts = append(parts, "location "+loc)
	}
	if qc.Crop != nil {
		crop := qc.Crop.Name
		if qc.Crop.Season != "" {
			crop += " (" + qc.Crop.Season + ")"
		}
		parts = append(parts, "crop "+crop)
	}
	if len(qc.QueryType) > 0 {
		types := make([]string, 0, len(qc.QueryType))
		for t, ok := range qc.QueryType {
			if ok {
				types = append(types, t)
			}
		}
		sort.Strings(types)
		parts = append(parts, "topics "+strings.Join(types, ", "))
	}
	return strings.Join(parts, "; ")
}

// dataFields lists, per data type, the payload fields serialized into
// prompts and their labels
var dataFields = map[advisory.DataType][]field{
	advisory.DataTypeWeather: {
		{"temperature_c", "Temperature (°C)"},
		{"humidity_pct", "Humidity (%)"},
		{"rainfall_mm", "Rainfall (mm)"},
		{"wind_kmph", "Wind (km/h)"},
		{"condition", "Condition"},
		{"forecast", "Forecast"},
	},
	advisory.DataTypeMarket: {
		{"crop", "Crop"},
		{"mandi", "Mandi"},
		{"min_price", "Min price"},
		{"max_price", "Max price"},
		{"modal_price", "Modal price"},
		{"msp", "MSP"},
		{"unit", "Unit"},
		{"trend", "Trend"},
	},
	advisory.DataTypeAdvisory: {
		{"crop", "Crop"},
		{"season", "Season"},
		{"advice", "Advice"},
		{"pest_alert", "Pest alert"},
	},
	advisory.DataTypeSoil: {
		{"ph", "pH"},
		{"nitrogen_kg_ha", "Nitrogen (kg/ha)"},
		{"phosphorus_kg_ha", "Phosphorus (kg/ha)"},
		{"potassium_kg_ha", "Potassium (kg/ha)"},
		{"organic_carbon", "Organic carbon (%)"},
		{"moisture_pct", "Moisture (%)"},
		{"recommendation", "Recommendation"},
	},
	advisory.DataTypeScheme: {
		{"name", "Scheme"},
		{"benefit", "Benefit"},
		{"eligibility", "Eligibility"},
		{"how_to_apply", "How to apply"},
		{"related", "Related schemes"},
	},
}

type field struct {
	key   string
	label string
}

// FormatData serializes data field by field, one block per datum
func FormatData(data []advisory.RetrievedDatum) string {
	if len(data) == 0 {
		return "(no data)\n"
	}
	var out strings.Builder
	for i, d := range data {
		ref := d.Reference()
		out.WriteString(fmt.Sprintf("[%d] %s | %s | %s\n", i+1, d.Type, ref.Citation, d.Freshness))
		for _, f := range dataFields[d.Type] {
			if v := d.PayloadString(f.key); v != "" {
				out.WriteString(fmt.Sprintf("    %s: %s\n", f.label, v))
			}
		}
	}
	return out.String()
}

// EstimateTokens provides a rough estimate of token count (1 token ≈ 4 characters)
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// TruncationNotice marks data cut to fit the prompt budget
const TruncationNotice = "...\n\n[Data truncated due to length limits]"

// TruncateToTokenLimit truncates text to fit within token limit
func TruncateToTokenLimit(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	// 90% of the target leaves room for the notice
	targetChars := int(float64(maxTokens) * 4 * 0.9)
	runes := []rune(text)
	if len(runes) > targetChars {
		return string(runes[:targetChars]) + TruncationNotice
	}
	return text
}
