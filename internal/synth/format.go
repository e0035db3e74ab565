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
	"math"
	"strings"

	"github.com/your-org/agri-advisor/internal/advisory"
)

// Section titles in display order
const (
	SectionWeather      = "Weather"
	SectionMarket       = "Market Prices"
	SectionSoil         = "Soil"
	SectionAdvisory     = "Advisory"
	SectionSchemes      = "Government Schemes"
	SectionTips         = "General Tips"
	SectionTransparency = "How this answer was generated"
)

// MarketUnavailableNotice is shown when no market price data is available
const MarketUnavailableNotice = "Market price data is currently unavailable. " +
	"Please check the nearest APMC mandi or the Agmarknet portal before selling."

// Report is everything Format needs to render a final answer
type Report struct {
	Query        advisory.Query
	Context      advisory.QueryContext
	Answer       string
	Data         []advisory.RetrievedDatum
	Confidence   float64
	FactualBasis advisory.FactualBasis
}

// dataSections maps the data-backed sections to their data types
var dataSections = []struct {
	title    string
	dataType advisory.DataType
	always   bool
}{
	{SectionWeather, advisory.DataTypeWeather, false},
	{SectionMarket, advisory.DataTypeMarket, true},
	{SectionSoil, advisory.DataTypeSoil, false},
	{SectionAdvisory, advisory.DataTypeAdvisory, false},
	{SectionSchemes, advisory.DataTypeScheme, false},
}

// Format renders the final answer: a bold heading echoing the question, the
// generated text, then the fixed-order sections.
func Format(r Report) string {
	var out strings.Builder
	out.WriteString(heading(r.Query))
	out.WriteString("\n\n")
	if answer := strings.TrimSpace(r.Answer); answer != "" {
		out.WriteString(answer)
		out.WriteString("\n")
	}

	for _, s := range dataSections {
		rows := sectionRows(r.Data, s.dataType)
		if len(rows) == 0 && !s.always {
			continue
		}
		writeSection(&out, s.title)
		if len(rows) == 0 {
			out.WriteString(MarketUnavailableNotice + "\n")
			continue
		}
		out.WriteString(strings.Join(rows, "\n"))
		out.WriteString("\n")
	}

	writeSection(&out, SectionTips)
	for _, tip := range GeneralTips(r.Context) {
		out.WriteString("- " + tip + "\n")
	}

	writeSection(&out, SectionTransparency)
	out.WriteString(transparency(r))
	return out.String()
}

func heading(q advisory.Query) string {
	text := strings.TrimSpace(q.OriginalText)
	if text == "" {
		text = q.CleanedText
	}
	return fmt.Sprintf("**%s**", text)
}

func writeSection(out *strings.Builder, title string) {
	out.WriteString("\n### ")
	out.WriteString(title)
	out.WriteString("\n")
}

// sectionRows renders every datum of type t with a non-empty payload
func sectionRows(data []advisory.RetrievedDatum, t advisory.DataType) []string {
	var rows []string
	for _, d := range data {
		if d.Type != t || len(d.Payload) == 0 {
			continue
		}
		var parts []string
		for _, f := range dataFields[t] {
			if v := d.PayloadString(f.key); v != "" {
				parts = append(parts, fmt.Sprintf("- %s: %s", f.label, v))
			}
		}
		if len(parts) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("_Source: %s_", d.Reference().Citation))
		rows = append(rows, strings.Join(parts, "\n"))
	}
	return rows
}

func transparency(r Report) string {
	counts := map[advisory.Freshness]int{}
	for _, d := range r.Data {
		counts[d.Freshness]++
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("- Sources consulted: %d (%d fresh, %d cached, %d stale)\n",
		len(r.Data), counts[advisory.FreshnessFresh], counts[advisory.FreshnessCached], counts[advisory.FreshnessStale]))
	out.WriteString(fmt.Sprintf("- Confidence: %d%%\n", int(math.Round(r.Confidence*100))))
	if r.FactualBasis != "" {
		out.WriteString(fmt.Sprintf("- Factual basis: %s\n", r.FactualBasis))
	}
	for _, ref := range advisory.References(r.Data) {
		out.WriteString("- " + ref.Citation + "\n")
	}
	return out.String()
}

var seasonTips = map[string]string{
	"kharif": "Keep field drains open during heavy rain to avoid waterlogging of kharif crops.",
	"rabi":   "Irrigate rabi crops at critical stages and avoid irrigation just before expected frost.",
	"zaid":   "Irrigate zaid crops in the early morning or evening to reduce evaporation losses.",
	"annual": "Mulch around the crop base to conserve moisture through the dry months.",
}

var baseTips = []string{
	"Get your soil tested every two to three years and follow the soil health card doses.",
	"Buy certified seed and keep the purchase bill until harvest.",
	"Contact your nearest Krishi Vigyan Kendra or call the Kisan Call Centre at 1800-180-1551 for field-specific advice.",
}

// GeneralTips returns the generic tips shown with every answer
func GeneralTips(qc advisory.QueryContext) []string {
	var tips []string
	if qc.Crop != nil {
		if tip, ok := seasonTips[qc.Crop.Season]; ok {
			tips = append(tips, tip)
		}
	}
	return append(tips, baseTips...)
}

// SuggestedQuestionList returns follow-up questions templated from the
// inferred location and crop
func SuggestedQuestionList(qc advisory.QueryContext) []string {
	place := qc.Location.String()
	crop := qc.CropName()

	if qc.Language == advisory.LanguageHindi || qc.Language == advisory.LanguageHinglish {
		if place == "" {
			place = "मेरे क्षेत्र"
		}
		if crop == "" {
			crop = "गेहूं"
		}
		return []string{
			fmt.Sprintf("%s में इस सप्ताह मौसम कैसा रहेगा?", place),
			fmt.Sprintf("%s में %s का मंडी भाव क्या है?", place, crop),
			fmt.Sprintf("%s में इस मौसम में कौन सी फसल बोनी चाहिए?", place),
			"किसानों के लिए कौन सी सरकारी योजनाएं उपलब्ध हैं?",
		}
	}

	if place == "" {
		place = "my district"
	}
	if crop == "" {
		crop = "wheat"
	}
	return []string{
		fmt.Sprintf("What is the weather forecast for %s this week?", place),
		fmt.Sprintf("What is the mandi price of %s in %s today?", crop, place),
		fmt.Sprintf("Which crops should I sow this season in %s?", place),
		"Which government schemes can I apply for as a farmer?",
	}
}

// SuggestedQuestions renders the insufficient-data response. No text is
// generated for it.
func SuggestedQuestions(q advisory.Query, qc advisory.QueryContext) string {
	intro := "I could not find enough reliable data to answer this question right now. Here are some questions you could ask instead:"
	if qc.Language == advisory.LanguageHindi || qc.Language == advisory.LanguageHinglish {
		intro = "इस प्रश्न का भरोसेमंद उत्तर देने के लिए अभी पर्याप्त आंकड़े उपलब्ध नहीं हैं। आप ये प्रश्न पूछ सकते हैं:"
	}

	var out strings.Builder
	out.WriteString(heading(q))
	out.WriteString("\n\n")
	out.WriteString(intro)
	out.WriteString("\n")
	for i, s := range SuggestedQuestionList(qc) {
		out.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}
	return out.String()
}

// FallbackAnswer renders generic guidance used when the pipeline cannot
// produce an answer at all
func FallbackAnswer(q advisory.Query, qc advisory.QueryContext) string {
	var out strings.Builder
	out.WriteString(heading(q))
	out.WriteString("\n\n")
	out.WriteString("We could not prepare a detailed answer right now. Some general guidance:\n")
	writeSection(&out, SectionTips)
	for _, tip := range GeneralTips(qc) {
		out.WriteString("- " + tip + "\n")
	}
	return out.String()
}
