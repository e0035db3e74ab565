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

package agents

import (
	"fmt"
	"time"

	"github.com/your-org/agri-advisor/internal/advisory"
)

const (
	weatherSource  = "IMD Weather Service"
	marketSource   = "Agmarknet Mandi Prices"
	advisorySource = "Krishi Vigyan Kendra Advisory"
	soilSource     = "Soil Health Card Portal"
	schemeSource   = "Ministry of Agriculture Schemes Portal"
)

var weatherConditions = []string{"Clear sky", "Partly cloudy", "Overcast", "Light rain", "Haze"}

var weatherForecasts = []string{
	"Dry weather likely for the next 3 days",
	"Light to moderate rain expected in the next 48 hours",
	"Temperatures likely to rise by 2-3°C this week",
	"Scattered thunderstorms possible over the weekend",
}

// NewWeatherAgent returns the weather agent; applicable whenever a location is known
func NewWeatherAgent(deps Deps) Agent {
	deps = deps.withDefaults()
	return &cachedAgent{
		deps:       deps,
		dataType:   advisory.DataTypeWeather,
		applicable: hasLocation,
		generate: func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
			r := deps.Random
			return advisory.RetrievedDatum{
				SourceName: weatherSource,
				Type:       advisory.DataTypeWeather,
				Payload: map[string]interface{}{
					"temperature_c": r.Between(22, 38),
					"humidity_pct":  r.Between(40, 90),
					"rainfall_mm":   r.Between(0, 20),
					"wind_kmph":     r.Between(5, 25),
					"condition":     r.Pick(weatherConditions),
					"forecast":      r.Pick(weatherForecasts),
				},
				Confidence:  0.85,
				Timestamp:   now,
				Location:    copyLocation(qc.Location),
				Freshness:   advisory.FreshnessFresh,
				Reliability: advisory.ReliabilityHigh,
			}
		},
	}
}

// LastKnownWeather is the stale fallback used when retrieval produced nothing
func LastKnownWeather(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
	return advisory.RetrievedDatum{
		SourceName: weatherSource + " (last known data)",
		Type:       advisory.DataTypeWeather,
		Payload: map[string]interface{}{
			"temperature_c": 28.0,
			"humidity_pct":  65.0,
			"condition":     "Data unavailable, showing seasonal average",
			"forecast":      "Check local weather updates before field operations",
		},
		Confidence:  0.3,
		Timestamp:   now,
		Location:    copyLocation(qc.Location),
		Freshness:   advisory.FreshnessStale,
		Reliability: advisory.ReliabilityLow,
	}
}

// basePrices are reference modal prices in INR per quintal
var basePrices = map[string]float64{
	"wheat":     2275,
	"rice":      2300,
	"cotton":    7020,
	"sugarcane": 340,
	"maize":     2090,
	"mustard":   5650,
	"soybean":   4892,
	"gram":      5440,
	"potato":    1200,
	"onion":     1800,
	"tomato":    1500,
	"groundnut": 6377,
	"bajra":     2625,
	"jowar":     3371,
}

// referenceCrop is quoted when a price question names no crop
const referenceCrop = "wheat"

var priceTrends = []string{"rising", "stable", "falling"}

// NewMarketAgent returns the mandi price agent; applicable when a crop is
// known or the query asks about prices.
func NewMarketAgent(deps Deps) Agent {
	deps = deps.withDefaults()
	return &cachedAgent{
		deps:     deps,
		dataType: advisory.DataTypeMarket,
		applicable: func(qc advisory.QueryContext) bool {
			return qc.Crop != nil || qc.HasType("price", "market")
		},
		generate: func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
			r := deps.Random
			requested := qc.CropName()
			crop := requested
			if crop == "" {
				crop = referenceCrop
			}
			base, ok := basePrices[crop]
			if !ok {
				base = 2000
			}

			modal := base * r.Between(0.9, 1.15)
			spread := base * 0.08

			return advisory.RetrievedDatum{
				SourceName: marketSource,
				Type:       advisory.DataTypeMarket,
				Payload: map[string]interface{}{
					"requested_crop": requested,
					"crop":           crop,
					"mandi":          mandiName(qc.Location),
					"min_price":      roundRupees(modal - spread),
					"max_price":      roundRupees(modal + spread),
					"modal_price":    roundRupees(modal),
					"msp":            base,
					"unit":           "INR/quintal",
					"trend":          r.Pick(priceTrends),
				},
				Confidence:  0.8,
				Timestamp:   now,
				Location:    copyLocation(qc.Location),
				Freshness:   advisory.FreshnessFresh,
				Reliability: advisory.ReliabilityHigh,
			}
		},
	}
}

func mandiName(l *advisory.Location) string {
	if l.IsZero() {
		return "Nearest APMC Mandi"
	}
	return fmt.Sprintf("%s APMC Mandi", l.String())
}

func roundRupees(v float64) float64 {
	return float64(int64(v + 0.5))
}

// seasonAdvice holds crop-stage guidance per season
var seasonAdvice = map[string]string{
	"rabi":   "Ensure timely irrigation at crown root initiation and flowering; watch for yellow rust in cool humid weather.",
	"kharif": "Maintain field drainage during heavy rain and monitor for stem borer and leaf folder after transplanting.",
	"zaid":   "Irrigate lightly every 4-5 days and mulch to conserve moisture in summer heat.",
	"annual": "Apply split doses of nitrogen and keep inter-row spaces weed free during early growth.",
}

var pestAlerts = []string{
	"No major pest outbreak reported in your area",
	"Aphid incidence reported in nearby blocks; inspect leaves weekly",
	"Moderate risk of fungal disease due to humidity",
}

// NewAdvisoryAgent returns the crop advisory agent; applicable whenever a
// location is known.
func NewAdvisoryAgent(deps Deps) Agent {
	deps = deps.withDefaults()
	return &cachedAgent{
		deps:       deps,
		dataType:   advisory.DataTypeAdvisory,
		applicable: hasLocation,
		generate: func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
			season := "rabi"
			crop := "general"
			if qc.Crop != nil {
				crop = qc.Crop.Name
				if qc.Crop.Season != "" {
					season = qc.Crop.Season
				}
			}
			return advisory.RetrievedDatum{
				SourceName: advisorySource,
				Type:       advisory.DataTypeAdvisory,
				Payload: map[string]interface{}{
					"crop":       crop,
					"season":     season,
					"advice":     seasonAdvice[season],
					"pest_alert": deps.Random.Pick(pestAlerts),
				},
				Confidence:  0.75,
				Timestamp:   now,
				Location:    copyLocation(qc.Location),
				Freshness:   advisory.FreshnessFresh,
				Reliability: advisory.ReliabilityMedium,
			}
		},
	}
}

// NewSoilAgent returns the soil health agent; applicable for soil and
// fertilizer questions.
func NewSoilAgent(deps Deps) Agent {
	deps = deps.withDefaults()
	return &cachedAgent{
		deps:     deps,
		dataType: advisory.DataTypeSoil,
		applicable: func(qc advisory.QueryContext) bool {
			return qc.HasType("soil", "fertilizer")
		},
		generate: func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
			r := deps.Random
			ph := r.Between(6.0, 8.2)
			return advisory.RetrievedDatum{
				SourceName: soilSource,
				Type:       advisory.DataTypeSoil,
				Payload: map[string]interface{}{
					"ph":               ph,
					"nitrogen_kg_ha":   r.Between(180, 420),
					"phosphorus_kg_ha": r.Between(10, 30),
					"potassium_kg_ha":  r.Between(150, 320),
					"organic_carbon":   r.Between(0.3, 0.9),
					"moisture_pct":     r.Between(15, 35),
					"recommendation":   soilRecommendation(ph),
				},
				Confidence:  0.7,
				Timestamp:   now,
				Location:    copyLocation(qc.Location),
				Freshness:   advisory.FreshnessFresh,
				Reliability: advisory.ReliabilityMedium,
			}
		},
	}
}

func soilRecommendation(ph float64) string {
	switch {
	case ph < 6.5:
		return "Soil is slightly acidic; apply agricultural lime as per soil test and use balanced NPK."
	case ph > 7.5:
		return "Soil is alkaline; apply gypsum and organic manure, and prefer ammonium based fertilizers."
	default:
		return "Soil pH is in the normal range; apply NPK as per the soil health card dose."
	}
}

// NewSchemeAgent returns the government scheme agent; applicable for scheme
// and subsidy questions.
func NewSchemeAgent(deps Deps) Agent {
	deps = deps.withDefaults()
	return &cachedAgent{
		deps:     deps,
		dataType: advisory.DataTypeScheme,
		applicable: func(qc advisory.QueryContext) bool {
			return qc.HasType("scheme", "subsidy")
		},
		generate: func(qc advisory.QueryContext, now time.Time) advisory.RetrievedDatum {
			return advisory.RetrievedDatum{
				SourceName: schemeSource,
				Type:       advisory.DataTypeScheme,
				Payload: map[string]interface{}{
					"name":         "PM-KISAN",
					"benefit":      "₹6,000 per year paid in three instalments of ₹2,000",
					"eligibility":  "All landholding farmer families with cultivable land",
					"how_to_apply": "Register at pmkisan.gov.in or the nearest Common Service Centre with Aadhaar and land records",
					"related":      "PM Fasal Bima Yojana (crop insurance), Kisan Credit Card (crop loans at subsidised interest)",
				},
				Confidence:  0.9,
				Timestamp:   now,
				Location:    copyLocation(qc.Location),
				Freshness:   advisory.FreshnessFresh,
				Reliability: advisory.ReliabilityHigh,
			}
		},
	}
}
