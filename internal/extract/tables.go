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

package extract

// district maps a district (or an alias) to its state
type district struct {
	name  string
	state string
}

// cropEntry maps a crop term (or an alias) to a canonical crop and season
type cropEntry struct {
	term   string
	name   string
	season string
}

// topic maps a keyword to the query types it implies
type topic struct {
	keyword string
	types   []string
}

var districts = []district{
	{"ludhiana", "punjab"},
	{"amritsar", "punjab"},
	{"patiala", "punjab"},
	{"bathinda", "punjab"},
	{"karnal", "haryana"},
	{"hisar", "haryana"},
	{"nashik", "maharashtra"},
	{"pune", "maharashtra"},
	{"nagpur", "maharashtra"},
	{"indore", "madhya pradesh"},
	{"bhopal", "madhya pradesh"},
	{"lucknow", "uttar pradesh"},
	{"kanpur", "uttar pradesh"},
	{"varanasi", "uttar pradesh"},
	{"agra", "uttar pradesh"},
	{"meerut", "uttar pradesh"},
	{"jaipur", "rajasthan"},
	{"kota", "rajasthan"},
	{"ahmedabad", "gujarat"},
	{"rajkot", "gujarat"},
	{"surat", "gujarat"},
	{"patna", "bihar"},
	{"cuttack", "odisha"},
	{"bhubaneswar", "odisha"},
	{"kolkata", "west bengal"},
	{"bardhaman", "west bengal"},
	{"guntur", "andhra pradesh"},
	{"warangal", "telangana"},
	{"mysuru", "karnataka"},
	{"belagavi", "karnataka"},
	{"coimbatore", "tamil nadu"},
	{"thanjavur", "tamil nadu"},
	{"लुधियाना", "punjab"},
	{"लखनऊ", "uttar pradesh"},
	{"पटना", "bihar"},
	{"इंदौर", "madhya pradesh"},
	{"जयपुर", "rajasthan"},
}

// states maps state names and aliases to the canonical state
var states = []struct {
	term  string
	state string
}{
	{"punjab", "punjab"},
	{"haryana", "haryana"},
	{"uttar pradesh", "uttar pradesh"},
	{"madhya pradesh", "madhya pradesh"},
	{"maharashtra", "maharashtra"},
	{"rajasthan", "rajasthan"},
	{"gujarat", "gujarat"},
	{"bihar", "bihar"},
	{"west bengal", "west bengal"},
	{"odisha", "odisha"},
	{"andhra pradesh", "andhra pradesh"},
	{"telangana", "telangana"},
	{"karnataka", "karnataka"},
	{"tamil nadu", "tamil nadu"},
	{"kerala", "kerala"},
	{"assam", "assam"},
	{"पंजाब", "punjab"},
	{"हरियाणा", "haryana"},
	{"उत्तर प्रदेश", "uttar pradesh"},
	{"मध्य प्रदेश", "madhya pradesh"},
	{"महाराष्ट्र", "maharashtra"},
	{"राजस्थान", "rajasthan"},
	{"गुजरात", "gujarat"},
	{"बिहार", "bihar"},
}

var crops = []cropEntry{
	{"wheat", "wheat", "rabi"},
	{"rice", "rice", "kharif"},
	{"paddy", "rice", "kharif"},
	{"cotton", "cotton", "kharif"},
	{"sugarcane", "sugarcane", "annual"},
	{"maize", "maize", "kharif"},
	{"mustard", "mustard", "rabi"},
	{"soybean", "soybean", "kharif"},
	{"gram", "gram", "rabi"},
	{"chickpea", "gram", "rabi"},
	{"potato", "potato", "rabi"},
	{"onion", "onion", "rabi"},
	{"tomato", "tomato", "zaid"},
	{"groundnut", "groundnut", "kharif"},
	{"bajra", "bajra", "kharif"},
	{"jowar", "jowar", "kharif"},
	{"गेहूं", "wheat", "rabi"},
	{"धान", "rice", "kharif"},
	{"चावल", "rice", "kharif"},
	{"कपास", "cotton", "kharif"},
	{"गन्ना", "sugarcane", "annual"},
	{"मक्का", "maize", "kharif"},
	{"सरसों", "mustard", "rabi"},
	{"आलू", "potato", "rabi"},
	{"प्याज", "onion", "rabi"},
}

var topics = []topic{
	{"weather", []string{"weather"}},
	{"rain", []string{"weather"}},
	{"rainfall", []string{"weather"}},
	{"temperature", []string{"weather"}},
	{"forecast", []string{"weather"}},
	{"monsoon", []string{"weather"}},
	{"humidity", []string{"weather"}},
	{"मौसम", []string{"weather"}},
	{"बारिश", []string{"weather"}},
	{"market", []string{"market"}},
	{"mandi", []string{"market"}},
	{"sell", []string{"market"}},
	{"मंडी", []string{"market"}},
	{"price", []string{"price", "market"}},
	{"rate", []string{"price", "market"}},
	{"msp", []string{"price", "market"}},
	{"भाव", []string{"price", "market"}},
	{"दाम", []string{"price", "market"}},
	{"soil", []string{"soil"}},
	{"moisture", []string{"soil"}},
	{"मिट्टी", []string{"soil"}},
	{"fertilizer", []string{"fertilizer"}},
	{"urea", []string{"fertilizer"}},
	{"dap", []string{"fertilizer"}},
	{"npk", []string{"fertilizer"}},
	{"manure", []string{"fertilizer"}},
	{"खाद", []string{"fertilizer"}},
	{"scheme", []string{"scheme"}},
	{"yojana", []string{"scheme"}},
	{"pm kisan", []string{"scheme"}},
	{"pm-kisan", []string{"scheme"}},
	{"government", []string{"scheme"}},
	{"योजना", []string{"scheme"}},
	{"subsidy", []string{"subsidy"}},
	{"loan", []string{"subsidy"}},
	{"insurance", []string{"subsidy"}},
	{"सब्सिडी", []string{"subsidy"}},
	{"pest", []string{"pest"}},
	{"pesticide", []string{"pest"}},
	{"insect", []string{"pest"}},
	{"disease", []string{"pest"}},
	{"कीट", []string{"pest"}},
	{"irrigation", []string{"irrigation"}},
	{"water", []string{"irrigation"}},
	{"drip", []string{"irrigation"}},
	{"सिंचाई", []string{"irrigation"}},
}
