// Copyright 2026 The sentibridge Authors. All Rights Reserved.
//
// Created: August 2026
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

// Package score maps item text to a calibrated (polarity, confidence) pair.
// The ensemble combines an opaque primary classifier with a deterministic
// lexicon fallback tuned for crypto community language.
package score

import "strings"

// lexicon maps terms to valence in [-4, 4]. Multi-word terms are matched as
// bigrams. The crypto slang weights mirror the community register: "rug" is
// maximally negative, "wagmi" strongly positive.
var lexicon = map[string]float64{
	// positive
	"bullish":       3.0,
	"moon":          2.5,
	"mooning":       3.0,
	"pump":          1.5,
	"hodl":          2.0,
	"diamond hands": 3.0,
	"based":         2.5,
	"gmi":           3.0,
	"wagmi":         3.0,
	"lfg":           2.5,
	"alpha":         2.0,
	"gem":           2.5,
	"degen":         1.0,
	"aped":          1.5,
	"whale":         1.5,
	"accumulate":    2.0,
	"undervalued":   2.0,
	"buy":           1.0,
	"long":          1.0,
	"rally":         2.0,
	"breakout":      2.0,
	"gain":          1.5,
	"gains":         1.5,
	"profit":        1.5,
	"strong":        1.0,
	"good":          1.5,
	"great":         2.0,

	// negative
	"bearish":     -3.0,
	"dump":        -2.5,
	"dumping":     -3.0,
	"rug":         -4.0,
	"rugpull":     -4.0,
	"scam":        -4.0,
	"paper hands": -2.5,
	"ngmi":        -3.0,
	"rekt":        -3.5,
	"exit scam":   -4.0,
	"ponzi":       -4.0,
	"honeypot":    -4.0,
	"fud":         -1.5,
	"selling":     -1.5,
	"sell":        -1.0,
	"short":       -1.0,
	"crash":       -3.0,
	"dead":        -3.0,
	"overvalued":  -2.0,
	"bag holder":  -2.0,
	"loss":        -1.5,
	"losses":      -1.5,
	"bad":         -1.5,
	"terrible":    -2.5,
	"drop":        -1.5,
	"plunge":      -2.5,
}

// maxValence is the lexicon scale; polarity is average valence over matched
// terms divided by this.
const maxValence = 4.0

// LexiconScorer is the deterministic fallback. Score depends only on the
// text and the compiled-in lexicon, so identical input is bit-identical
// output.
type LexiconScorer struct{}

// Score returns polarity in [-1,1] and confidence in [0,1]. Confidence grows
// with the number of matched sentiment terms and is capped below full
// confidence: a lexicon never outranks a calibrated model.
func (LexiconScorer) Score(text string) (polarity, confidence float64) {
	words := tokenize(text)
	if len(words) == 0 {
		return 0, 0.1
	}
	var sum float64
	hits := 0
	for i, w := range words {
		if v, ok := lexicon[w]; ok {
			sum += v
			hits++
		}
		if i+1 < len(words) {
			if v, ok := lexicon[w+" "+words[i+1]]; ok {
				sum += v
				hits++
			}
		}
	}
	if hits == 0 {
		return 0, 0.1
	}
	polarity = sum / (float64(hits) * maxValence)
	if polarity > 1 {
		polarity = 1
	} else if polarity < -1 {
		polarity = -1
	}
	confidence = 0.3 + 0.1*float64(hits)
	if confidence > 0.8 {
		confidence = 0.8
	}
	return polarity, confidence
}

// tokenize lowercases and splits on non-alphanumeric runs.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '\'' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9'))
	})
}
