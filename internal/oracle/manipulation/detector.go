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

// Package manipulation screens per-asset batches for coordinated campaigns:
// copy-paste floods, bot swarms, volume spikes, cross-source divergence, and
// machine-regular posting cadence. Each signal contributes a value in [0,1];
// the manipulation score is the mean of the signals that could be computed
// for the batch.
package manipulation

import (
	"math"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

const (
	// historyCycles is how many past cycles feed the volume baseline.
	historyCycles = 3

	// similarityThreshold is the 5-gram Jaccard above which two texts
	// count as near-duplicates.
	similarityThreshold = 0.85

	// similaritySampleCap bounds the O(n^2) pairwise scan; larger batches
	// are subsampled at a fixed stride so the result stays deterministic.
	similaritySampleCap = 200

	// botWeightCeiling: items at or below this author weight count toward
	// bot density.
	botWeightCeiling = 0.2

	// divergenceGate: per-source mean polarities must differ by more than
	// this before divergence contributes at all.
	divergenceGate = 0.6
)

// Signals is the per-signal breakdown attached to veto logs.
type Signals struct {
	VolumeSpike       float64 `json:"volume_spike"`
	ContentSimilarity float64 `json:"content_similarity"`
	BotDensity        float64 `json:"bot_density"`
	SourceDivergence  float64 `json:"source_divergence"`
	Burstiness        float64 `json:"burstiness"`
	Active            int     `json:"active"`
}

// Detector holds the per-asset volume history across cycles. Evaluate is
// safe for concurrent use on distinct assets; the history map has its own
// lock.
type Detector struct {
	mu      sync.Mutex
	history map[common.Address][]float64 // last historyCycles sample sizes
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{history: make(map[common.Address][]float64)}
}

// Evaluate computes the manipulation score for one asset's batch and records
// the batch size into the rolling history. Score is the mean of active
// signal contributions, in [0,1].
func (d *Detector) Evaluate(asset common.Address, items []sentibridge.ScoredItem) (float64, Signals) {
	var sig Signals
	var sum float64

	if v, ok := d.volumeSpike(asset, float64(len(items))); ok {
		sig.VolumeSpike = v
		sum += v
		sig.Active++
	}
	if v, ok := contentSimilarity(items); ok {
		sig.ContentSimilarity = v
		sum += v
		sig.Active++
	}
	if len(items) > 0 {
		v := botDensity(items)
		sig.BotDensity = v
		sum += v
		sig.Active++
	}
	if v, ok := sourceDivergence(items); ok {
		sig.SourceDivergence = v
		sum += v
		sig.Active++
	}
	if v, ok := burstiness(items); ok {
		sig.Burstiness = v
		sum += v
		sig.Active++
	}

	if sig.Active == 0 {
		return 0, sig
	}
	return sum / float64(sig.Active), sig
}

// volumeSpike is the z-score of the batch size against the rolling baseline,
// squashed through sigmoid((z-3)/1.5). Inactive until at least two past
// cycles exist (no stddev from fewer). The observation is recorded either way.
func (d *Detector) volumeSpike(asset common.Address, size float64) (float64, bool) {
	d.mu.Lock()
	hist := d.history[asset]
	contribution, active := 0.0, false
	if len(hist) >= 2 {
		var mean float64
		for _, v := range hist {
			mean += v
		}
		mean /= float64(len(hist))
		var variance float64
		for _, v := range hist {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(hist))
		std := math.Sqrt(variance)
		if std < 1 {
			std = 1 // floor so a flat baseline still yields a finite z
		}
		z := (size - mean) / std
		contribution = sigmoid((z - 3) / 1.5)
		active = true
	}
	hist = append(hist, size)
	if len(hist) > historyCycles {
		hist = hist[len(hist)-historyCycles:]
	}
	d.history[asset] = hist
	d.mu.Unlock()
	return contribution, active
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// contentSimilarity returns the fraction of (sampled) items whose 5-gram
// Jaccard similarity with at least one other item exceeds the threshold.
func contentSimilarity(items []sentibridge.ScoredItem) (float64, bool) {
	if len(items) < 2 {
		return 0, false
	}
	idx := sampleIndices(len(items), similaritySampleCap)
	shingles := make([]map[string]struct{}, len(idx))
	for i, j := range idx {
		shingles[i] = fiveGrams(items[j].Text)
	}
	nearDup := 0
	for i := range shingles {
		for j := range shingles {
			if i == j {
				continue
			}
			if jaccard(shingles[i], shingles[j]) > similarityThreshold {
				nearDup++
				break
			}
		}
	}
	return float64(nearDup) / float64(len(idx)), true
}

// sampleIndices picks up to limit evenly spaced indices from [0, n).
// Deterministic by construction.
func sampleIndices(n, limit int) []int {
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, limit)
	for i := 0; i < limit; i++ {
		out[i] = i * n / limit
	}
	return out
}

// fiveGrams returns the character 5-gram shingle set of the lowercased text.
func fiveGrams(text string) map[string]struct{} {
	lower := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	set := make(map[string]struct{})
	if len(lower) < 5 {
		if len(lower) > 0 {
			set[string(lower)] = struct{}{}
		}
		return set
	}
	for i := 0; i+5 <= len(lower); i++ {
		set[string(lower[i:i+5])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// botDensity is the share of items from authors at or below the bot weight
// ceiling.
func botDensity(items []sentibridge.ScoredItem) float64 {
	bots := 0
	for _, it := range items {
		if it.AuthorWeight <= botWeightCeiling {
			bots++
		}
	}
	return float64(bots) / float64(len(items))
}

// sourceDivergence contributes (max-min)/2 of per-source mean polarities,
// but only when the spread exceeds the gate. Requires two sources.
func sourceDivergence(items []sentibridge.ScoredItem) (float64, bool) {
	sums := make(map[sentibridge.Source]float64)
	counts := make(map[sentibridge.Source]int)
	for _, it := range items {
		sums[it.Source] += it.Polarity
		counts[it.Source]++
	}
	if len(counts) < 2 {
		return 0, false
	}
	first := true
	var lo, hi float64
	for src, sum := range sums {
		mean := sum / float64(counts[src])
		if first {
			lo, hi = mean, mean
			first = false
			continue
		}
		if mean < lo {
			lo = mean
		}
		if mean > hi {
			hi = mean
		}
	}
	if hi-lo <= divergenceGate {
		return 0, true
	}
	return (hi - lo) / 2, true
}

// burstiness measures machine-regular posting cadence: the coefficient of
// variation of inter-arrival gaps. Organic activity is irregular (CV near or
// above 1); coordinated posting is either metronomic (tiny CV) or a single
// burst. Requires at least 5 items.
func burstiness(items []sentibridge.ScoredItem) (float64, bool) {
	if len(items) < 5 {
		return 0, false
	}
	ts := make([]int64, len(items))
	for i, it := range items {
		ts[i] = it.CreatedAt.UnixNano()
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	gaps := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gaps = append(gaps, float64(ts[i]-ts[i-1]))
	}
	var mean float64
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	if mean == 0 {
		return 0.9, true // everything posted at the same instant
	}
	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))
	cv := math.Sqrt(variance) / mean

	switch {
	case cv < 0.3:
		return 0.9, true
	case cv < 0.5:
		return 0.6, true
	case cv > 2.0:
		return 0.4, true
	default:
		return 0.2, true
	}
}
