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

package manipulation

import (
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

var testAsset = common.HexToAddress("0x00000000000000000000000000000000deadbeef")

func organicBatch(n int) []sentibridge.ScoredItem {
	texts := []string{
		"just read the whitepaper, the tokenomics actually make sense",
		"anyone else notice the dev activity picked up this week?",
		"sold half my bag, taking profits after that run",
		"the chart looks heavy here, waiting for a retrace",
		"new exchange listing announced for next month",
		"community call was interesting, roadmap got updated",
		"comparing this to similar projects it still looks cheap",
		"gas fees ate my whole profit on that trade",
	}
	base := time.Unix(1700000000, 0)
	gaps := []time.Duration{3 * time.Second, 41 * time.Second, 7 * time.Second, 95 * time.Second,
		12 * time.Second, 160 * time.Second, 25 * time.Second, 58 * time.Second}
	items := make([]sentibridge.ScoredItem, n)
	ts := base
	for i := range items {
		ts = ts.Add(gaps[i%len(gaps)])
		src := sentibridge.SourceX
		if i%3 == 0 {
			src = sentibridge.SourceNewswire
		}
		items[i] = sentibridge.ScoredItem{
			Item: sentibridge.Item{
				ID:           fmt.Sprintf("x:%d", i),
				Source:       src,
				Text:         texts[i%len(texts)] + fmt.Sprintf(" #%d", i),
				AuthorID:     fmt.Sprintf("author-%d", i),
				AuthorWeight: 0.7,
				CreatedAt:    ts,
			},
			Polarity:   0.2,
			Confidence: 0.6,
		}
	}
	return items
}

func spamBatch(n int) []sentibridge.ScoredItem {
	base := time.Unix(1700000000, 0)
	items := make([]sentibridge.ScoredItem, n)
	for i := range items {
		items[i] = sentibridge.ScoredItem{
			Item: sentibridge.Item{
				ID:           fmt.Sprintf("x:spam%d", i),
				Source:       sentibridge.SourceX,
				Text:         "PEPE TO THE MOON!!! buy now before its too late, 100x guaranteed",
				AuthorID:     fmt.Sprintf("bot-%d", i),
				AuthorWeight: 0.05,
				CreatedAt:    base.Add(time.Duration(i) * time.Second), // metronomic
			},
			Polarity:   0.95,
			Confidence: 0.7,
		}
	}
	return items
}

func TestEvaluateOrganicBatchBelowThreshold(t *testing.T) {
	d := NewDetector()
	score, sig := d.Evaluate(testAsset, organicBatch(40))
	if score > 0.5 {
		t.Fatalf("organic batch scored %v (signals %+v), expected well below veto threshold", score, sig)
	}
	if sig.BotDensity != 0 {
		t.Errorf("bot density = %v for weight-0.7 authors, want 0", sig.BotDensity)
	}
}

func TestEvaluateSpamFloodAboveThreshold(t *testing.T) {
	d := NewDetector()
	score, sig := d.Evaluate(testAsset, spamBatch(60))
	if score <= 0.7 {
		t.Fatalf("copy-paste bot flood scored %v (signals %+v), expected above 0.7", score, sig)
	}
	if sig.ContentSimilarity < 0.9 {
		t.Errorf("identical texts similarity = %v, want ~1", sig.ContentSimilarity)
	}
	if sig.BotDensity != 1.0 {
		t.Errorf("all-bot batch density = %v, want 1", sig.BotDensity)
	}
	if sig.Burstiness < 0.9 {
		t.Errorf("metronomic cadence burstiness = %v, want 0.9", sig.Burstiness)
	}
}

func TestVolumeSpikeNeedsBaseline(t *testing.T) {
	d := NewDetector()
	batch := organicBatch(10)

	// First two cycles establish the baseline; the signal stays inactive.
	_, sig := d.Evaluate(testAsset, batch)
	if sig.VolumeSpike != 0 {
		t.Errorf("cycle 1 volume spike = %v, want inactive", sig.VolumeSpike)
	}
	_, sig = d.Evaluate(testAsset, batch)
	if sig.VolumeSpike != 0 {
		t.Errorf("cycle 2 volume spike = %v, want inactive", sig.VolumeSpike)
	}

	// Tenfold jump against a flat baseline of 10.
	_, sig = d.Evaluate(testAsset, organicBatch(100))
	if sig.VolumeSpike < 0.95 {
		t.Errorf("10x volume jump spike = %v, want near 1", sig.VolumeSpike)
	}
}

func TestVolumeHistoryIsPerAsset(t *testing.T) {
	d := NewDetector()
	other := common.HexToAddress("0x000000000000000000000000000000000000beef")
	d.Evaluate(testAsset, organicBatch(10))
	d.Evaluate(testAsset, organicBatch(10))

	// A different asset has no baseline yet.
	_, sig := d.Evaluate(other, organicBatch(100))
	if sig.VolumeSpike != 0 {
		t.Errorf("fresh asset volume spike = %v, want inactive", sig.VolumeSpike)
	}
}

func TestSourceDivergence(t *testing.T) {
	mk := func(src sentibridge.Source, polarity float64, n int) []sentibridge.ScoredItem {
		out := make([]sentibridge.ScoredItem, n)
		for i := range out {
			out[i] = sentibridge.ScoredItem{
				Item:     sentibridge.Item{Source: src, AuthorWeight: 0.7},
				Polarity: polarity,
			}
		}
		return out
	}
	split := append(mk(sentibridge.SourceX, 0.9, 5), mk(sentibridge.SourceNewswire, -0.9, 5)...)
	v, ok := sourceDivergence(split)
	if !ok {
		t.Fatal("two sources must activate the signal")
	}
	if v < 0.9-1e-9 || v > 0.9+1e-9 {
		t.Errorf("divergence (0.9 vs -0.9) = %v, want 0.9", v)
	}

	aligned := append(mk(sentibridge.SourceX, 0.3, 5), mk(sentibridge.SourceNewswire, 0.2, 5)...)
	if v, _ := sourceDivergence(aligned); v != 0 {
		t.Errorf("aligned sources below the gate = %v, want 0", v)
	}

	if _, ok := sourceDivergence(mk(sentibridge.SourceX, 0.9, 5)); ok {
		t.Error("single source must not activate divergence")
	}
}

func TestContentSimilarityDeterministic(t *testing.T) {
	batch := spamBatch(300) // above the sampling cap
	a, _ := contentSimilarity(batch)
	b, _ := contentSimilarity(batch)
	if a != b {
		t.Fatalf("similarity not deterministic: %v vs %v", a, b)
	}
}

func TestEvaluateEmptyBatch(t *testing.T) {
	d := NewDetector()
	score, sig := d.Evaluate(testAsset, nil)
	if score != 0 || sig.Active != 0 {
		t.Fatalf("empty batch = (%v, %+v), want zero score and no active signals", score, sig)
	}
}
