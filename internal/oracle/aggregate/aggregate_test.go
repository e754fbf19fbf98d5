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

package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

var testAsset = common.HexToAddress("0x00000000000000000000000000000000deadbeef")

func scoredItems(n int, polarity, confidence, weight float64) []sentibridge.ScoredItem {
	items := make([]sentibridge.ScoredItem, n)
	for i := range items {
		items[i] = sentibridge.ScoredItem{
			Item:       sentibridge.Item{AuthorWeight: weight},
			Polarity:   polarity,
			Confidence: confidence,
		}
	}
	return items
}

func TestFoldUniformBatch(t *testing.T) {
	// Ten items, polarity 0.6, confidence 0.9, full author weight:
	// score = 0.6, confidence = 0.9 * ln(11)/ln(1001) ~ 0.31237 -> 3124bp.
	windowEnd := time.Unix(1700000000, 0)
	sample, ok := Fold(testAsset, scoredItems(10, 0.6, 0.9, 1.0), windowEnd)
	if !ok {
		t.Fatal("uniform batch must fold")
	}
	if sample.SampleSize != 10 {
		t.Errorf("sample size = %d, want 10", sample.SampleSize)
	}
	if diff := sample.ScoreFP - 6e17; diff < -1000 || diff > 1000 {
		t.Errorf("score_fp = %d, want 6e17 within float tolerance", sample.ScoreFP)
	}
	if sample.ConfidenceBP != 3124 {
		t.Errorf("confidence_bp = %d, want 3124", sample.ConfidenceBP)
	}
	if !sample.WindowEnd.Equal(windowEnd) {
		t.Errorf("window end not carried through")
	}
	if !sample.Valid() {
		t.Error("folded sample must satisfy on-chain invariants")
	}
}

func TestFoldWeightsDominantVoices(t *testing.T) {
	items := []sentibridge.ScoredItem{
		{Item: sentibridge.Item{AuthorWeight: 1.0}, Polarity: 1.0, Confidence: 1.0},
		{Item: sentibridge.Item{AuthorWeight: 0.1}, Polarity: -1.0, Confidence: 0.1},
	}
	sample, ok := Fold(testAsset, items, time.Now())
	if !ok {
		t.Fatal("batch must fold")
	}
	// weight 1.0 vs 0.01: score = (1 - 0.01)/1.01 ~ 0.9802
	if sample.ScoreFP < 9e17 {
		t.Errorf("score_fp = %d, heavy positive voice should dominate", sample.ScoreFP)
	}
}

func TestFoldEmptyAndVanishingWeight(t *testing.T) {
	if _, ok := Fold(testAsset, nil, time.Now()); ok {
		t.Fatal("empty batch must not fold")
	}
	if _, ok := Fold(testAsset, scoredItems(5, 0.5, 0.0, 0.0), time.Now()); ok {
		t.Fatal("all-zero weights must not fold")
	}
}

func TestFoldCommutative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := make([]sentibridge.ScoredItem, 50)
	for i := range items {
		items[i] = sentibridge.ScoredItem{
			Item:       sentibridge.Item{AuthorWeight: rng.Float64()},
			Polarity:   rng.Float64()*2 - 1,
			Confidence: rng.Float64(),
		}
	}
	windowEnd := time.Now()
	a, okA := Fold(testAsset, items, windowEnd)

	shuffled := make([]sentibridge.ScoredItem, len(items))
	copy(shuffled, items)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	b, okB := Fold(testAsset, shuffled, windowEnd)

	if okA != okB {
		t.Fatal("fold outcome must not depend on order")
	}
	// Floating accumulation order shifts the result by at most a few ulps;
	// after fixed-point rounding the divergence must stay negligible.
	if diff := a.ScoreFP - b.ScoreFP; diff < -1000 || diff > 1000 {
		t.Errorf("order changed score: %d vs %d", a.ScoreFP, b.ScoreFP)
	}
	if d := int(a.ConfidenceBP) - int(b.ConfidenceBP); d < -1 || d > 1 {
		t.Errorf("order changed confidence: %d vs %d", a.ConfidenceBP, b.ConfidenceBP)
	}
}

func TestFoldConfidenceDampedBySmallSamples(t *testing.T) {
	one, _ := Fold(testAsset, scoredItems(1, 0.5, 0.9, 1.0), time.Now())
	hundred, _ := Fold(testAsset, scoredItems(100, 0.5, 0.9, 1.0), time.Now())
	if one.ConfidenceBP >= hundred.ConfidenceBP {
		t.Errorf("confidence must grow with sample size: n=1 %dbp, n=100 %dbp",
			one.ConfidenceBP, hundred.ConfidenceBP)
	}
}
