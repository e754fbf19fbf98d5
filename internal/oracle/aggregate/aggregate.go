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

// Package aggregate folds scored items into per-asset samples. The fold is
// commutative over items, so the ordering of scoring workers is never
// observable in the output.
package aggregate

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
	"sentibridge/internal/oracle/telemetry"
)

const (
	// refSampleSize is the sample size at which the log damping reaches
	// full confidence weight.
	refSampleSize = 1000

	// minTotalWeight guards the weighted average against vanishing
	// denominators.
	minTotalWeight = 1e-9
)

// Fold aggregates the items attributed to one asset into an AssetSample:
//
//	weight_i = author_weight_i * confidence_i
//	score    = sum(weight_i * polarity_i) / sum(weight_i)
//	conf     = clamp(mean(confidence_i) * log(1+n)/log(1+refSampleSize), 0, 1)
//
// It returns ok=false when no sample can be produced (no items, or all
// weights vanish); such assets are silently dropped for the cycle.
func Fold(asset common.Address, items []sentibridge.ScoredItem, windowEnd time.Time) (sentibridge.AssetSample, bool) {
	if len(items) == 0 {
		telemetry.AggregateEmptyTotal.Inc()
		return sentibridge.AssetSample{}, false
	}

	var weightedSum, totalWeight, confSum float64
	for _, it := range items {
		w := it.AuthorWeight * it.Confidence
		weightedSum += w * it.Polarity
		totalWeight += w
		confSum += it.Confidence
	}
	if totalWeight < minTotalWeight {
		telemetry.AggregateEmptyTotal.Inc()
		return sentibridge.AssetSample{}, false
	}

	n := float64(len(items))
	score := weightedSum / totalWeight
	conf := sentibridge.Clamp01((confSum / n) * math.Log(1+n) / math.Log(1+refSampleSize))

	sample := sentibridge.AssetSample{
		Asset:        asset,
		ScoreFP:      sentibridge.ScoreToFP(score),
		ConfidenceBP: sentibridge.ConfidenceToBP(conf),
		SampleSize:   uint32(len(items)),
		WindowEnd:    windowEnd,
	}
	telemetry.SamplesAggregatedTotal.Inc()
	return sample, true
}
