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

// Fixed-point numerics shared between the aggregator and the on-chain
// contract. Scores travel as signed integers scaled by 1e18; confidences as
// basis points. Both fit comfortably in int64/uint16, so big.Int only appears
// at the ABI boundary where the contract declares int128.
package sentibridge

import "math"

const (
	// ScaleFP is the fixed-point scale for sentiment scores. A score of
	// +1.0 is stored as +ScaleFP, -1.0 as -ScaleFP.
	ScaleFP int64 = 1e18

	// MaxConfidenceBP is full confidence in basis points.
	MaxConfidenceBP uint16 = 10000
)

// ScoreToFP converts a polarity in [-1, 1] to fixed point, rounding to
// nearest and clamping out-of-range inputs to the representable bounds.
func ScoreToFP(score float64) int64 {
	if math.IsNaN(score) {
		return 0
	}
	if score >= 1 {
		return ScaleFP
	}
	if score <= -1 {
		return -ScaleFP
	}
	return int64(math.Round(score * float64(ScaleFP)))
}

// FPToScore is the inverse of ScoreToFP.
func FPToScore(fp int64) float64 {
	return float64(fp) / float64(ScaleFP)
}

// ConfidenceToBP converts a confidence in [0, 1] to basis points, rounding to
// nearest and clamping.
func ConfidenceToBP(conf float64) uint16 {
	if math.IsNaN(conf) || conf <= 0 {
		return 0
	}
	if conf >= 1 {
		return MaxConfidenceBP
	}
	return uint16(math.Round(conf * float64(MaxConfidenceBP)))
}

// Clamp01 clamps v to [0, 1]. NaN clamps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AbsFP returns |fp| without overflow for the score range this package
// produces (|fp| <= ScaleFP).
func AbsFP(fp int64) int64 {
	if fp < 0 {
		return -fp
	}
	return fp
}
