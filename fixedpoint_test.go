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

package sentibridge

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestScoreToFPBounds(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{1.0, ScaleFP},
		{-1.0, -ScaleFP},
		{1.5, ScaleFP},    // clamp above
		{-1.5, -ScaleFP},  // clamp below
		{0, 0},
		{math.NaN(), 0},
		{0.5, 5e17},
		{-0.25, -25e16},
	}
	for _, c := range cases {
		if got := ScoreToFP(c.in); got != c.want {
			t.Errorf("ScoreToFP(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestScoreFPRoundTrip(t *testing.T) {
	for _, v := range []float64{-1, -0.731, -0.5, 0, 0.25, 0.6, 0.999, 1} {
		back := FPToScore(ScoreToFP(v))
		if math.Abs(back-v) > 1e-9 {
			t.Errorf("round trip %v -> %v, drift too large", v, back)
		}
	}
}

func TestConfidenceToBP(t *testing.T) {
	cases := []struct {
		in   float64
		want uint16
	}{
		{0, 0},
		{-0.5, 0},
		{1, MaxConfidenceBP},
		{2, MaxConfidenceBP},
		{math.NaN(), 0},
		{0.31236, 3124},
		{0.5, 5000},
	}
	for _, c := range cases {
		if got := ConfidenceToBP(c.in); got != c.want {
			t.Errorf("ConfidenceToBP(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAssetSampleValid(t *testing.T) {
	base := AssetSample{
		Asset:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		ScoreFP:      5e17,
		ConfidenceBP: 5000,
		SampleSize:   3,
	}
	if !base.Valid() {
		t.Fatal("base sample should be valid")
	}

	s := base
	s.ScoreFP = ScaleFP + 1
	if s.Valid() {
		t.Error("score above +ScaleFP must be invalid")
	}
	s = base
	s.ScoreFP = -ScaleFP - 1
	if s.Valid() {
		t.Error("score below -ScaleFP must be invalid")
	}
	s = base
	s.ConfidenceBP = MaxConfidenceBP + 1
	if s.Valid() {
		t.Error("confidence above 10000bp must be invalid")
	}
	s = base
	s.SampleSize = 0
	if s.Valid() {
		t.Error("zero sample size must be invalid")
	}
	s = base
	s.ScoreFP = ScaleFP
	s.ConfidenceBP = MaxConfidenceBP
	if !s.Valid() {
		t.Error("exact bounds must be valid")
	}
}

func TestTruncateText(t *testing.T) {
	long := make([]byte, MaxItemText+100)
	for i := range long {
		long[i] = 'a'
	}
	it := Item{Text: string(long)}
	it.TruncateText()
	if len(it.Text) != MaxItemText {
		t.Fatalf("truncated length %d, want %d", len(it.Text), MaxItemText)
	}
	short := Item{Text: "fine"}
	short.TruncateText()
	if short.Text != "fine" {
		t.Fatal("short text must be untouched")
	}
}
