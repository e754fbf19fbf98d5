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

package contract

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

func TestPackUpdateDecodes(t *testing.T) {
	s := sentibridge.AssetSample{
		Asset:        asset,
		ScoreFP:      -42e16,
		ConfidenceBP: 3124,
		SampleSize:   10,
		WindowEnd:    time.Unix(1700000000, 0),
	}
	data, err := PackUpdate(s)
	if err != nil {
		t.Fatalf("PackUpdate: %v", err)
	}
	method, err := ABI.MethodById(data[:4])
	if err != nil || method.Name != "updateSentiment" {
		t.Fatalf("selector resolves to %v (err %v)", method, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := args[0].(common.Address); got != asset {
		t.Errorf("asset = %s", got.Hex())
	}
	if got := args[1].(*big.Int); got.Int64() != -42e16 {
		t.Errorf("score = %s", got)
	}
	if args[2].(uint32) != 10 || args[3].(uint16) != 3124 {
		t.Errorf("size/conf = %v/%v", args[2], args[3])
	}
}

func TestPackBatchUpdateDecodes(t *testing.T) {
	samples := []sentibridge.AssetSample{
		{Asset: asset, ScoreFP: 1e17, ConfidenceBP: 100, SampleSize: 1},
		{Asset: asset2, ScoreFP: -2e17, ConfidenceBP: 200, SampleSize: 2},
	}
	data, err := PackBatchUpdate(samples)
	if err != nil {
		t.Fatalf("PackBatchUpdate: %v", err)
	}
	method, err := ABI.MethodById(data[:4])
	if err != nil || method.Name != "batchUpdateSentiment" {
		t.Fatalf("selector resolves to %v (err %v)", method, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	addrs := args[0].([]common.Address)
	scores := args[1].([]*big.Int)
	if len(addrs) != 2 || addrs[1] != asset2 || scores[1].Int64() != -2e17 {
		t.Fatalf("decoded batch mismatch: %v %v", addrs, scores)
	}
}

func TestLatestRoundTripThroughABI(t *testing.T) {
	want := Entry{Score: 6e17, Timestamp: 1700000000, SampleSize: 10, Confidence: 3124}
	method := ABI.Methods["latestSentiment"]
	out, err := method.Outputs.Pack(big.NewInt(want.Score), want.Timestamp, want.SampleSize, want.Confidence)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := UnpackLatest(out)
	if err != nil {
		t.Fatalf("UnpackLatest: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}
