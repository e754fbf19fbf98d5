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

// Package contract carries the write-path ABI of the sentiment oracle, the
// calldata packing helpers the submitter uses, and a reference state machine
// implementing the contract's semantics for the simulated backend and tests.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

// SentimentOracleABI is the write-path plus read surface the worker touches.
// Admin functions (pause, whitelist management, upgrade) live behind a
// timelocked multi-sig and are not part of this ABI.
const SentimentOracleABI = `[
	{
		"inputs": [
			{"name": "asset", "type": "address"},
			{"name": "score", "type": "int128"},
			{"name": "sampleSize", "type": "uint32"},
			{"name": "confidence", "type": "uint16"}
		],
		"name": "updateSentiment",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "assets", "type": "address[]"},
			{"name": "scores", "type": "int128[]"},
			{"name": "sampleSizes", "type": "uint32[]"},
			{"name": "confidences", "type": "uint16[]"}
		],
		"name": "batchUpdateSentiment",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "asset", "type": "address"}],
		"name": "latestSentiment",
		"outputs": [
			{"name": "score", "type": "int128"},
			{"name": "timestamp", "type": "uint64"},
			{"name": "sampleSize", "type": "uint32"},
			{"name": "confidence", "type": "uint16"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "asset", "type": "address"},
			{"name": "n", "type": "uint256"}
		],
		"name": "getHistory",
		"outputs": [
			{"name": "scores", "type": "int128[]"},
			{"name": "timestamps", "type": "uint64[]"},
			{"name": "sampleSizes", "type": "uint32[]"},
			{"name": "confidences", "type": "uint16[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "asset", "type": "address"},
			{"indexed": false, "name": "score", "type": "int128"},
			{"indexed": false, "name": "timestamp", "type": "uint64"},
			{"indexed": false, "name": "confidence", "type": "uint16"},
			{"indexed": false, "name": "sampleSize", "type": "uint32"}
		],
		"name": "SentimentUpdated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "asset", "type": "address"},
			{"indexed": false, "name": "reasonCode", "type": "uint8"}
		],
		"name": "CircuitBreakerTriggered",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "asset", "type": "address"},
			{"indexed": false, "name": "status", "type": "bool"}
		],
		"name": "TokenWhitelisted",
		"type": "event"
	}
]`

// ABI is the parsed form, shared by the submitter and the simulated backend.
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(SentimentOracleABI))
	if err != nil {
		panic(fmt.Sprintf("contract: parse oracle ABI: %v", err))
	}
	ABI = parsed
}

// PackUpdate encodes an updateSentiment call for one sample.
func PackUpdate(s sentibridge.AssetSample) ([]byte, error) {
	return ABI.Pack("updateSentiment", s.Asset, big.NewInt(s.ScoreFP), s.SampleSize, s.ConfidenceBP)
}

// PackBatchUpdate encodes a batchUpdateSentiment call for the samples.
func PackBatchUpdate(samples []sentibridge.AssetSample) ([]byte, error) {
	assets := make([]common.Address, len(samples))
	scores := make([]*big.Int, len(samples))
	sizes := make([]uint32, len(samples))
	confs := make([]uint16, len(samples))
	for i, s := range samples {
		assets[i] = s.Asset
		scores[i] = big.NewInt(s.ScoreFP)
		sizes[i] = s.SampleSize
		confs[i] = s.ConfidenceBP
	}
	return ABI.Pack("batchUpdateSentiment", assets, scores, sizes, confs)
}

// PackLatest encodes a latestSentiment eth_call.
func PackLatest(asset common.Address) ([]byte, error) {
	return ABI.Pack("latestSentiment", asset)
}

// UnpackLatest decodes a latestSentiment result. A zero timestamp means the
// asset has never been updated.
func UnpackLatest(data []byte) (Entry, error) {
	vals, err := ABI.Unpack("latestSentiment", data)
	if err != nil {
		return Entry{}, fmt.Errorf("unpack latestSentiment: %w", err)
	}
	score, ok := vals[0].(*big.Int)
	if !ok {
		return Entry{}, fmt.Errorf("unpack latestSentiment: unexpected score type %T", vals[0])
	}
	return Entry{
		Score:      score.Int64(),
		Timestamp:  vals[1].(uint64),
		SampleSize: vals[2].(uint32),
		Confidence: vals[3].(uint16),
	}, nil
}
