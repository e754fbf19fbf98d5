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

// Package sentibridge defines the shared data model of the sentiment oracle
// pipeline: collected items, scored items, and the per-asset aggregated
// sample handed to the on-chain submitter. All pipeline stages exchange these
// types; none of them carries stage-private state.
package sentibridge

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source identifies the platform an item was collected from.
type Source string

const (
	SourceNewswire Source = "newswire"
	SourceX        Source = "x"
	SourceDiscord  Source = "discord"
	SourceTelegram Source = "telegram"
)

// MaxItemText caps the stored text of a collected item. Longer posts are
// truncated at collection time; scoring never sees more than this.
const MaxItemText = 4096

// DefaultAuthorWeight is used when a source has no quality signals for an
// author (unknown followers, unknown account age).
const DefaultAuthorWeight = 0.5

// Item is one social/news post as returned by a collector.
//
// ID must be stable and globally unique within its source: replaying the same
// window yields the same IDs, which is what the deduplicator keys on.
type Item struct {
	ID           string
	Source       Source
	Text         string
	AuthorID     string
	AuthorWeight float64 // quality weight in [0,1]; DefaultAuthorWeight when unknown
	CreatedAt    time.Time
	AssetTags    []string
	Metadata     map[string]string
}

// TruncateText enforces MaxItemText on i.Text. Collectors call this before
// handing items to the pipeline so the cap is applied exactly once.
func (i *Item) TruncateText() {
	if len(i.Text) > MaxItemText {
		i.Text = i.Text[:MaxItemText]
	}
}

// ScoredItem is an Item plus the scorer's calibrated output.
type ScoredItem struct {
	Item
	Polarity   float64 // in [-1, 1]
	Confidence float64 // in [0, 1]
}

// AssetSample is the aggregated unit for one (asset, window) pair. It is what
// the manipulation detector labels and the submitter writes on-chain.
type AssetSample struct {
	Asset             common.Address
	ScoreFP           int64  // fixed point, |ScoreFP| <= ScaleFP
	ConfidenceBP      uint16 // basis points, <= MaxConfidenceBP
	SampleSize        uint32 // count of contributing items, >= 1
	WindowEnd         time.Time
	ManipulationScore float64 // in [0, 1]
}

// Valid reports whether the sample satisfies the on-chain value invariants.
// A sample failing Valid must never reach the submitter.
func (s AssetSample) Valid() bool {
	if s.SampleSize < 1 {
		return false
	}
	if s.ScoreFP > ScaleFP || s.ScoreFP < -ScaleFP {
		return false
	}
	return s.ConfidenceBP <= MaxConfidenceBP
}

// SubmissionJob is the submitter's unit of work: the samples that survived
// the manipulation gate in one cycle, plus the cycle deadline the submitter
// must confirm within. Chain-level parameters (contract, chain id, gas
// ceiling) are fixed per submitter instance.
type SubmissionJob struct {
	Samples  []AssetSample
	Deadline time.Time
}
