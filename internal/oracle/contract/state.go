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
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

// Contract defaults. These mirror the deployed parameters; the admin setters
// below exist so tests can exercise both sides of each gate.
const (
	DefaultMinUpdateInterval = 240 // seconds
	DefaultMaxScoreChange    = int64(2e17)
	HistoryCapacity          = 288 // one day of 5-minute cycles
	MaxBatchSize             = 50
)

// Revert reasons. The simulated backend surfaces these as failed receipts;
// the submitter only ever sees a status-0 receipt, as it would on chain.
var (
	ErrPaused           = errors.New("oracle: paused")
	ErrNotOperator      = errors.New("oracle: caller is not an operator")
	ErrNotWhitelisted   = errors.New("oracle: asset not whitelisted")
	ErrZeroAsset        = errors.New("oracle: zero asset address")
	ErrScoreRange       = errors.New("oracle: score out of range")
	ErrConfidenceRange  = errors.New("oracle: confidence out of range")
	ErrZeroSampleSize   = errors.New("oracle: zero sample size")
	ErrMinInterval      = errors.New("oracle: update before min interval")
	ErrCircuitBreaker   = errors.New("oracle: score change exceeds limit")
	ErrBatchTooLarge    = errors.New("oracle: batch exceeds max size")
	ErrBatchLenMismatch = errors.New("oracle: batch argument length mismatch")
	ErrUnknownMethod    = errors.New("oracle: unknown method selector")
)

// Entry is one stored observation for an asset.
type Entry struct {
	Score      int64
	Timestamp  uint64
	SampleSize uint32
	Confidence uint16
}

// Event is a recorded log entry. Name is the ABI event name.
type Event struct {
	Name   string
	Asset  common.Address
	Entry  Entry
	Reason uint8
	Status bool
}

// Circuit breaker reason codes emitted with CircuitBreakerTriggered.
const (
	ReasonScoreJump uint8 = 1
)

// ring is the fixed-capacity per-asset history. head points at the slot the
// next write lands in; iteration newest-first starts at head-1.
type ring struct {
	buf  [HistoryCapacity]Entry
	head int
	size int
}

func (r *ring) push(e Entry) {
	r.buf[r.head] = e
	r.head = (r.head + 1) % HistoryCapacity
	if r.size < HistoryCapacity {
		r.size++
	}
}

// newestFirst returns up to n entries, most recent first.
func (r *ring) newestFirst(n int) []Entry {
	if n > r.size {
		n = r.size
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[((r.head-1-i)%HistoryCapacity+HistoryCapacity)%HistoryCapacity]
	}
	return out
}

// Oracle is the reference state machine behind the simulated backend. It
// enforces the same gates the deployed contract does: operator gating,
// optional whitelist, pause, bounds checks, per-asset min update interval,
// and the score-jump circuit breaker with its first-update bypass.
type Oracle struct {
	mu sync.Mutex

	paused            bool
	whitelistEnabled  bool
	circuitBreakerOn  bool
	minUpdateInterval uint64
	maxScoreChange    int64

	operators map[common.Address]bool
	whitelist map[common.Address]bool

	latest       map[common.Address]Entry
	history      map[common.Address]*ring
	totalUpdates uint64
	events       []Event
}

// NewOracle builds an oracle with defaults: circuit breaker on, whitelist
// off, the given addresses granted operator.
func NewOracle(operators ...common.Address) *Oracle {
	o := &Oracle{
		circuitBreakerOn:  true,
		minUpdateInterval: DefaultMinUpdateInterval,
		maxScoreChange:    DefaultMaxScoreChange,
		operators:         make(map[common.Address]bool),
		whitelist:         make(map[common.Address]bool),
		latest:            make(map[common.Address]Entry),
		history:           make(map[common.Address]*ring),
	}
	for _, op := range operators {
		o.operators[op] = true
	}
	return o
}

// Admin setters. On chain these sit behind the timelocked multi-sig; here
// they exist so tests can flip each gate.

func (o *Oracle) SetPaused(v bool) { o.mu.Lock(); o.paused = v; o.mu.Unlock() }

func (o *Oracle) SetCircuitBreaker(v bool) { o.mu.Lock(); o.circuitBreakerOn = v; o.mu.Unlock() }

func (o *Oracle) SetMinUpdateInterval(sec uint64) {
	o.mu.Lock()
	o.minUpdateInterval = sec
	o.mu.Unlock()
}

func (o *Oracle) SetMaxScoreChange(v int64) { o.mu.Lock(); o.maxScoreChange = v; o.mu.Unlock() }

func (o *Oracle) SetWhitelistEnabled(v bool) { o.mu.Lock(); o.whitelistEnabled = v; o.mu.Unlock() }

func (o *Oracle) SetWhitelisted(asset common.Address, v bool) {
	o.mu.Lock()
	o.whitelist[asset] = v
	o.events = append(o.events, Event{Name: "TokenWhitelisted", Asset: asset, Status: v})
	o.mu.Unlock()
}

func (o *Oracle) GrantOperator(addr common.Address) {
	o.mu.Lock()
	o.operators[addr] = true
	o.mu.Unlock()
}

func (o *Oracle) RevokeOperator(addr common.Address) {
	o.mu.Lock()
	delete(o.operators, addr)
	o.mu.Unlock()
}

// Update applies a single updateSentiment call at time now (unix seconds).
// Any returned error corresponds to a revert of the whole transaction.
func (o *Oracle) Update(caller common.Address, now uint64, asset common.Address, score int64, sampleSize uint32, confidence uint16) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkCaller(caller); err != nil {
		return err
	}
	if err := o.checkArgs(asset, score, sampleSize, confidence); err != nil {
		return err
	}
	if o.whitelistEnabled && !o.whitelist[asset] {
		return ErrNotWhitelisted
	}
	if last, ok := o.latest[asset]; ok {
		if now < last.Timestamp+o.minUpdateInterval {
			return ErrMinInterval
		}
		if o.circuitBreakerOn && last.Score != 0 && absDiff(score, last.Score) > o.maxScoreChange {
			o.events = append(o.events, Event{Name: "CircuitBreakerTriggered", Asset: asset, Reason: ReasonScoreJump})
			return ErrCircuitBreaker
		}
	}
	o.commit(asset, Entry{Score: score, Timestamp: now, SampleSize: sampleSize, Confidence: confidence})
	return nil
}

// BatchUpdate applies batchUpdateSentiment. Malformed batches (length
// mismatch, over the cap, bad bounds anywhere) revert whole; per-asset gate
// failures (zero address, whitelist miss, min interval, circuit breaker) skip
// that element and process the rest. accepted[i] reports whether element i
// was stored.
func (o *Oracle) BatchUpdate(caller common.Address, now uint64, assets []common.Address, scores []int64, sampleSizes []uint32, confidences []uint16) (accepted []bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkCaller(caller); err != nil {
		return nil, err
	}
	n := len(assets)
	if len(scores) != n || len(sampleSizes) != n || len(confidences) != n {
		return nil, ErrBatchLenMismatch
	}
	if n > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	for i := 0; i < n; i++ {
		if assets[i] == (common.Address{}) {
			continue // skipped below, not a revert
		}
		if err := o.checkArgs(assets[i], scores[i], sampleSizes[i], confidences[i]); err != nil {
			return nil, err
		}
	}

	accepted = make([]bool, n)
	for i := 0; i < n; i++ {
		asset := assets[i]
		if asset == (common.Address{}) {
			continue
		}
		if o.whitelistEnabled && !o.whitelist[asset] {
			continue
		}
		if last, ok := o.latest[asset]; ok {
			if now < last.Timestamp+o.minUpdateInterval {
				continue
			}
			if o.circuitBreakerOn && last.Score != 0 && absDiff(scores[i], last.Score) > o.maxScoreChange {
				o.events = append(o.events, Event{Name: "CircuitBreakerTriggered", Asset: asset, Reason: ReasonScoreJump})
				continue
			}
		}
		o.commit(asset, Entry{Score: scores[i], Timestamp: now, SampleSize: sampleSizes[i], Confidence: confidences[i]})
		accepted[i] = true
	}
	return accepted, nil
}

func (o *Oracle) checkCaller(caller common.Address) error {
	if o.paused {
		return ErrPaused
	}
	if !o.operators[caller] {
		return ErrNotOperator
	}
	return nil
}

// checkArgs validates value bounds only. Whitelist membership is a per-asset
// gate: it reverts a single update but merely skips a batch element, so the
// callers apply it themselves.
func (o *Oracle) checkArgs(asset common.Address, score int64, sampleSize uint32, confidence uint16) error {
	if asset == (common.Address{}) {
		return ErrZeroAsset
	}
	if score < -sentibridge.ScaleFP || score > sentibridge.ScaleFP {
		return ErrScoreRange
	}
	if confidence > sentibridge.MaxConfidenceBP {
		return ErrConfidenceRange
	}
	if sampleSize == 0 {
		return ErrZeroSampleSize
	}
	return nil
}

func (o *Oracle) commit(asset common.Address, e Entry) {
	o.latest[asset] = e
	r := o.history[asset]
	if r == nil {
		r = &ring{}
		o.history[asset] = r
	}
	r.push(e)
	o.totalUpdates++
	o.events = append(o.events, Event{Name: "SentimentUpdated", Asset: asset, Entry: e})
}

// Latest returns the most recent entry for asset.
func (o *Oracle) Latest(asset common.Address) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.latest[asset]
	return e, ok
}

// History returns up to n entries for asset, most recent first.
func (o *Oracle) History(asset common.Address, n int) []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.history[asset]
	if r == nil {
		return nil
	}
	return r.newestFirst(n)
}

// IsStale reports whether the latest entry for asset is older than maxAge
// seconds at time now. An asset with no entry is stale.
func (o *Oracle) IsStale(asset common.Address, maxAge, now uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.latest[asset]
	if !ok {
		return true
	}
	return now > e.Timestamp+maxAge
}

// TotalUpdates returns the count of stored entries across all assets.
func (o *Oracle) TotalUpdates() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalUpdates
}

// Events returns a copy of the recorded event log.
func (o *Oracle) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

func absDiff(a, b int64) int64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
