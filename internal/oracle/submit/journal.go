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

package submit

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge"
)

// Transaction lifecycle states recorded in the journal.
const (
	StatePendingSign      = "PENDING_SIGN"
	StatePendingBroadcast = "PENDING_BROADCAST"
	StatePendingConfirm   = "PENDING_CONFIRM"
	StateConfirmed        = "CONFIRMED"
	StateReverted         = "REVERTED"
	StateDropped          = "DROPPED"
)

// Journal is the append-only audit log of submission attempts. One line per
// state transition: unix timestamp, state, tx hash, nonce, and the source
// hash of the samples behind the transaction. Append errors are logged by
// the caller but never block submission; the journal is an audit trail, not
// a write-ahead log.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	now func() time.Time
}

// OpenJournal opens or creates the journal at path for appending.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open submission journal: %w", err)
	}
	return &Journal{f: f, w: bufio.NewWriter(f), now: time.Now}, nil
}

// Record appends one state transition.
func (j *Journal) Record(state string, txHash common.Hash, nonce uint64, sourceHash [32]byte) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := fmt.Fprintf(j.w, "%d\t%s\t%s\t%d\t%x\n",
		j.now().Unix(), state, txHash.Hex(), nonce, sourceHash)
	return err
}

// Flush forces buffered lines to disk.
func (j *Journal) Flush() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

// SourceHash fingerprints the samples a transaction carries, binding journal
// lines to the exact values submitted.
func SourceHash(samples []sentibridge.AssetSample) [32]byte {
	h := sha256.New()
	var buf [8]byte
	for _, s := range samples {
		h.Write(s.Asset[:])
		binary.BigEndian.PutUint64(buf[:], uint64(s.ScoreFP))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(s.SampleSize))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(s.ConfidenceBP))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(s.WindowEnd.Unix()))
		h.Write(buf[:])
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
