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

// Package dedup maintains the short-horizon seen-set over stable item IDs.
// The index is a size-capped map of id -> first-seen time with lazy horizon
// eviction; an optional journal makes it survive restarts and an optional
// Redis adapter shares markers between worker replicas.
package dedup

import (
	"container/list"
	"sync"
	"time"

	"sentibridge"
	"sentibridge/internal/oracle/telemetry"
)

type entry struct {
	id        string
	firstSeen time.Time
}

// Index is the deduplication index. Safe for concurrent use from multiple
// collectors. Entries older than the horizon are dropped on access; when the
// capacity is reached the oldest entry is evicted.
type Index struct {
	mu       sync.Mutex
	byID     map[string]*list.Element
	order    *list.List // front = oldest insertion
	capacity int
	horizon  time.Duration
	journal  *Journal // nil when persistence is disabled
	markers  MarkerBackend
}

// NewIndex creates an index with the given capacity and horizon. journal and
// markers may be nil.
func NewIndex(capacity int, horizon time.Duration, journal *Journal, markers MarkerBackend) *Index {
	if capacity < 1 {
		capacity = 1
	}
	return &Index{
		byID:     make(map[string]*list.Element, capacity/4),
		order:    list.New(),
		capacity: capacity,
		horizon:  horizon,
		journal:  journal,
		markers:  markers,
	}
}

// Len returns the current entry count.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.order.Len()
}

// Seen records id at now and reports whether it was already present within
// the horizon. An expired entry is refreshed and reported as unseen.
func (x *Index) Seen(id string, now time.Time) bool {
	x.mu.Lock()
	if el, ok := x.byID[id]; ok {
		e := el.Value.(*entry)
		if now.Sub(e.firstSeen) <= x.horizon {
			x.mu.Unlock()
			return true
		}
		// Past the horizon: refresh in place, the item counts as new again.
		e.firstSeen = now
		x.order.MoveToBack(el)
		telemetry.DedupEvictedTotal.Inc()
		x.mu.Unlock()
		x.record(id, now)
		return false
	}
	x.insertLocked(id, now)
	x.mu.Unlock()
	x.record(id, now)
	return false
}

// insertLocked adds a fresh entry, evicting the oldest when full. Caller
// holds mu.
func (x *Index) insertLocked(id string, now time.Time) {
	if x.order.Len() >= x.capacity {
		oldest := x.order.Front()
		if oldest != nil {
			delete(x.byID, oldest.Value.(*entry).id)
			x.order.Remove(oldest)
			telemetry.DedupEvictedTotal.Inc()
		}
	}
	x.byID[id] = x.order.PushBack(&entry{id: id, firstSeen: now})
	telemetry.DedupSize.Set(float64(x.order.Len()))
}

// record persists the first-seen fact outside the lock.
func (x *Index) record(id string, now time.Time) {
	if x.journal != nil {
		x.journal.Append(id, now)
	}
}

// FilterNew drops items whose ID has been seen within the horizon and
// returns the survivors in input order. When a shared marker backend is
// configured it is consulted after the local index so replicas converge.
func (x *Index) FilterNew(items []sentibridge.Item, now time.Time) []sentibridge.Item {
	out := items[:0]
	for _, it := range items {
		if x.Seen(it.ID, now) {
			telemetry.DedupDroppedTotal.Inc()
			continue
		}
		if x.markers != nil && !x.markers.FirstSight(it.ID, x.horizon) {
			telemetry.DedupDroppedTotal.Inc()
			continue
		}
		out = append(out, it)
	}
	return out
}

// Sweep removes every entry older than the horizon. The orchestrator calls
// this between cycles; the hot path relies on lazy eviction only.
func (x *Index) Sweep(now time.Time) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	removed := 0
	for {
		oldest := x.order.Front()
		if oldest == nil {
			break
		}
		e := oldest.Value.(*entry)
		if now.Sub(e.firstSeen) <= x.horizon {
			break
		}
		delete(x.byID, e.id)
		x.order.Remove(oldest)
		removed++
	}
	if removed > 0 {
		telemetry.DedupEvictedTotal.Add(float64(removed))
		telemetry.DedupSize.Set(float64(x.order.Len()))
	}
	return removed
}

// Restore loads a previously journaled first-seen fact, skipping entries
// already past the horizon. Used only at startup, before collectors run.
func (x *Index) Restore(id string, firstSeen time.Time, now time.Time) {
	if now.Sub(firstSeen) > x.horizon {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byID[id]; ok {
		return
	}
	if x.order.Len() >= x.capacity {
		oldest := x.order.Front()
		delete(x.byID, oldest.Value.(*entry).id)
		x.order.Remove(oldest)
	}
	x.byID[id] = x.order.PushBack(&entry{id: id, firstSeen: firstSeen})
	telemetry.DedupSize.Set(float64(x.order.Len()))
}
