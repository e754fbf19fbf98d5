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

// Package collect implements the data-collection stage: the Collector
// contract, the per-credential rate limiter, retry with exponential backoff,
// and one collector per supported platform. Collectors are pure sources:
// they never score items and never persist anything.
package collect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sentibridge"
)

// DefaultMaxItems caps items per cycle per source when the config leaves
// max_items unset.
const DefaultMaxItems = 10000

// Collector fetches a bounded batch of items for a set of asset symbols over
// a closed-open time window [windowStart, windowEnd).
//
// Implementations must return items in stable created-at order and must fill
// Item.ID such that replaying the same window yields a deterministic
// superset. Transient failures are retried internally; errors that escape
// are terminal for this source this cycle.
type Collector interface {
	// Source identifies the platform for metrics and per-source signals.
	Source() sentibridge.Source
	// Name is the configured instance name.
	Name() string
	// Collect returns items for the window plus an opaque continuation
	// cursor ("" when the window is exhausted).
	Collect(ctx context.Context, windowStart, windowEnd time.Time, assets []string) (items []sentibridge.Item, nextCursor string, err error)
	// HealthCheck probes the source's API with the configured credential.
	HealthCheck(ctx context.Context) error
}

// terminalError marks an error that must not be retried within the cycle.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err as a terminal source error.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err (or anything it wraps) is terminal.
// Context cancellation also stops retries: the cycle is over.
func IsTerminal(err error) bool {
	var te *terminalError
	if errors.As(err, &te) {
		return true
	}
	return IsCancellation(err)
}

// IsCancellation reports whether err is a context cancellation or deadline
// rather than a source failure. Callers use this to keep cycle-deadline
// aborts out of the source error counters.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// sortAndCap enforces the collector output contract: stable created-at order
// and the per-source item cap.
func sortAndCap(items []sentibridge.Item, maxItems int) []sentibridge.Item {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// inWindow reports whether ts falls in [start, end).
func inWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && ts.Before(end)
}

// matchAssets intersects the symbols mentioned by an item with the requested
// asset set, returning the tags to attach. Matching is case-insensitive on
// the symbol and also accepts the $SYMBOL cashtag form in free text.
func matchAssets(text string, requested []string) []string {
	var tags []string
	for _, sym := range requested {
		if containsSymbol(text, sym) {
			tags = append(tags, sym)
		}
	}
	return tags
}

func containsSymbol(text, symbol string) bool {
	if symbol == "" {
		return false
	}
	n, m := len(text), len(symbol)
	for i := 0; i+m <= n; i++ {
		if !equalFold(text[i:i+m], symbol) {
			continue
		}
		// Word boundary on both sides; a leading '$' cashtag also counts.
		before := i == 0 || !isWordByte(text[i-1]) || text[i-1] == '$'
		after := i+m == n || !isWordByte(text[i+m])
		if before && after {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// qualifyID namespaces a platform-local id so it is unique across sources.
func qualifyID(source sentibridge.Source, id string) string {
	return fmt.Sprintf("%s:%s", source, id)
}
