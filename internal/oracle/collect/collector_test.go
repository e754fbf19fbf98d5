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

package collect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sentibridge"
)

func TestErrorClassification(t *testing.T) {
	srcErr := errors.New("api key revoked")
	cases := []struct {
		name         string
		err          error
		terminal     bool
		cancellation bool
	}{
		{"terminal source error", Terminal(srcErr), true, false},
		{"wrapped terminal", fmt.Errorf("newswire: %w", Terminal(srcErr)), true, false},
		{"plain transient", srcErr, false, false},
		{"canceled", context.Canceled, true, true},
		{"deadline", fmt.Errorf("collect: %w", context.DeadlineExceeded), true, true},
		{"nil", nil, false, false},
	}
	for _, c := range cases {
		if got := IsTerminal(c.err); got != c.terminal {
			t.Errorf("%s: IsTerminal = %v, want %v", c.name, got, c.terminal)
		}
		if got := IsCancellation(c.err); got != c.cancellation {
			t.Errorf("%s: IsCancellation = %v, want %v", c.name, got, c.cancellation)
		}
	}
}

func TestContainsSymbol(t *testing.T) {
	cases := []struct {
		text, symbol string
		want         bool
	}{
		{"PEPE is pumping", "PEPE", true},
		{"pepe is pumping", "PEPE", true},
		{"$PEPE to the moon", "PEPE", true},
		{"buy $pepe now", "PEPE", true},
		{"PEPEX is a different token", "PEPE", false},
		{"XPEPE listed today", "PEPE", false},
		{"nothing here", "PEPE", false},
		{"ends with PEPE", "PEPE", true},
		{"(PEPE)", "PEPE", true},
		{"", "PEPE", false},
		{"anything", "", false},
	}
	for _, c := range cases {
		if got := containsSymbol(c.text, c.symbol); got != c.want {
			t.Errorf("containsSymbol(%q, %q) = %v, want %v", c.text, c.symbol, got, c.want)
		}
	}
}

func TestMatchAssets(t *testing.T) {
	tags := matchAssets("$PEPE and wojak are both moving", []string{"PEPE", "WOJAK", "DOGE"})
	if len(tags) != 2 || tags[0] != "PEPE" || tags[1] != "WOJAK" {
		t.Fatalf("matchAssets = %v, want [PEPE WOJAK]", tags)
	}
}

func TestInWindowClosedOpen(t *testing.T) {
	start := time.Unix(1000, 0)
	end := time.Unix(2000, 0)
	if !inWindow(start, start, end) {
		t.Error("window start must be included")
	}
	if inWindow(end, start, end) {
		t.Error("window end must be excluded")
	}
	if inWindow(start.Add(-time.Second), start, end) {
		t.Error("before start must be excluded")
	}
}

func TestSortAndCapStableOrder(t *testing.T) {
	ts := time.Unix(5000, 0)
	items := []sentibridge.Item{
		{ID: "b", CreatedAt: ts.Add(time.Second)},
		{ID: "c", CreatedAt: ts},
		{ID: "a", CreatedAt: ts},
		{ID: "d", CreatedAt: ts.Add(-time.Second)},
	}
	out := sortAndCap(items, 3)
	if len(out) != 3 {
		t.Fatalf("cap not applied, got %d items", len(out))
	}
	want := []string{"d", "a", "c"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s (full: %v)", i, out[i].ID, id, out)
		}
	}
}

func TestQualifyID(t *testing.T) {
	if got := qualifyID(sentibridge.SourceX, "123"); got != "x:123" {
		t.Fatalf("qualifyID = %q, want x:123", got)
	}
}
