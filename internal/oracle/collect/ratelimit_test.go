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
	"testing"
	"time"
)

func TestTokenBucketDrainAndRefill(t *testing.T) {
	b := NewTokenBucket(3, 150*time.Millisecond) // 20 tokens/s

	for i := 0; i < 3; i++ {
		if !b.TryTake() {
			t.Fatalf("take %d should succeed on a full bucket", i)
		}
	}
	if b.TryTake() {
		t.Fatal("bucket should be empty after capacity takes")
	}

	// One token accrues in 50ms at this rate.
	time.Sleep(80 * time.Millisecond)
	if !b.TryTake() {
		t.Fatal("bucket should have refilled at least one token")
	}
}

func TestTokenBucketWaitBlocksUntilToken(t *testing.T) {
	b := NewTokenBucket(1, 100*time.Millisecond)
	if !b.TryTake() {
		t.Fatal("initial take should succeed")
	}

	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait returned after %v, expected to block for a refill", elapsed)
	}
}

func TestTokenBucketWaitHonorsCancellation(t *testing.T) {
	b := NewTokenBucket(1, time.Hour) // effectively never refills
	b.TryTake()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestRetryTransientStopsOnTerminal(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), nil, func() error {
		calls++
		return Terminal(errors.New("bad request"))
	})
	if calls != 1 {
		t.Fatalf("terminal error retried %d times, want 1 call", calls)
	}
	if !IsTerminal(err) {
		t.Fatalf("terminal marker lost through retry: %v", err)
	}
}

func TestRetryTransientEventuallySucceeds(t *testing.T) {
	calls := 0
	retries := 0
	err := retryTransient(context.Background(), func(int, error) { retries++ }, func() error {
		calls++
		if calls < 2 {
			return errors.New("http 503")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 || retries != 1 {
		t.Fatalf("calls=%d retries=%d, want 2 and 1", calls, retries)
	}
}

func TestRetryTransientContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryTransient(ctx, nil, func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
