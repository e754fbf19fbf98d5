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
	"time"
)

// Backoff parameters for transient source errors.
const (
	backoffBase    = 500 * time.Millisecond
	backoffFactor  = 2
	backoffCap     = 30 * time.Second
	backoffRetries = 5
)

// retryTransient runs fn up to backoffRetries times, sleeping exponentially
// between attempts. Terminal errors and context errors return immediately;
// the last transient error is returned after the attempts are exhausted.
func retryTransient(ctx context.Context, onRetry func(attempt int, err error), fn func() error) error {
	delay := backoffBase
	var err error
	for attempt := 1; attempt <= backoffRetries; attempt++ {
		err = fn()
		if err == nil || IsTerminal(err) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt == backoffRetries {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= backoffFactor
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	return err
}
