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
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"sentibridge/internal/oracle/telemetry"
)

// NonceManager hands out strictly increasing nonces for one operator
// address. All allocation goes through the mutex, so concurrent submitters
// sharing a manager never reuse a nonce. After a broadcast failure the
// caller resyncs against the node's pending count.
type NonceManager struct {
	mu     sync.Mutex
	client ChainClient
	addr   common.Address
	next   uint64
	synced bool
}

// NewNonceManager tracks nonces for addr. The first Reserve resyncs from the
// node.
func NewNonceManager(client ChainClient, addr common.Address) *NonceManager {
	return &NonceManager{client: client, addr: addr}
}

// Reserve allocates the next nonce.
func (m *NonceManager) Reserve(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.synced {
		if err := m.resyncLocked(ctx); err != nil {
			return 0, err
		}
	}
	n := m.next
	m.next++
	return n, nil
}

// Resync drops local state and re-reads the pending nonce. Called after
// nonce errors from the node or a process restart mid-flight.
func (m *NonceManager) Resync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resyncLocked(ctx)
}

func (m *NonceManager) resyncLocked(ctx context.Context) error {
	n, err := m.client.PendingNonceAt(ctx, m.addr)
	if err != nil {
		telemetry.RPCUnavailableTotal.Inc()
		return fmt.Errorf("%w: pending nonce: %v", ErrRPCUnavailable, err)
	}
	m.next = n
	m.synced = true
	telemetry.NonceResyncsTotal.Inc()
	return nil
}
