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
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SimulatedBackend is an in-process chain: it accepts signed transactions,
// executes their calldata against the reference Oracle, and serves receipts
// and eth_call reads. It implements the client surface the submitter needs,
// plus fault-injection hooks for drop, underpriced, and estimation failures.
type SimulatedBackend struct {
	mu sync.Mutex

	oracle  *Oracle
	chainID *big.Int
	signer  types.Signer
	now     func() uint64

	head     uint64
	nonces   map[common.Address]uint64 // next mineable nonce per sender
	queued   map[common.Address]map[uint64]*types.Transaction
	receipts map[common.Hash]*types.Receipt

	// extra is how many blocks the head advances past each mined block, so
	// confirmation depth is reached without explicit mining calls.
	extra uint64

	dropNext         int
	underpricedFloor *big.Int
	estimateErr      error
}

// NewSimulatedBackend wraps the oracle on chain chainID. now supplies the
// block timestamp the oracle sees for interval checks.
func NewSimulatedBackend(oracle *Oracle, chainID int64, now func() uint64) *SimulatedBackend {
	id := big.NewInt(chainID)
	return &SimulatedBackend{
		oracle:   oracle,
		chainID:  id,
		signer:   types.LatestSignerForChainID(id),
		now:      now,
		head:     1,
		nonces:   make(map[common.Address]uint64),
		queued:   make(map[common.Address]map[uint64]*types.Transaction),
		receipts: make(map[common.Hash]*types.Receipt),
		extra:    1,
	}
}

// Fault-injection hooks.

// DropNext makes the next n accepted transactions vanish from the pool:
// SendTransaction succeeds but no receipt ever appears and the sender's
// mineable nonce does not advance.
func (b *SimulatedBackend) DropNext(n int) {
	b.mu.Lock()
	b.dropNext = n
	b.mu.Unlock()
}

// SetUnderpricedFloor rejects transactions whose fee cap is below floor with
// the node's underpriced error. Pass nil to clear.
func (b *SimulatedBackend) SetUnderpricedFloor(floor *big.Int) {
	b.mu.Lock()
	b.underpricedFloor = floor
	b.mu.Unlock()
}

// SetEstimateGasErr forces EstimateGas to fail. Pass nil to clear.
func (b *SimulatedBackend) SetEstimateGasErr(err error) {
	b.mu.Lock()
	b.estimateErr = err
	b.mu.Unlock()
}

// SetExtraConfirmations sets how many blocks past each mined transaction the
// head sits at.
func (b *SimulatedBackend) SetExtraConfirmations(n uint64) {
	b.mu.Lock()
	b.extra = n
	b.mu.Unlock()
}

// AdvanceBlocks mines n empty blocks.
func (b *SimulatedBackend) AdvanceBlocks(n uint64) {
	b.mu.Lock()
	b.head += n
	b.mu.Unlock()
}

// Client surface.

func (b *SimulatedBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *SimulatedBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

func (b *SimulatedBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *SimulatedBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (b *SimulatedBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *SimulatedBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	forced := b.estimateErr
	b.mu.Unlock()
	if forced != nil {
		return 0, forced
	}
	if len(msg.Data) < 4 {
		return 21000, nil
	}
	method, err := ABI.MethodById(msg.Data[:4])
	if err != nil {
		return 0, ErrUnknownMethod
	}
	if method.Name == "batchUpdateSentiment" {
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return 0, fmt.Errorf("estimate: %w", err)
		}
		n := len(args[0].([]common.Address))
		return uint64(50000 + 100000*n), nil
	}
	return 120000, nil
}

func (b *SimulatedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.underpricedFloor != nil && tx.GasFeeCap().Cmp(b.underpricedFloor) < 0 {
		return errors.New("transaction underpriced")
	}
	sender, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("recover sender: %w", err)
	}
	next := b.nonces[sender]
	switch {
	case tx.Nonce() < next:
		return errors.New("nonce too low")
	case tx.Nonce() > next:
		q := b.queued[sender]
		if q == nil {
			q = make(map[uint64]*types.Transaction)
			b.queued[sender] = q
		}
		q[tx.Nonce()] = tx
		return nil
	}
	if b.dropNext > 0 {
		b.dropNext--
		return nil
	}
	b.mineLocked(sender, tx)
	for {
		q := b.queued[sender]
		nxt, ok := q[b.nonces[sender]]
		if !ok {
			break
		}
		delete(q, nxt.Nonce())
		b.mineLocked(sender, nxt)
	}
	return nil
}

func (b *SimulatedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// CallContract serves the oracle's view functions.
func (b *SimulatedBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, ErrUnknownMethod
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method.Name, err)
	}
	switch method.Name {
	case "latestSentiment":
		e, _ := b.oracle.Latest(args[0].(common.Address))
		return method.Outputs.Pack(big.NewInt(e.Score), e.Timestamp, e.SampleSize, e.Confidence)
	case "getHistory":
		n := int(args[1].(*big.Int).Int64())
		entries := b.oracle.History(args[0].(common.Address), n)
		scores := make([]*big.Int, len(entries))
		stamps := make([]uint64, len(entries))
		sizes := make([]uint32, len(entries))
		confs := make([]uint16, len(entries))
		for i, e := range entries {
			scores[i] = big.NewInt(e.Score)
			stamps[i] = e.Timestamp
			sizes[i] = e.SampleSize
			confs[i] = e.Confidence
		}
		return method.Outputs.Pack(scores, stamps, sizes, confs)
	}
	return nil, ErrUnknownMethod
}

// mineLocked executes the transaction against the oracle and records the
// receipt. Execution errors become status-0 receipts, as on chain.
func (b *SimulatedBackend) mineLocked(sender common.Address, tx *types.Transaction) {
	status := types.ReceiptStatusSuccessful
	if err := b.execute(sender, tx.Data()); err != nil {
		status = types.ReceiptStatusFailed
	}
	b.head++
	block := b.head
	b.head += b.extra
	b.nonces[sender] = tx.Nonce() + 1
	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(block),
		GasUsed:     tx.Gas() / 2,
	}
}

func (b *SimulatedBackend) execute(sender common.Address, data []byte) error {
	if len(data) < 4 {
		return ErrUnknownMethod
	}
	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return ErrUnknownMethod
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return fmt.Errorf("decode %s: %w", method.Name, err)
	}
	now := b.now()
	switch method.Name {
	case "updateSentiment":
		return b.oracle.Update(sender, now,
			args[0].(common.Address),
			args[1].(*big.Int).Int64(),
			args[2].(uint32),
			args[3].(uint16))
	case "batchUpdateSentiment":
		raw := args[1].([]*big.Int)
		scores := make([]int64, len(raw))
		for i, s := range raw {
			scores[i] = s.Int64()
		}
		_, err := b.oracle.BatchUpdate(sender, now,
			args[0].([]common.Address),
			scores,
			args[2].([]uint32),
			args[3].([]uint16))
		return err
	}
	return ErrUnknownMethod
}
