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
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"sentibridge/internal/oracle/telemetry"
)

// waitConfirmed polls for the attempt's receipt until it reaches the
// configured confirmation depth. A transaction unmined past the stall
// timeout is treated as dropped from the pool and rebroadcast at the same
// nonce with bumped fees. The deadline bounds the whole watch.
func (s *Submitter) waitConfirmed(ctx context.Context, at *txAttempt, srcHash [32]byte, deadline time.Time) (common.Hash, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	lastActivity := s.now()

	for {
		select {
		case <-ctx.Done():
			return common.Hash{}, fmt.Errorf("%w: %v", ErrConfirmTimeout, ctx.Err())
		case <-ticker.C:
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			s.journalRecord(StateDropped, at.tx.Hash(), at.nonce, srcHash)
			return common.Hash{}, fmt.Errorf("%w: tx %s past deadline", ErrConfirmTimeout, at.tx.Hash())
		}

		receipt, err := s.client.TransactionReceipt(ctx, at.tx.Hash())
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				telemetry.RPCUnavailableTotal.Inc()
				s.log.Warn("receipt poll failed", "tx", at.tx.Hash(), "err", err)
				continue
			}
			if s.now().Sub(lastActivity) > s.cfg.StallTimeout {
				if rerr := s.rebroadcast(ctx, at, srcHash); rerr != nil {
					return common.Hash{}, rerr
				}
				lastActivity = s.now()
			}
			continue
		}

		if receipt.Status == types.ReceiptStatusFailed {
			telemetry.TxRevertedTotal.Inc()
			s.journalRecord(StateReverted, at.tx.Hash(), at.nonce, srcHash)
			s.log.Error("sentiment update reverted", "tx", at.tx.Hash(), "block", receipt.BlockNumber)
			return at.tx.Hash(), fmt.Errorf("%w: tx %s", ErrReverted, at.tx.Hash())
		}

		head, err := s.client.BlockNumber(ctx)
		if err != nil {
			telemetry.RPCUnavailableTotal.Inc()
			continue
		}
		if head+1 >= receipt.BlockNumber.Uint64()+s.cfg.Confirmations {
			telemetry.TxConfirmedTotal.Inc()
			s.journalRecord(StateConfirmed, at.tx.Hash(), at.nonce, srcHash)
			s.log.Info("sentiment update confirmed", "tx", at.tx.Hash(), "block", receipt.BlockNumber)
			return at.tx.Hash(), nil
		}
	}
}

// rebroadcast replaces a transaction presumed dropped: same nonce, fees
// bumped, freshly signed. The old hash is journaled as dropped so the audit
// trail links the replacement to it.
func (s *Submitter) rebroadcast(ctx context.Context, at *txAttempt, srcHash [32]byte) error {
	s.journalRecord(StateDropped, at.tx.Hash(), at.nonce, srcHash)
	s.log.Warn("transaction presumed dropped, rebroadcasting", "tx", at.tx.Hash(), "nonce", at.nonce)

	tip, feeCap, err := s.bumped(at.tip, at.feeCap)
	if err != nil {
		return err
	}
	at.tip, at.feeCap = tip, feeCap
	telemetry.TxGasBumpsTotal.Inc()
	if err := s.sign(ctx, at); err != nil {
		return err
	}
	if err := s.broadcast(ctx, at); err != nil {
		return err
	}
	s.journalRecord(StatePendingConfirm, at.tx.Hash(), at.nonce, srcHash)
	return nil
}
