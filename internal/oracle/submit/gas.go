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
	"math/big"

	"github.com/ethereum/go-ethereum"

	"sentibridge/internal/oracle/telemetry"
)

const (
	// gasLimitMargin is the multiplier applied to gas estimates, in percent.
	gasLimitMargin = 120

	// Estimation fallbacks when the node cannot estimate.
	fallbackSingleGas    = 150000
	fallbackBatchBaseGas = 50000
	fallbackBatchPerElem = 100000

	// bumpPercent is the fee increase applied when the pool rejects a
	// transaction as underpriced or a stuck one is replaced.
	bumpPercent = 10
)

// fees returns (tip, feeCap) for a new transaction: the node's suggested tip
// and the suggested price scaled by the configured multiplier. Returns
// ErrGasCeiling when the scaled fee cap exceeds the configured ceiling.
func (s *Submitter) fees(ctx context.Context) (tip, feeCap *big.Int, err error) {
	tip, err = s.client.SuggestGasTipCap(ctx)
	if err != nil {
		telemetry.RPCUnavailableTotal.Inc()
		return nil, nil, fmt.Errorf("%w: gas tip: %v", ErrRPCUnavailable, err)
	}
	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		telemetry.RPCUnavailableTotal.Inc()
		return nil, nil, fmt.Errorf("%w: gas price: %v", ErrRPCUnavailable, err)
	}
	feeCap = scalePct(price, int64(s.cfg.GasMultiplier*100))
	if s.cfg.GasCeiling != nil && feeCap.Cmp(s.cfg.GasCeiling) > 0 {
		return nil, nil, fmt.Errorf("%w: fee cap %s", ErrGasCeiling, feeCap)
	}
	if tip.Cmp(feeCap) > 0 {
		tip = new(big.Int).Set(feeCap)
	}
	return tip, feeCap, nil
}

// gasLimit estimates gas for calldata with margin, falling back to a size
// based constant when estimation fails. batchLen is 0 for a single update.
func (s *Submitter) gasLimit(ctx context.Context, data []byte, batchLen int) uint64 {
	msg := ethereum.CallMsg{From: s.signer.Address(), To: &s.cfg.Contract, Data: data}
	est, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		s.log.Warn("gas estimation failed, using fallback", "batch_len", batchLen, "err", err)
		if batchLen == 0 {
			return fallbackSingleGas
		}
		return uint64(fallbackBatchBaseGas + fallbackBatchPerElem*batchLen)
	}
	return est * gasLimitMargin / 100
}

// scalePct multiplies x by pct/100, rounding down.
func scalePct(x *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(x, big.NewInt(pct))
	return out.Div(out, big.NewInt(100))
}

// bumped returns the fee pair raised by bumpPercent, clamped to the ceiling.
func (s *Submitter) bumped(tip, feeCap *big.Int) (*big.Int, *big.Int, error) {
	newTip := scalePct(tip, 100+bumpPercent)
	newCap := scalePct(feeCap, 100+bumpPercent)
	if s.cfg.GasCeiling != nil && newCap.Cmp(s.cfg.GasCeiling) > 0 {
		return nil, nil, fmt.Errorf("%w: bumped fee cap %s", ErrGasCeiling, newCap)
	}
	return newTip, newCap, nil
}
