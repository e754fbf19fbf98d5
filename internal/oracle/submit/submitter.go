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
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"sentibridge"
	"sentibridge/internal/oracle/contract"
	"sentibridge/internal/oracle/signer"
	"sentibridge/internal/oracle/telemetry"
)

// Config carries the submission knobs. Zero values take the defaults below.
type Config struct {
	Contract       common.Address
	BatchSize      int           // max samples per transaction, capped at 50
	MinInterval    time.Duration // skip assets updated more recently than this
	MaxScoreChange int64         // skip samples the circuit breaker would reject
	Confirmations  uint64        // blocks before a receipt counts as final
	GasMultiplier  float64       // fee cap = suggested price * multiplier
	GasCeiling     *big.Int      // hard fee cap in wei, nil disables
	PollInterval   time.Duration // receipt poll cadence
	StallTimeout   time.Duration // unmined this long means dropped, rebroadcast
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 || c.BatchSize > contract.MaxBatchSize {
		c.BatchSize = contract.MaxBatchSize
	}
	if c.MinInterval <= 0 {
		c.MinInterval = contract.DefaultMinUpdateInterval * time.Second
	}
	if c.MaxScoreChange <= 0 {
		c.MaxScoreChange = contract.DefaultMaxScoreChange
	}
	if c.Confirmations == 0 {
		c.Confirmations = 2
	}
	if c.GasMultiplier <= 0 {
		c.GasMultiplier = 1.2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = 90 * time.Second
	}
}

// Submitter drives samples through the transaction lifecycle: pre-check
// against chain state, pack, sign, broadcast, and watch to finality.
type Submitter struct {
	client   ChainClient
	signer   signer.Signer
	chainID  *big.Int
	txSigner types.Signer
	nonces   *NonceManager
	journal  *Journal
	cfg      Config
	log      log.Logger
	now      func() time.Time
}

// New connects the submitter to the chain. journal may be nil.
func New(ctx context.Context, client ChainClient, sgn signer.Signer, journal *Journal, cfg Config) (*Submitter, error) {
	cfg.applyDefaults()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		telemetry.RPCUnavailableTotal.Inc()
		return nil, fmt.Errorf("%w: chain id: %v", ErrRPCUnavailable, err)
	}
	return &Submitter{
		client:   client,
		signer:   sgn,
		chainID:  chainID,
		txSigner: types.LatestSignerForChainID(chainID),
		nonces:   NewNonceManager(client, sgn.Address()),
		journal:  journal,
		cfg:      cfg,
		log:      log.New("component", "submitter"),
		now:      time.Now,
	}, nil
}

// Submit pushes the job's samples on chain and blocks until every broadcast
// transaction is confirmed, reverted, or the job deadline passes. It returns
// the hashes of confirmed transactions; a non-nil error means at least one
// chunk did not reach finality.
func (s *Submitter) Submit(ctx context.Context, job sentibridge.SubmissionJob) ([]common.Hash, error) {
	ready := make([]sentibridge.AssetSample, 0, len(job.Samples))
	for _, smp := range job.Samples {
		keep, err := s.precheck(ctx, smp)
		if err != nil {
			return nil, err
		}
		if keep {
			ready = append(ready, smp)
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}

	var confirmed []common.Hash
	for start := 0; start < len(ready); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(ready) {
			end = len(ready)
		}
		hash, err := s.submitChunk(ctx, ready[start:end], job.Deadline)
		if err != nil {
			return confirmed, err
		}
		confirmed = append(confirmed, hash)
	}
	return confirmed, nil
}

// precheck mirrors the contract's per-asset gates against current chain
// state so doomed samples never cost gas. Assets that would trip the
// min-interval or circuit-breaker checks are skipped for this cycle.
func (s *Submitter) precheck(ctx context.Context, smp sentibridge.AssetSample) (bool, error) {
	data, err := contract.PackLatest(smp.Asset)
	if err != nil {
		return false, fmt.Errorf("pack latestSentiment: %w", err)
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.cfg.Contract, Data: data}, nil)
	if err != nil {
		telemetry.RPCUnavailableTotal.Inc()
		return false, fmt.Errorf("%w: read latest: %v", ErrRPCUnavailable, err)
	}
	last, err := contract.UnpackLatest(out)
	if err != nil {
		return false, err
	}
	if last.Timestamp == 0 {
		return true, nil // never updated, every gate passes
	}
	if uint64(s.now().Unix()) < last.Timestamp+uint64(s.cfg.MinInterval/time.Second) {
		telemetry.SubmitSkippedMinInterval.Inc()
		s.log.Debug("skipping asset inside min update interval", "asset", smp.Asset, "last", last.Timestamp)
		return false, nil
	}
	if last.Score != 0 && absInt64(smp.ScoreFP-last.Score) > s.cfg.MaxScoreChange {
		telemetry.SubmitSkippedCircuitBreaker.Inc()
		s.log.Warn("skipping asset, score jump would trip circuit breaker",
			"asset", smp.Asset, "last_fp", last.Score, "new_fp", smp.ScoreFP)
		return false, nil
	}
	return true, nil
}

// txAttempt is one signed transaction in flight, with everything needed to
// re-sign it at the same nonce with bumped fees.
type txAttempt struct {
	tx     *types.Transaction
	nonce  uint64
	data   []byte
	gas    uint64
	tip    *big.Int
	feeCap *big.Int
}

func (s *Submitter) submitChunk(ctx context.Context, chunk []sentibridge.AssetSample, deadline time.Time) (common.Hash, error) {
	var (
		data []byte
		err  error
	)
	batchLen := 0
	if len(chunk) == 1 {
		data, err = contract.PackUpdate(chunk[0])
	} else {
		batchLen = len(chunk)
		data, err = contract.PackBatchUpdate(chunk)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack calldata: %w", err)
	}
	srcHash := SourceHash(chunk)

	gas := s.gasLimit(ctx, data, batchLen)
	tip, feeCap, err := s.fees(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := s.nonces.Reserve(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	s.journalRecord(StatePendingSign, common.Hash{}, nonce, srcHash)
	at := &txAttempt{nonce: nonce, data: data, gas: gas, tip: tip, feeCap: feeCap}
	if err := s.sign(ctx, at); err != nil {
		return common.Hash{}, err
	}
	s.journalRecord(StatePendingBroadcast, at.tx.Hash(), nonce, srcHash)

	if err := s.broadcast(ctx, at); err != nil {
		return common.Hash{}, err
	}
	telemetry.TxSubmittedTotal.Inc()
	s.log.Info("submitted sentiment update", "tx", at.tx.Hash(), "nonce", nonce, "assets", len(chunk))
	s.journalRecord(StatePendingConfirm, at.tx.Hash(), nonce, srcHash)

	return s.waitConfirmed(ctx, at, srcHash, deadline)
}

// sign assembles the EIP-1559 transaction for the attempt's current fees and
// signs its digest through the Signer boundary.
func (s *Submitter) sign(ctx context.Context, at *txAttempt) error {
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     at.nonce,
		GasTipCap: at.tip,
		GasFeeCap: at.feeCap,
		Gas:       at.gas,
		To:        &s.cfg.Contract,
		Data:      at.data,
	})
	sig, err := s.signer.Sign(ctx, s.txSigner.Hash(tx))
	if err != nil {
		telemetry.SignerUnavailableTotal.Inc()
		return fmt.Errorf("%w: %v", ErrSignerUnavailable, err)
	}
	signed, err := tx.WithSignature(s.txSigner, sig)
	if err != nil {
		return fmt.Errorf("%w: attach signature: %v", ErrSignerUnavailable, err)
	}
	at.tx = signed
	return nil
}

// broadcast sends the attempt, bumping fees on underpriced rejections and
// resyncing the nonce on nonce errors. Bounded retries; anything else is an
// RPC failure.
func (s *Submitter) broadcast(ctx context.Context, at *txAttempt) error {
	const maxAttempts = 3
	for i := 0; i < maxAttempts; i++ {
		err := s.client.SendTransaction(ctx, at.tx)
		if err == nil {
			return nil
		}
		msg := err.Error()
		switch {
		case strings.Contains(msg, "underpriced"):
			tip, feeCap, berr := s.bumped(at.tip, at.feeCap)
			if berr != nil {
				return berr
			}
			at.tip, at.feeCap = tip, feeCap
			telemetry.TxGasBumpsTotal.Inc()
			s.log.Warn("transaction underpriced, bumping fees", "nonce", at.nonce, "fee_cap", feeCap)
			if serr := s.sign(ctx, at); serr != nil {
				return serr
			}
		case strings.Contains(msg, "nonce"):
			s.log.Warn("nonce mismatch on broadcast, resyncing", "nonce", at.nonce, "err", err)
			if rerr := s.nonces.Resync(ctx); rerr != nil {
				return rerr
			}
			nonce, rerr := s.nonces.Reserve(ctx)
			if rerr != nil {
				return rerr
			}
			at.nonce = nonce
			if serr := s.sign(ctx, at); serr != nil {
				return serr
			}
		default:
			telemetry.RPCUnavailableTotal.Inc()
			return fmt.Errorf("%w: broadcast: %v", ErrRPCUnavailable, err)
		}
	}
	return fmt.Errorf("%w: broadcast retries exhausted", ErrRPCUnavailable)
}

func (s *Submitter) journalRecord(state string, hash common.Hash, nonce uint64, src [32]byte) {
	if err := s.journal.Record(state, hash, nonce, src); err != nil {
		s.log.Warn("journal append failed", "state", state, "err", err)
	}
}

// FlushJournal persists buffered journal lines. The orchestrator calls this
// between cycles.
func (s *Submitter) FlushJournal() error { return s.journal.Flush() }

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
