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

// Package submit turns per-asset samples into signed, confirmed oracle
// transactions: pre-checks against on-chain state, batching, EIP-1559 fee
// handling, nonce management, and receipt watching.
package submit

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the node surface the submitter uses. *ethclient.Client
// satisfies it; tests use the simulated backend.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sentinel errors. Callers match with errors.Is; everything else coming out
// of Submit is transport-level and wrapped around one of these.
var (
	ErrRPCUnavailable    = errors.New("submit: rpc unavailable")
	ErrSignerUnavailable = errors.New("submit: signer unavailable")
	ErrGasCeiling        = errors.New("submit: fee above configured ceiling")
	ErrReverted          = errors.New("submit: transaction reverted")
	ErrConfirmTimeout    = errors.New("submit: confirmation deadline exceeded")
)
