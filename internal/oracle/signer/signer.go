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

// Package signer isolates key material behind a digest-signing interface.
// Transaction assembly never sees a private key; it hands a 32-byte digest
// in and gets a 65-byte recoverable signature back.
package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// SignatureLength is the recoverable secp256k1 signature size, R || S || V.
const SignatureLength = 65

// Signer signs transaction digests for a single operator address. Sign calls
// are serialized by implementations, so one instance is safe to share across
// submitters.
type Signer interface {
	// Address is the operator address the signatures recover to.
	Address() common.Address

	// Sign produces a recoverable signature over the digest, V in {0, 1}.
	Sign(ctx context.Context, digest common.Hash) ([]byte, error)
}
