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

package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Local signs with an in-process secp256k1 key loaded from a hex keyfile.
// Meant for development and simulation; production deployments point the
// worker at a remote signing service instead.
type Local struct {
	mu   sync.Mutex
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocal wraps an existing private key.
func NewLocal(key *ecdsa.PrivateKey) *Local {
	return &Local{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewLocalFromFile loads a hex-encoded private key, with or without a 0x
// prefix, from path.
func NewLocalFromFile(path string) (*Local, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}
	hexKey := strings.TrimSpace(string(raw))
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse keyfile %s: %w", path, err)
	}
	return NewLocal(key), nil
}

func (l *Local) Address() common.Address { return l.addr }

func (l *Local) Sign(ctx context.Context, digest common.Hash) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return crypto.Sign(digest[:], l.key)
}
