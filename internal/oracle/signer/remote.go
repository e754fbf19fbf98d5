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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Remote talks to a signing service that holds the operator key in an HSM or
// enclave. The service exposes GET /address and POST /sign.
type Remote struct {
	mu   sync.Mutex
	url  string
	http *http.Client
	addr common.Address
}

// NewRemote connects to the signing service at baseURL and resolves the
// operator address it signs for.
func NewRemote(ctx context.Context, baseURL string) (*Remote, error) {
	r := &Remote{
		url:  baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/address", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer service: address status %d", resp.StatusCode)
	}
	var out struct {
		Address common.Address `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("signer service: decode address: %w", err)
	}
	if out.Address == (common.Address{}) {
		return nil, fmt.Errorf("signer service: zero address")
	}
	r.addr = out.Address
	return r, nil
}

func (r *Remote) Address() common.Address { return r.addr }

func (r *Remote) Sign(ctx context.Context, digest common.Hash) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, err := json.Marshal(map[string]string{"digest": digest.Hex()})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer service: sign status %d", resp.StatusCode)
	}
	var out struct {
		Signature hexutil.Bytes `json:"signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("signer service: decode signature: %w", err)
	}
	if len(out.Signature) != SignatureLength {
		return nil, fmt.Errorf("signer service: signature length %d, want %d", len(out.Signature), SignatureLength)
	}
	return out.Signature, nil
}
