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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"sentibridge"
	"sentibridge/internal/oracle/telemetry"
)

// restClient is the shared JSON-over-HTTP machinery for collectors: rate
// limiting before every outbound request, transient/terminal classification,
// and retry with backoff. Each collector owns one instance per credential.
type restClient struct {
	source  sentibridge.Source
	name    string
	http    *http.Client
	bucket  *TokenBucket
	cred    *Credential
	baseURL string
	log     log.Logger
}

func newRESTClient(source sentibridge.Source, name, baseURL string, bucket *TokenBucket, cred *Credential) *restClient {
	return &restClient{
		source:  source,
		name:    name,
		http:    &http.Client{Timeout: 15 * time.Second},
		bucket:  bucket,
		cred:    cred,
		baseURL: baseURL,
		log:     log.New("collector", name),
	}
}

// getJSON fetches baseURL+path?query and decodes the response into out.
// The rate limiter is consulted before every attempt; HTTP 429 and 5xx are
// transient, auth and client errors are terminal.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return retryTransient(ctx, func(attempt int, err error) {
		telemetry.CollectorTransientErrorsTotal.WithLabelValues(c.name).Inc()
		c.log.Warn("transient collect error, retrying", "attempt", attempt, "err", err)
	}, func() error {
		if !c.bucket.TryTake() {
			telemetry.RateLimitWaitsTotal.WithLabelValues(c.name).Inc()
			if err := c.bucket.Wait(ctx); err != nil {
				return err
			}
		}
		return c.doOnce(ctx, path, query, out)
	})
}

func (c *restClient) doOnce(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Terminal(fmt.Errorf("build request: %w", err))
	}
	if tok := c.cred.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Network errors are transient unless the context ended.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: status %d", c.name, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Terminal(fmt.Errorf("%s: status %d: %s", c.name, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Terminal(fmt.Errorf("%s: decode response: %w", c.name, err))
	}
	return nil
}
