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

package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"sentibridge/internal/oracle/telemetry"
)

// degradedConfidenceFactor discounts confidence when the primary model is
// unavailable and only the lexicon voted.
const degradedConfidenceFactor = 0.6

// Primary is the opaque transformer classifier. Implementations must be
// deterministic for a fixed model version.
type Primary interface {
	Score(ctx context.Context, text string) (polarity, confidence float64, err error)
}

// Ensemble fuses the primary classifier and the lexicon fallback with weight
// w on the primary. When the primary fails for an item the fallback carries
// the full weight and confidence is discounted (degraded mode).
type Ensemble struct {
	primary  Primary // nil means permanently degraded
	fallback LexiconScorer
	w        float64
	log      log.Logger
}

// NewEnsemble builds the scorer. primary may be nil.
func NewEnsemble(primary Primary, primaryWeight float64) *Ensemble {
	return &Ensemble{
		primary: primary,
		w:       primaryWeight,
		log:     log.New("component", "scorer"),
	}
}

// Score implements the fusion rule:
//
//	polarity   = w*p_primary + (1-w)*p_fallback
//	confidence = w*c_primary + (1-w)*c_fallback
//
// with w forced to 0 and confidence multiplied by 0.6 when the primary is
// unavailable for this item.
func (e *Ensemble) Score(ctx context.Context, text string) (polarity, confidence float64) {
	fp, fc := e.fallback.Score(text)

	if e.primary != nil {
		pp, pc, err := e.primary.Score(ctx, text)
		if err == nil {
			telemetry.ItemsScoredTotal.Inc()
			return e.w*pp + (1-e.w)*fp, e.w*pc + (1-e.w)*fc
		}
		e.log.Warn("primary scorer unavailable, degraded mode", "err", err)
	}
	telemetry.ItemsScoredTotal.Inc()
	telemetry.ScorerDegradedTotal.Inc()
	return fp, fc * degradedConfidenceFactor
}

// HTTPPrimary calls a remote scoring service: POST /score {"text": ...}
// expecting {"polarity": p, "confidence": c}. The service wraps the
// pre-trained model; this client treats it as a pure function.
type HTTPPrimary struct {
	url  string
	http *http.Client
}

// NewHTTPPrimary builds a client for the scoring service at url.
func NewHTTPPrimary(url string) *HTTPPrimary {
	return &HTTPPrimary{url: url, http: &http.Client{Timeout: 5 * time.Second}}
}

func (p *HTTPPrimary) Score(ctx context.Context, text string) (float64, float64, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("primary scorer: status %d", resp.StatusCode)
	}
	var out struct {
		Polarity   float64 `json:"polarity"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("primary scorer: decode: %w", err)
	}
	if out.Polarity < -1 || out.Polarity > 1 || out.Confidence < 0 || out.Confidence > 1 {
		return 0, 0, fmt.Errorf("primary scorer: out-of-range result (%v, %v)", out.Polarity, out.Confidence)
	}
	return out.Polarity, out.Confidence, nil
}
