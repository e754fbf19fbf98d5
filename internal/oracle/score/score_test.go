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
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLexiconDeterministic(t *testing.T) {
	text := "PEPE is bullish, diamond hands, wagmi"
	var s LexiconScorer
	p1, c1 := s.Score(text)
	p2, c2 := s.Score(text)
	if p1 != p2 || c1 != c2 {
		t.Fatalf("identical input produced different output: (%v,%v) vs (%v,%v)", p1, c1, p2, c2)
	}
}

func TestLexiconPolarityDirection(t *testing.T) {
	var s LexiconScorer
	pos, _ := s.Score("bullish rally, strong gains, moon soon")
	if pos <= 0 {
		t.Errorf("positive text scored %v", pos)
	}
	neg, _ := s.Score("total rug, devs pulled an exit scam, rekt")
	if neg >= 0 {
		t.Errorf("negative text scored %v", neg)
	}
	if pos > 1 || neg < -1 {
		t.Errorf("polarity out of range: %v, %v", pos, neg)
	}
}

func TestLexiconNoHits(t *testing.T) {
	var s LexiconScorer
	p, c := s.Score("completely neutral prose about weather patterns")
	if p != 0 {
		t.Errorf("no-hit polarity = %v, want 0", p)
	}
	if c != 0.1 {
		t.Errorf("no-hit confidence = %v, want 0.1", c)
	}
	p, c = s.Score("")
	if p != 0 || c != 0.1 {
		t.Errorf("empty text = (%v, %v), want (0, 0.1)", p, c)
	}
}

func TestLexiconConfidenceGrowsWithHits(t *testing.T) {
	var s LexiconScorer
	_, one := s.Score("bullish")
	_, three := s.Score("bullish rally breakout")
	if three <= one {
		t.Errorf("confidence should grow with hits: 1 hit %v, 3 hits %v", one, three)
	}
	_, many := s.Score("bullish rally breakout moon pump gem alpha based wagmi lfg")
	if many > 0.8 {
		t.Errorf("confidence cap exceeded: %v", many)
	}
}

type fixedPrimary struct {
	p, c float64
	err  error
}

func (f fixedPrimary) Score(context.Context, string) (float64, float64, error) {
	return f.p, f.c, f.err
}

func TestEnsembleFusion(t *testing.T) {
	// Neutral text: fallback contributes (0, 0.1).
	e := NewEnsemble(fixedPrimary{p: 0.8, c: 0.9}, 0.7)
	p, c := e.Score(context.Background(), "neutral text with no lexicon terms")

	wantP := 0.7*0.8 + 0.3*0
	wantC := 0.7*0.9 + 0.3*0.1
	if math.Abs(p-wantP) > 1e-12 || math.Abs(c-wantC) > 1e-12 {
		t.Fatalf("fusion = (%v, %v), want (%v, %v)", p, c, wantP, wantC)
	}
}

func TestEnsembleDegradedMode(t *testing.T) {
	e := NewEnsemble(fixedPrimary{err: errors.New("model down")}, 0.7)
	p, c := e.Score(context.Background(), "neutral text with no lexicon terms")
	if p != 0 {
		t.Errorf("degraded polarity = %v, want fallback 0", p)
	}
	if math.Abs(c-0.1*0.6) > 1e-12 {
		t.Errorf("degraded confidence = %v, want 0.06 (fallback * 0.6)", c)
	}
}

func TestEnsembleNilPrimary(t *testing.T) {
	e := NewEnsemble(nil, 0.7)
	p, c := e.Score(context.Background(), "bullish rally")
	var fallback LexiconScorer
	fp, fc := fallback.Score("bullish rally")
	if p != fp {
		t.Errorf("nil primary polarity = %v, want fallback %v", p, fp)
	}
	if math.Abs(c-fc*0.6) > 1e-12 {
		t.Errorf("nil primary confidence = %v, want %v", c, fc*0.6)
	}
}

func TestHTTPPrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"polarity":0.42,"confidence":0.87}`)
	}))
	defer srv.Close()

	p := NewHTTPPrimary(srv.URL)
	pol, conf, err := p.Score(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if pol != 0.42 || conf != 0.87 {
		t.Fatalf("got (%v, %v)", pol, conf)
	}
}

func TestHTTPPrimaryRejectsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"polarity":1.5,"confidence":0.5}`)
	}))
	defer srv.Close()

	if _, _, err := NewHTTPPrimary(srv.URL).Score(context.Background(), "x"); err == nil {
		t.Fatal("out-of-range polarity must be rejected")
	}
}
