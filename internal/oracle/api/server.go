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

// Package api exposes the worker's operational read surface: liveness, the
// latest computed samples, and recent manipulation vetoes. Read-only; the
// write path to the chain never goes through HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"sentibridge"
	"sentibridge/internal/oracle/orchestrator"
)

// Pipeline is the orchestrator surface the API reads from.
type Pipeline interface {
	Latest(asset common.Address) (sentibridge.AssetSample, bool)
	LatestAll() []sentibridge.AssetSample
	Vetoes() []orchestrator.VetoRecord
}

// Server serves the operational API.
type Server struct {
	pipeline Pipeline
	log      log.Logger
}

// NewServer wraps the pipeline.
func NewServer(p Pipeline) *Server {
	return &Server{pipeline: p, log: log.New("component", "api")}
}

// RegisterRoutes attaches the handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/v1/latest", s.handleLatest)
	mux.HandleFunc("/v1/vetoes", s.handleVetoes)
}

// Start serves the API on addr in a background goroutine. Empty addr
// disables it.
func (s *Server) Start(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server stopped", "err", err)
		}
	}()
	s.log.Info("api listening", "addr", addr)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

type sampleResponse struct {
	Asset             string    `json:"asset"`
	ScoreFP           int64     `json:"score_fp"`
	Score             float64   `json:"score"`
	ConfidenceBP      uint16    `json:"confidence_bp"`
	SampleSize        uint32    `json:"sample_size"`
	WindowEnd         time.Time `json:"window_end"`
	ManipulationScore float64   `json:"manipulation_score"`
}

func toResponse(s sentibridge.AssetSample) sampleResponse {
	return sampleResponse{
		Asset:             s.Asset.Hex(),
		ScoreFP:           s.ScoreFP,
		Score:             sentibridge.FPToScore(s.ScoreFP),
		ConfidenceBP:      s.ConfidenceBP,
		SampleSize:        s.SampleSize,
		WindowEnd:         s.WindowEnd,
		ManipulationScore: s.ManipulationScore,
	}
}

// handleLatest returns the newest sample for ?asset=0x..., or all assets
// when the parameter is absent.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q := r.URL.Query().Get("asset"); q != "" {
		if !common.IsHexAddress(q) {
			http.Error(w, "invalid asset address", http.StatusBadRequest)
			return
		}
		sample, ok := s.pipeline.Latest(common.HexToAddress(q))
		if !ok {
			http.Error(w, "no sample for asset", http.StatusNotFound)
			return
		}
		writeJSON(w, toResponse(sample))
		return
	}
	all := s.pipeline.LatestAll()
	out := make([]sampleResponse, len(all))
	for i, sample := range all {
		out[i] = toResponse(sample)
	}
	writeJSON(w, out)
}

func (s *Server) handleVetoes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vetoes := s.pipeline.Vetoes()
	if vetoes == nil {
		vetoes = []orchestrator.VetoRecord{}
	}
	writeJSON(w, vetoes)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}
