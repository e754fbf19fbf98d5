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

// Package telemetry exposes the process-wide Prometheus metrics for the
// oracle worker. Every error kind in the pipeline maps to a monotonic
// counter here; operators observe pipeline behavior through these counters
// plus the on-chain events. All functions are safe on hot paths.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle lifecycle.
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_cycles_total",
		Help: "Completed pipeline cycles per cohort",
	}, []string{"cohort"})
	CycleTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_cycle_timeouts_total",
		Help: "Cycles that did not confirm submission before their deadline",
	}, []string{"cohort"})
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentibridge_cycle_duration_seconds",
		Help:    "End-to-end duration of a pipeline cycle",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 240, 290},
	})

	// Collection.
	ItemsCollectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_items_collected_total",
		Help: "Items returned by collectors, pre-deduplication",
	}, []string{"source"})
	CollectorTransientErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_collector_transient_errors_total",
		Help: "Transient collector errors (retried within the source)",
	}, []string{"source"})
	CollectorTerminalErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_collector_terminal_errors_total",
		Help: "Terminal collector errors (source skipped for the cycle)",
	}, []string{"source"})
	RateLimitWaitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibridge_ratelimit_waits_total",
		Help: "Outbound requests that had to wait for a rate-limit token",
	}, []string{"source"})
	CollectorHealthy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentibridge_collector_healthy",
		Help: "1 when the collector's last health probe succeeded, else 0",
	}, []string{"source"})

	// Deduplication.
	DedupDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_dedup_dropped_total",
		Help: "Items dropped as duplicates within the horizon",
	})
	DedupEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_dedup_evicted_total",
		Help: "Dedup index entries evicted (horizon or capacity)",
	})
	DedupSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentibridge_dedup_size",
		Help: "Current number of entries in the dedup index",
	})

	// Scoring.
	ItemsScoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_items_scored_total",
		Help: "Items scored (ensemble or fallback)",
	})
	ScorerDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_scorer_degraded_total",
		Help: "Items scored in degraded mode (primary model unavailable)",
	})
	ItemsUnscoredDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_items_unscored_dropped_total",
		Help: "Items dropped unscored because the cycle deadline arrived first",
	})

	// Aggregation and manipulation gate.
	SamplesAggregatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_samples_aggregated_total",
		Help: "AssetSamples produced by the aggregator",
	})
	AggregateEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_aggregate_empty_total",
		Help: "Assets that produced no sample in a cycle (expected under normal operation)",
	})
	ManipulationVetoesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_manipulation_vetoes_total",
		Help: "AssetSamples suppressed by the manipulation gate",
	})

	// Submission.
	TxSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_tx_submitted_total",
		Help: "Transactions broadcast to the chain",
	})
	TxConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_tx_confirmed_total",
		Help: "Transactions confirmed at the configured depth",
	})
	TxRevertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_tx_reverted_total",
		Help: "Transactions mined with a failed status",
	})
	TxGasBumpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_tx_gas_bumps_total",
		Help: "Replacement broadcasts at the same nonce with bumped gas",
	})
	SubmitSkippedMinInterval = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_submit_skipped_min_interval_total",
		Help: "Samples skipped locally because the contract's MIN_UPDATE_INTERVAL has not elapsed",
	})
	SubmitSkippedCircuitBreaker = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_submit_skipped_circuit_breaker_total",
		Help: "Samples skipped locally because the score change exceeds MAX_SCORE_CHANGE",
	})
	NonceResyncsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_nonce_resyncs_total",
		Help: "Nonce resynchronizations against the RPC pending nonce",
	})
	RPCUnavailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_rpc_unavailable_total",
		Help: "RPC failures observed by the submitter",
	})
	SignerUnavailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentibridge_signer_unavailable_total",
		Help: "Signing failures (cycle-fatal)",
	})
)

func init() {
	// Register eagerly. If no metrics endpoint is exposed the registration is harmless.
	prometheus.MustRegister(
		CyclesTotal, CycleTimeoutsTotal, CycleDuration,
		ItemsCollectedTotal, CollectorTransientErrorsTotal, CollectorTerminalErrorsTotal,
		RateLimitWaitsTotal, CollectorHealthy,
		DedupDroppedTotal, DedupEvictedTotal, DedupSize,
		ItemsScoredTotal, ScorerDegradedTotal, ItemsUnscoredDroppedTotal,
		SamplesAggregatedTotal, AggregateEmptyTotal, ManipulationVetoesTotal,
		TxSubmittedTotal, TxConfirmedTotal, TxRevertedTotal, TxGasBumpsTotal,
		SubmitSkippedMinInterval, SubmitSkippedCircuitBreaker,
		NonceResyncsTotal, RPCUnavailableTotal, SignerUnavailableTotal,
	)
}

// StartMetricsEndpoint exposes /metrics on addr in a background goroutine.
// Empty addr disables the endpoint.
func StartMetricsEndpoint(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
