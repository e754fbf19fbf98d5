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

// Package orchestrator drives the pipeline: one cycle loop per cohort,
// collect -> dedup -> score -> aggregate -> manipulation gate -> submit.
// A cycle that overruns its period is cut off at the deadline and the next
// tick starts fresh; ticks missed while a cycle runs coalesce into one.
package orchestrator

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"sentibridge"
	"sentibridge/internal/oracle/aggregate"
	"sentibridge/internal/oracle/collect"
	"sentibridge/internal/oracle/config"
	"sentibridge/internal/oracle/dedup"
	"sentibridge/internal/oracle/manipulation"
	"sentibridge/internal/oracle/submit"
	"sentibridge/internal/oracle/telemetry"
)

const (
	healthProbeInterval = time.Minute
	vetoHistoryCap      = 100
)

// Scorer is the scoring stage as the orchestrator sees it.
type Scorer interface {
	Score(ctx context.Context, text string) (polarity, confidence float64)
}

// Submitter is the on-chain submission stage. The concrete submitter blocks
// until confirmation or deadline.
type Submitter interface {
	Submit(ctx context.Context, job sentibridge.SubmissionJob) ([]common.Hash, error)
	FlushJournal() error
}

// VetoRecord is one manipulation veto, retained for the operational API.
type VetoRecord struct {
	Asset   common.Address       `json:"asset"`
	Symbol  string               `json:"symbol"`
	Score   float64              `json:"score"`
	Signals manipulation.Signals `json:"signals"`
	At      time.Time            `json:"at"`
}

// Orchestrator owns the cohort cycle loops and the pipeline state shared
// with the operational API.
type Orchestrator struct {
	cfg        config.Config
	collectors []collect.Collector
	index      *dedup.Index
	scorer     Scorer
	detector   *manipulation.Detector
	submitter  Submitter
	log        log.Logger

	mu     sync.Mutex
	latest map[common.Address]sentibridge.AssetSample
	vetoes []VetoRecord

	stop chan struct{}
	wg   sync.WaitGroup
}

// New assembles the pipeline. submitter may be nil for a dry-run worker that
// computes samples without touching the chain.
func New(cfg config.Config, collectors []collect.Collector, index *dedup.Index, scorer Scorer, submitter Submitter) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		collectors: collectors,
		index:      index,
		scorer:     scorer,
		detector:   manipulation.NewDetector(),
		submitter:  submitter,
		log:        log.New("component", "orchestrator"),
		latest:     make(map[common.Address]sentibridge.AssetSample),
		stop:       make(chan struct{}),
	}
}

// Start launches one cycle loop per cohort plus the collector health loop.
func (o *Orchestrator) Start() {
	for _, cohort := range o.cfg.Cohorts {
		o.wg.Add(1)
		go o.cohortLoop(cohort)
	}
	o.wg.Add(1)
	go o.healthLoop()
}

// Stop terminates the loops and waits for in-flight cycles to wind down.
func (o *Orchestrator) Stop() {
	close(o.stop)
	o.wg.Wait()
	if o.submitter != nil {
		if err := o.submitter.FlushJournal(); err != nil {
			o.log.Warn("final journal flush failed", "err", err)
		}
	}
}

func (o *Orchestrator) cohortLoop(cohort config.Cohort) {
	defer o.wg.Done()
	period := o.cfg.CohortPeriod(cohort)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	o.runCycle(cohort, period)
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.runCycle(cohort, period)
		}
	}
}

// runCycle executes one full pipeline pass for the cohort. The context
// deadline leaves CycleJitter of slack before the next tick so a slow cycle
// never bleeds into its successor.
func (o *Orchestrator) runCycle(cohort config.Cohort, period time.Duration) {
	start := time.Now()
	deadline := start.Add(period - o.cfg.CycleJitter)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	windowStart := start.Add(-period)
	windowEnd := start
	symbols := make([]string, len(cohort.Assets))
	byAddr := make(map[string]common.Address, len(cohort.Assets))
	for i, a := range cohort.Assets {
		symbols[i] = a.Symbol
		byAddr[strings.ToUpper(a.Symbol)] = common.HexToAddress(a.Address)
	}

	items := o.collectAll(ctx, windowStart, windowEnd, symbols)
	fresh := o.index.FilterNew(items, windowEnd)
	scored := o.scoreAll(ctx, fresh)

	grouped := make(map[common.Address][]sentibridge.ScoredItem)
	for _, it := range scored {
		for _, tag := range it.AssetTags {
			addr, ok := byAddr[strings.ToUpper(tag)]
			if !ok {
				continue
			}
			grouped[addr] = append(grouped[addr], it)
		}
	}

	var samples []sentibridge.AssetSample
	for _, a := range cohort.Assets {
		addr := common.HexToAddress(a.Address)
		batch := grouped[addr]
		mscore, signals := o.detector.Evaluate(addr, batch)
		sample, ok := aggregate.Fold(addr, batch, windowEnd)
		if !ok {
			continue
		}
		sample.ManipulationScore = mscore
		if mscore > o.cfg.ManipulationThreshold {
			telemetry.ManipulationVetoesTotal.Inc()
			o.recordVeto(VetoRecord{Asset: addr, Symbol: a.Symbol, Score: mscore, Signals: signals, At: windowEnd})
			o.log.Warn("manipulation veto", "cohort", cohort.Name, "symbol", a.Symbol,
				"score", mscore, "active_signals", signals.Active, "items", len(batch))
			continue
		}
		if !sample.Valid() {
			o.log.Error("aggregated sample failed validity check, dropping",
				"symbol", a.Symbol, "score_fp", sample.ScoreFP, "conf_bp", sample.ConfidenceBP)
			continue
		}
		samples = append(samples, sample)
		o.recordLatest(sample)
	}

	if len(samples) > 0 && o.submitter != nil {
		if _, err := o.submitter.Submit(ctx, sentibridge.SubmissionJob{Samples: samples, Deadline: deadline}); err != nil {
			if errors.Is(err, submit.ErrConfirmTimeout) || errors.Is(err, context.DeadlineExceeded) {
				telemetry.CycleTimeoutsTotal.WithLabelValues(cohort.Name).Inc()
			}
			o.log.Error("submission failed", "cohort", cohort.Name, "samples", len(samples), "err", err)
		}
	}
	if o.submitter != nil {
		if err := o.submitter.FlushJournal(); err != nil {
			o.log.Warn("journal flush failed", "err", err)
		}
	}

	o.index.Sweep(time.Now())
	telemetry.CyclesTotal.WithLabelValues(cohort.Name).Inc()
	telemetry.CycleDuration.Observe(time.Since(start).Seconds())
	o.log.Info("cycle complete", "cohort", cohort.Name,
		"collected", len(items), "fresh", len(fresh), "scored", len(scored),
		"samples", len(samples), "took", time.Since(start))
}

// collectAll fans out to every collector in parallel and merges partial
// results. A failing source is skipped for the cycle; the others still
// contribute.
func (o *Orchestrator) collectAll(ctx context.Context, windowStart, windowEnd time.Time, symbols []string) []sentibridge.Item {
	var (
		mu  sync.Mutex
		all []sentibridge.Item
		wg  sync.WaitGroup
	)
	for _, c := range o.collectors {
		wg.Add(1)
		go func(c collect.Collector) {
			defer wg.Done()
			items, _, err := c.Collect(ctx, windowStart, windowEnd, symbols)
			if err != nil {
				if collect.IsCancellation(err) {
					o.log.Debug("collector cut off at cycle deadline", "source", c.Source(), "name", c.Name())
				} else {
					telemetry.CollectorTerminalErrorsTotal.WithLabelValues(string(c.Source())).Inc()
					o.log.Warn("collector failed for cycle", "source", c.Source(), "name", c.Name(), "err", err)
				}
			}
			if len(items) == 0 {
				return
			}
			telemetry.ItemsCollectedTotal.WithLabelValues(string(c.Source())).Add(float64(len(items)))
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return all
}

// scoreAll runs the scorer over the items with a bounded worker pool. Items
// not scored when the cycle deadline fires are dropped and counted; the
// aggregation downstream is commutative, so worker interleaving never
// changes the cycle's output.
func (o *Orchestrator) scoreAll(ctx context.Context, items []sentibridge.Item) []sentibridge.ScoredItem {
	if len(items) == 0 {
		return nil
	}
	workers := o.cfg.ScorerWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > 8 {
			workers = 8
		}
	}

	in := make(chan sentibridge.Item)
	out := make(chan sentibridge.ScoredItem, len(items))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range in {
				p, c := o.scorer.Score(ctx, it.Text)
				out <- sentibridge.ScoredItem{Item: it, Polarity: p, Confidence: c}
			}
		}()
	}

	dropped := 0
feed:
	for i, it := range items {
		select {
		case in <- it:
		case <-ctx.Done():
			dropped = len(items) - i
			break feed
		}
	}
	close(in)
	wg.Wait()
	close(out)

	if dropped > 0 {
		telemetry.ItemsUnscoredDroppedTotal.Add(float64(dropped))
		o.log.Warn("cycle deadline hit during scoring", "dropped", dropped)
	}
	scored := make([]sentibridge.ScoredItem, 0, len(items)-dropped)
	for s := range out {
		scored = append(scored, s)
	}
	return scored
}

func (o *Orchestrator) healthLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			for _, c := range o.collectors {
				healthy := 1.0
				if err := c.HealthCheck(ctx); err != nil {
					healthy = 0
					o.log.Warn("collector unhealthy", "source", c.Source(), "name", c.Name(), "err", err)
				}
				telemetry.CollectorHealthy.WithLabelValues(string(c.Source())).Set(healthy)
			}
			cancel()
		}
	}
}

func (o *Orchestrator) recordLatest(s sentibridge.AssetSample) {
	o.mu.Lock()
	o.latest[s.Asset] = s
	o.mu.Unlock()
}

func (o *Orchestrator) recordVeto(v VetoRecord) {
	o.mu.Lock()
	o.vetoes = append(o.vetoes, v)
	if len(o.vetoes) > vetoHistoryCap {
		o.vetoes = o.vetoes[len(o.vetoes)-vetoHistoryCap:]
	}
	o.mu.Unlock()
}

// Latest returns the most recent sample computed for asset, if any.
func (o *Orchestrator) Latest(asset common.Address) (sentibridge.AssetSample, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.latest[asset]
	return s, ok
}

// LatestAll returns a snapshot of the most recent samples for every asset.
func (o *Orchestrator) LatestAll() []sentibridge.AssetSample {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]sentibridge.AssetSample, 0, len(o.latest))
	for _, s := range o.latest {
		out = append(out, s)
	}
	return out
}

// Vetoes returns the retained manipulation vetoes, oldest first.
func (o *Orchestrator) Vetoes() []VetoRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]VetoRecord, len(o.vetoes))
	copy(out, o.vetoes)
	return out
}

// RunCycleOnce executes a single synchronous cycle for the named cohort.
// Used by tests and the one-shot CLI mode.
func (o *Orchestrator) RunCycleOnce(name string) bool {
	for _, cohort := range o.cfg.Cohorts {
		if cohort.Name == name {
			o.runCycle(cohort, o.cfg.CohortPeriod(cohort))
			return true
		}
	}
	return false
}
