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

// Package main is the sentiment oracle worker: it collects social and news
// text per asset cohort, scores and aggregates it, screens for coordinated
// manipulation, and submits the surviving samples to the on-chain oracle as
// signed transactions.
//
// The process wires together:
//  1. One collector per configured source, sharing the dedup index.
//  2. The scoring ensemble (remote primary model + lexicon fallback).
//  3. The per-cohort orchestrator loops.
//  4. The chain submitter with its nonce manager and audit journal.
//  5. The operational HTTP API and the Prometheus endpoint.
//
// SIGHUP reloads source credentials in place; SIGINT/SIGTERM drain in-flight
// cycles, flush both journals, and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"sentibridge"
	"sentibridge/internal/oracle/api"
	"sentibridge/internal/oracle/collect"
	"sentibridge/internal/oracle/config"
	"sentibridge/internal/oracle/dedup"
	"sentibridge/internal/oracle/orchestrator"
	"sentibridge/internal/oracle/score"
	"sentibridge/internal/oracle/signer"
	"sentibridge/internal/oracle/submit"
	"sentibridge/internal/oracle/telemetry"
)

func main() {
	// Configuration comes from the yaml file; the flags here are the knobs
	// operators most often override per environment.
	configPath := flag.String("config", "", "Path to the yaml configuration file")
	rpcURL := flag.String("chain_rpc_url", "", "Override: EVM JSON-RPC endpoint")
	contractAddr := flag.String("contract", "", "Override: oracle contract address")
	metricsAddr := flag.String("metrics_addr", "", "Override: Prometheus /metrics listen address")
	apiAddr := flag.String("api_addr", "", "Override: operational API listen address")
	keyFile := flag.String("signer_key_file", "", "Override: local signer key file")
	verbosity := flag.Int("verbosity", 3, "Log verbosity (0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace)")
	flag.Parse()

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(*verbosity), false)))
	logger := log.New("component", "main")

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			logger.Crit("load config", "err", err)
		}
	}
	if *rpcURL != "" {
		cfg.ChainRPCURL = *rpcURL
	}
	if *contractAddr != "" {
		cfg.ContractAddress = *contractAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	if *keyFile != "" {
		cfg.SignerKeyFile = *keyFile
	}
	if err := cfg.Validate(); err != nil {
		logger.Crit("invalid configuration", "err", err)
	}
	if cfg.ChainRPCURL == "" || cfg.ContractAddress == "" {
		logger.Crit("chain_rpc_url and contract_address are required")
	}
	if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
		logger.Crit("create journal dir", "err", err)
	}

	// Dedup index, restored from its journal so a restart does not re-submit
	// yesterday's items.
	var markers dedup.MarkerBackend
	if cfg.RedisAddr != "" {
		markers = dedup.NewRedisMarkers(cfg.RedisAddr)
		logger.Info("shared dedup markers enabled", "redis", cfg.RedisAddr)
	}
	dedupPath := filepath.Join(cfg.JournalDir, "dedup.journal")
	dedupJournal, err := dedup.OpenJournal(dedupPath)
	if err != nil {
		logger.Crit("open dedup journal", "err", err)
	}
	index := dedup.NewIndex(cfg.DedupCapacity, cfg.DedupHorizon, dedupJournal, markers)
	if n, err := dedup.LoadJournal(dedupPath, index, time.Now()); err != nil {
		logger.Crit("restore dedup journal", "err", err)
	} else if n > 0 {
		logger.Info("dedup journal restored", "entries", n)
	}

	// Collectors, one per configured source.
	collectors, credentials, err := buildCollectors(cfg)
	if err != nil {
		logger.Crit("build collectors", "err", err)
	}
	logger.Info("collectors ready", "count", len(collectors))

	// Scoring ensemble.
	var primary score.Primary
	if cfg.PrimaryScorerURL != "" {
		primary = score.NewHTTPPrimary(cfg.PrimaryScorerURL)
	} else {
		logger.Warn("no primary scorer configured, running on lexicon fallback only")
	}
	scorer := score.NewEnsemble(primary, cfg.ScorerPrimaryWeight)

	// Signer and chain client.
	ctx := context.Background()
	sgn, err := buildSigner(ctx, cfg)
	if err != nil {
		logger.Crit("initialize signer", "err", err)
	}
	logger.Info("signer ready", "kind", cfg.SignerKind, "operator", sgn.Address())

	client, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
	if err != nil {
		logger.Crit("dial chain rpc", "url", cfg.ChainRPCURL, "err", err)
	}
	txJournal, err := submit.OpenJournal(filepath.Join(cfg.JournalDir, "submissions.journal"))
	if err != nil {
		logger.Crit("open submission journal", "err", err)
	}
	submitter, err := submit.New(ctx, client, sgn, txJournal, submit.Config{
		Contract:       common.HexToAddress(cfg.ContractAddress),
		BatchSize:      cfg.SubmitBatchSize,
		MinInterval:    cfg.SubmitMinInterval,
		MaxScoreChange: cfg.SubmitMaxScoreChange,
		Confirmations:  cfg.SubmitConfirmations,
		GasMultiplier:  cfg.GasMultiplier,
		GasCeiling:     gasCeiling(cfg),
	})
	if err != nil {
		logger.Crit("initialize submitter", "err", err)
	}

	// Pipeline loops and operational surface.
	orch := orchestrator.New(cfg, collectors, index, scorer, submitter)
	orch.Start()
	telemetry.StartMetricsEndpoint(cfg.MetricsAddr)
	api.NewServer(orch).Start(cfg.APIAddr)
	logger.Info("worker started", "cohorts", len(cfg.Cohorts), "cycle_period", cfg.CyclePeriod)

	// SIGHUP rotates credentials; SIGINT/SIGTERM shut down.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			reloaded := 0
			for _, cred := range credentials {
				if err := cred.Reload(); err != nil {
					logger.Warn("credential reload failed", "err", err)
					continue
				}
				reloaded++
			}
			logger.Info("credentials reloaded", "count", reloaded)
			continue
		}
		logger.Info("shutting down", "signal", sig)
		break
	}

	orch.Stop()
	if err := dedupJournal.Close(); err != nil {
		logger.Warn("close dedup journal", "err", err)
	}
	if err := txJournal.Close(); err != nil {
		logger.Warn("close submission journal", "err", err)
	}
	client.Close()
	logger.Info("worker stopped")
}

// buildCollectors instantiates one collector per configured source, each with
// its own token bucket and credential.
func buildCollectors(cfg config.Config) ([]collect.Collector, []*collect.Credential, error) {
	var (
		collectors  []collect.Collector
		credentials []*collect.Credential
	)
	for _, src := range cfg.Sources {
		cred, err := collect.LoadCredential(src.CredentialFile)
		if err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", src.Kind, err)
		}
		credentials = append(credentials, cred)

		name := src.Name
		if name == "" {
			name = src.Kind
		}
		bucket := collect.NewTokenBucket(src.RateTokens, src.RateRefill)
		maxItems := src.MaxItems
		if maxItems <= 0 {
			maxItems = collect.DefaultMaxItems
		}
		switch strings.ToLower(src.Kind) {
		case "newswire":
			collectors = append(collectors, collect.NewNewswire(name, src.BaseURL, bucket, cred, maxItems))
		case "x":
			collectors = append(collectors, collect.NewXSearch(name, src.BaseURL, bucket, cred, maxItems))
		case "discord":
			collectors = append(collectors, collect.NewChat(sentibridge.SourceDiscord, name, src.BaseURL, bucket, cred, maxItems))
		case "telegram":
			collectors = append(collectors, collect.NewChat(sentibridge.SourceTelegram, name, src.BaseURL, bucket, cred, maxItems))
		default:
			return nil, nil, fmt.Errorf("unknown source kind %q", src.Kind)
		}
	}
	return collectors, credentials, nil
}

func buildSigner(ctx context.Context, cfg config.Config) (signer.Signer, error) {
	switch cfg.SignerKind {
	case "local":
		return signer.NewLocalFromFile(cfg.SignerKeyFile)
	case "remote":
		return signer.NewRemote(ctx, cfg.SignerURL)
	}
	return nil, fmt.Errorf("unknown signer kind %q", cfg.SignerKind)
}

// gasCeiling converts the configured gwei ceiling to wei. Zero disables it.
func gasCeiling(cfg config.Config) *big.Int {
	if cfg.GasCeiling == 0 {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(cfg.GasCeiling), big.NewInt(1_000_000_000))
}
