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

// Package config holds the worker configuration: pipeline knobs, chain
// parameters, cohorts, and source credentials. Values come from an optional
// yaml file overridden by command-line flags; Validate fails fast on any
// inconsistent combination so a misconfigured worker never starts.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Source configures one collector instance.
type Source struct {
	// Kind selects the collector implementation: newswire, x, discord, telegram.
	Kind string `yaml:"kind"`
	// Name is the instance name used in metrics and logs. Defaults to Kind.
	Name string `yaml:"name"`
	// BaseURL is the API endpoint root.
	BaseURL string `yaml:"base_url"`
	// CredentialFile holds the bearer token (or equivalent) for this source.
	// Re-read on SIGHUP.
	CredentialFile string `yaml:"credential_file"`
	// RateTokens and RateRefill configure the per-credential token bucket.
	RateTokens int           `yaml:"rate_tokens"`
	RateRefill time.Duration `yaml:"rate_refill"`
	// MaxItems caps items returned per cycle for this source.
	MaxItems int `yaml:"max_items"`
}

// Asset binds the symbol collectors search for to the on-chain address the
// oracle is keyed by.
type Asset struct {
	Symbol  string `yaml:"symbol"`
	Address string `yaml:"address"`
}

// Cohort is a set of assets sharing collection and submission cadence.
type Cohort struct {
	Name   string  `yaml:"name"`
	Assets []Asset `yaml:"assets"`
	// Period overrides CyclePeriod for this cohort when non-zero.
	Period time.Duration `yaml:"period"`
}

// Config is the full worker configuration.
type Config struct {
	// Orchestrator.
	CyclePeriod time.Duration `yaml:"cycle_period"`
	CycleJitter time.Duration `yaml:"cycle_jitter"` // epsilon subtracted from the deadline
	Cohorts     []Cohort      `yaml:"cohorts"`

	// Collection.
	Sources []Source `yaml:"sources"`

	// Deduplication.
	DedupHorizon  time.Duration `yaml:"dedup_horizon"`
	DedupCapacity int           `yaml:"dedup_capacity"`

	// Scoring.
	ScorerPrimaryWeight float64 `yaml:"scorer_primary_weight"`
	PrimaryScorerURL    string  `yaml:"primary_scorer_url"`
	ScorerWorkers       int     `yaml:"scorer_workers"` // 0 means min(GOMAXPROCS, 8)

	// Manipulation gate.
	ManipulationThreshold float64 `yaml:"manipulation_threshold"`

	// Submission.
	ChainRPCURL           string        `yaml:"chain_rpc_url"`
	ChainID               int64         `yaml:"chain_id"`
	ContractAddress       string        `yaml:"contract_address"`
	SubmitBatchSize       int           `yaml:"submit_batch_size"`
	SubmitMinInterval     time.Duration `yaml:"submit_min_interval"`
	SubmitMaxScoreChange  int64         `yaml:"submit_max_score_change_fp"`
	SubmitConfirmations   uint64        `yaml:"submit_confirmations"`
	GasMultiplier         float64       `yaml:"gas_multiplier"`
	GasCeiling            uint64        `yaml:"gas_ceiling"`
	SignerKind            string        `yaml:"signer_kind"` // local | remote
	SignerKeyFile         string        `yaml:"signer_key_file"`
	SignerURL             string        `yaml:"signer_url"`

	// Persistence and operational surface.
	JournalDir  string `yaml:"journal_dir"`
	RedisAddr   string `yaml:"redis_addr"` // optional shared dedup markers
	MetricsAddr string `yaml:"metrics_addr"`
	APIAddr     string `yaml:"api_addr"`
}

// Default returns a Config populated with the documented defaults. Chain
// parameters have no usable defaults and must be provided.
func Default() Config {
	return Config{
		CyclePeriod:           300 * time.Second,
		CycleJitter:           10 * time.Second,
		DedupHorizon:          24 * time.Hour,
		DedupCapacity:         1_000_000,
		ScorerPrimaryWeight:   0.7,
		ManipulationThreshold: 0.7,
		SubmitBatchSize:       50,
		SubmitMinInterval:     240 * time.Second,
		SubmitMaxScoreChange:  2e17,
		SubmitConfirmations:   2,
		GasMultiplier:         1.2,
		GasCeiling:            3_000_000,
		SignerKind:            "local",
		JournalDir:            "./data",
		APIAddr:               ":8080",
	}
}

// LoadFile merges the yaml file at path into c. Missing file is an error;
// fields absent from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and returns the first problem found.
// Every path through the worker assumes a validated config.
func (c *Config) Validate() error {
	if c.CyclePeriod < time.Minute {
		return fmt.Errorf("cycle_period %v below 1m floor", c.CyclePeriod)
	}
	if c.CycleJitter <= 0 || c.CycleJitter >= c.CyclePeriod {
		return fmt.Errorf("cycle_jitter %v must be in (0, cycle_period)", c.CycleJitter)
	}
	if c.DedupCapacity < 1 {
		return fmt.Errorf("dedup_capacity must be positive, got %d", c.DedupCapacity)
	}
	if c.ScorerPrimaryWeight < 0 || c.ScorerPrimaryWeight > 1 {
		return fmt.Errorf("scorer_primary_weight %v outside [0,1]", c.ScorerPrimaryWeight)
	}
	if c.ManipulationThreshold < 0 || c.ManipulationThreshold > 1 {
		return fmt.Errorf("manipulation_threshold %v outside [0,1]", c.ManipulationThreshold)
	}
	if c.SubmitBatchSize < 1 || c.SubmitBatchSize > 50 {
		return fmt.Errorf("submit_batch_size %d outside [1,50] (contract batch cap)", c.SubmitBatchSize)
	}
	if c.SubmitMaxScoreChange <= 0 {
		return fmt.Errorf("submit_max_score_change_fp must be positive, got %d", c.SubmitMaxScoreChange)
	}
	if c.GasMultiplier < 1 {
		return fmt.Errorf("gas_multiplier %v below 1", c.GasMultiplier)
	}
	if c.ContractAddress != "" && !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("contract_address %q is not a hex address", c.ContractAddress)
	}
	switch c.SignerKind {
	case "local":
		if c.SignerKeyFile == "" {
			return fmt.Errorf("signer_kind local requires signer_key_file")
		}
	case "remote":
		if c.SignerURL == "" {
			return fmt.Errorf("signer_kind remote requires signer_url")
		}
	default:
		return fmt.Errorf("signer_kind %q must be local or remote", c.SignerKind)
	}
	if len(c.Cohorts) == 0 {
		return fmt.Errorf("at least one cohort is required")
	}
	seen := map[string]bool{}
	for i, co := range c.Cohorts {
		if co.Name == "" {
			return fmt.Errorf("cohort %d has no name", i)
		}
		if seen[co.Name] {
			return fmt.Errorf("duplicate cohort name %q", co.Name)
		}
		seen[co.Name] = true
		if len(co.Assets) == 0 {
			return fmt.Errorf("cohort %q has no assets", co.Name)
		}
		for _, a := range co.Assets {
			if a.Symbol == "" {
				return fmt.Errorf("cohort %q: asset with empty symbol", co.Name)
			}
			if !common.IsHexAddress(a.Address) {
				return fmt.Errorf("cohort %q: asset %s address %q is not a hex address", co.Name, a.Symbol, a.Address)
			}
			if common.HexToAddress(a.Address) == (common.Address{}) {
				return fmt.Errorf("cohort %q: asset %s has the zero address", co.Name, a.Symbol)
			}
		}
	}
	for i, s := range c.Sources {
		switch strings.ToLower(s.Kind) {
		case "newswire", "x", "discord", "telegram":
		default:
			return fmt.Errorf("source %d: unknown kind %q", i, s.Kind)
		}
		if s.BaseURL == "" {
			return fmt.Errorf("source %s: base_url is required", s.Kind)
		}
		if s.RateTokens < 1 {
			return fmt.Errorf("source %s: rate_tokens must be positive", s.Kind)
		}
		if s.RateRefill <= 0 {
			return fmt.Errorf("source %s: rate_refill must be positive", s.Kind)
		}
	}
	return nil
}

// CohortPeriod returns the effective cycle period for a cohort.
func (c *Config) CohortPeriod(co Cohort) time.Duration {
	if co.Period > 0 {
		return co.Period
	}
	return c.CyclePeriod
}
