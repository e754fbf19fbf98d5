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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	c := Default()
	c.SignerKeyFile = "/tmp/key"
	c.Cohorts = []Cohort{{
		Name:   "memes",
		Assets: []Asset{{Symbol: "PEPE", Address: "0x00000000000000000000000000000000deadbeef"}},
	}}
	c.Sources = []Source{{
		Kind:       "newswire",
		BaseURL:    "https://wire.example.com",
		RateTokens: 10,
		RateRefill: time.Second,
	}}
	return c
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short cycle period", func(c *Config) { c.CyclePeriod = 30 * time.Second }, "cycle_period"},
		{"jitter exceeds period", func(c *Config) { c.CycleJitter = c.CyclePeriod }, "cycle_jitter"},
		{"zero dedup capacity", func(c *Config) { c.DedupCapacity = 0 }, "dedup_capacity"},
		{"primary weight out of range", func(c *Config) { c.ScorerPrimaryWeight = 1.5 }, "scorer_primary_weight"},
		{"batch above contract cap", func(c *Config) { c.SubmitBatchSize = 51 }, "submit_batch_size"},
		{"zero max score change", func(c *Config) { c.SubmitMaxScoreChange = 0 }, "submit_max_score_change"},
		{"gas multiplier below one", func(c *Config) { c.GasMultiplier = 0.9 }, "gas_multiplier"},
		{"bad contract address", func(c *Config) { c.ContractAddress = "0xzz" }, "contract_address"},
		{"unknown signer kind", func(c *Config) { c.SignerKind = "hsm" }, "signer_kind"},
		{"local signer without key", func(c *Config) { c.SignerKeyFile = "" }, "signer_key_file"},
		{"no cohorts", func(c *Config) { c.Cohorts = nil }, "cohort"},
		{"duplicate cohort name", func(c *Config) { c.Cohorts = append(c.Cohorts, c.Cohorts[0]) }, "duplicate"},
		{"cohort without assets", func(c *Config) { c.Cohorts[0].Assets = nil }, "no assets"},
		{"zero asset address", func(c *Config) {
			c.Cohorts[0].Assets[0].Address = "0x0000000000000000000000000000000000000000"
		}, "zero address"},
		{"bad asset address", func(c *Config) { c.Cohorts[0].Assets[0].Address = "pepe" }, "hex address"},
		{"unknown source kind", func(c *Config) { c.Sources[0].Kind = "carrier-pigeon" }, "unknown kind"},
		{"source without base url", func(c *Config) { c.Sources[0].BaseURL = "" }, "base_url"},
		{"source without rate tokens", func(c *Config) { c.Sources[0].RateTokens = 0 }, "rate_tokens"},
	}
	for _, tc := range cases {
		c := validConfig()
		tc.mutate(&c)
		err := c.Validate()
		if err == nil {
			t.Errorf("%s: accepted", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %q", tc.name, err, tc.want)
		}
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	body := `
cycle_period: 120s
manipulation_threshold: 0.9
cohorts:
  - name: memes
    assets:
      - symbol: PEPE
        address: "0x00000000000000000000000000000000deadbeef"
  - name: majors
    period: 60s
    assets:
      - symbol: WETH
        address: "0x00000000000000000000000000000000cafebabe"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Default()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.CyclePeriod != 120*time.Second {
		t.Errorf("cycle_period = %v", c.CyclePeriod)
	}
	if c.ManipulationThreshold != 0.9 {
		t.Errorf("manipulation_threshold = %v", c.ManipulationThreshold)
	}
	// Untouched fields keep their defaults.
	if c.SubmitBatchSize != 50 || c.GasMultiplier != 1.2 {
		t.Errorf("defaults clobbered: batch %d multiplier %v", c.SubmitBatchSize, c.GasMultiplier)
	}
	if len(c.Cohorts) != 2 {
		t.Fatalf("cohorts = %d, want 2", len(c.Cohorts))
	}
	if got := c.CohortPeriod(c.Cohorts[0]); got != 120*time.Second {
		t.Errorf("default cohort period = %v", got)
	}
	if got := c.CohortPeriod(c.Cohorts[1]); got != 60*time.Second {
		t.Errorf("override cohort period = %v", got)
	}
}

func TestLoadFileMissing(t *testing.T) {
	c := Default()
	if err := c.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file must error")
	}
}
