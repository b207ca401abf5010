package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/vault/ledger/memledger"
)

// Config describes a simulated vault and the operations to run against it.
type Config struct {
	Vault   VaultConfig   `json:"vault" yaml:"vault"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Steps   []Step        `json:"steps,omitempty" yaml:"steps,omitempty"`
}

type VaultConfig struct {
	Custody          string   `json:"custody" yaml:"custody"`
	AnnualRateBps    uint64   `json:"annual_rate_bps" yaml:"annual_rate_bps"`
	AccrueOnWithdraw *bool    `json:"accrue_on_withdraw,omitempty" yaml:"accrue_on_withdraw,omitempty"`
	Allowlist        []string `json:"allowlist,omitempty" yaml:"allowlist,omitempty"`
}

// AccrualOnWithdraw defaults to true when unset.
func (v VaultConfig) AccrualOnWithdraw() bool {
	return v.AccrueOnWithdraw == nil || *v.AccrueOnWithdraw
}

// LedgerConfig sets up the in-memory asset ledger.
type LedgerConfig struct {
	Name     string            `json:"name" yaml:"name"`
	FeeBps   uint64            `json:"fee_bps" yaml:"fee_bps"`
	InMode   string            `json:"in_mode,omitempty" yaml:"in_mode,omitempty"`
	OutMode  string            `json:"out_mode,omitempty" yaml:"out_mode,omitempty"`
	Balances map[string]uint64 `json:"balances,omitempty" yaml:"balances,omitempty"`
}

type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Step is one scripted operation.
type Step struct {
	Op      string `json:"op" yaml:"op"`
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
	Amount  uint64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Mode    string `json:"mode,omitempty" yaml:"mode,omitempty"`
	After   string `json:"after,omitempty" yaml:"after,omitempty"` // advance the clock first, e.g. "24h"
}

// ParseDuration converts After to a time.Duration.
func (s Step) ParseDuration() (time.Duration, error) {
	if s.After == "" {
		return 0, nil
	}
	return time.ParseDuration(s.After)
}

// Ops a Step may name.
var Ops = map[string]bool{
	"deposit":            true,
	"withdraw":           true,
	"emergency_withdraw": true,
	"accrue":             true,
	"mint":               true,
	"donate":             true,
	"set_fee":            true,
	"set_in_mode":        true,
	"set_out_mode":       true,
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Vault.Custody == "" {
		return fmt.Errorf("vault.custody is required")
	}
	if c.Vault.AnnualRateBps > 10_000 {
		return fmt.Errorf("vault.annual_rate_bps must be at most 10000")
	}
	if c.Ledger.Name == "" {
		return fmt.Errorf("ledger.name is required")
	}
	if c.Ledger.FeeBps > 10_000 {
		return fmt.Errorf("ledger.fee_bps must be at most 10000")
	}
	if _, err := memledger.ParseMode(c.Ledger.InMode); err != nil {
		return fmt.Errorf("ledger.in_mode: %w", err)
	}
	if _, err := memledger.ParseMode(c.Ledger.OutMode); err != nil {
		return fmt.Errorf("ledger.out_mode: %w", err)
	}
	if len(c.Vault.Allowlist) > 0 && !contains(c.Vault.Allowlist, c.Ledger.Name) {
		return fmt.Errorf("ledger %q is not on vault.allowlist", c.Ledger.Name)
	}
	if _, ok := c.Ledger.Balances[c.Vault.Custody]; ok {
		return fmt.Errorf("ledger.balances must not fund the custody account; use a donate step")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv", "sqlite":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s journal", c.Journal.Type)
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	for i, s := range c.Steps {
		if err := s.validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	if !Ops[s.Op] {
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if _, err := s.ParseDuration(); err != nil {
		return fmt.Errorf("after: %w", err)
	}
	switch s.Op {
	case "deposit", "withdraw", "emergency_withdraw", "mint":
		if s.Account == "" {
			return fmt.Errorf("%s requires an account", s.Op)
		}
	case "set_fee":
		if s.Amount > 10_000 {
			return fmt.Errorf("set_fee amount is in bps and must be at most 10000")
		}
	case "set_in_mode", "set_out_mode":
		if _, err := memledger.ParseMode(s.Mode); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Default returns the fee-on-transfer walkthrough: a bootstrap deposit, a
// deposit through a 10% fee, then a full redemption.
func Default() *Config {
	return &Config{
		Vault: VaultConfig{
			Custody:       "vault",
			AnnualRateBps: 500,
			Allowlist:     []string{"usdx"},
		},
		Ledger: LedgerConfig{
			Name: "usdx",
			Balances: map[string]uint64{
				"alice": 100,
				"bob":   100,
			},
		},
		Journal: JournalConfig{
			Type: "sqlite",
			Path: "./vault.sqlite",
		},
		Steps: []Step{
			{Op: "deposit", Account: "alice", Amount: 100},
			{Op: "set_fee", Amount: 1000},
			{Op: "deposit", Account: "bob", Amount: 100},
			{Op: "accrue", After: "24h"},
			{Op: "withdraw", Account: "alice", Amount: 100},
		},
	}
}
