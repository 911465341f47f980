//
// config.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package config defines the per-party session configuration.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"go.dedis.ch/onet/v3/log"
)

// DefaultMaxBatchSize is the maximum number of square pairs folded
// into one OT batch. It must be identical on all parties.
const DefaultMaxBatchSize = 128

// Config holds the session configuration of one party.
type Config struct {
	// MyID is this party's 0-based index.
	MyID int `toml:"my_id"`

	// Parties lists the party addresses. The number of parties is
	// implied by its length.
	Parties []string `toml:"parties"`

	// LoggingLevel is the logging severity threshold.
	LoggingLevel int `toml:"logging_level"`

	// MaxBatchSize overrides DefaultMaxBatchSize when positive.
	MaxBatchSize int `toml:"max_batch_size"`
}

// New creates a configuration for the party with default settings.
func New(myID, numParties int) *Config {
	return &Config{
		MyID:         myID,
		Parties:      make([]string, numParties),
		MaxBatchSize: DefaultMaxBatchSize,
	}
}

// Load reads the configuration from the TOML file.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() error {
	if len(cfg.Parties) < 2 {
		return errors.Newf("invalid number of parties: %d",
			len(cfg.Parties))
	}
	if cfg.MyID < 0 || cfg.MyID >= len(cfg.Parties) {
		return errors.Newf("invalid party ID %d: expected [0...%d[",
			cfg.MyID, len(cfg.Parties))
	}
	if cfg.MaxBatchSize < 0 {
		return errors.Newf("invalid max batch size: %d",
			cfg.MaxBatchSize)
	}
	return nil
}

// NumParties returns the number of parties in the session.
func (cfg *Config) NumParties() int {
	return len(cfg.Parties)
}

// BatchSize returns the configured OT batch size.
func (cfg *Config) BatchSize() int {
	if cfg.MaxBatchSize > 0 {
		return cfg.MaxBatchSize
	}
	return DefaultMaxBatchSize
}

// Apply installs the configured logging severity level.
func (cfg *Config) Apply() {
	log.SetDebugVisible(cfg.LoggingLevel)
}
