//
// config_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfig = `
my_id = 1
parties = ["127.0.0.1:7000", "127.0.0.1:7001", "127.0.0.1:7002"]
logging_level = 2
max_batch_size = 64
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party1.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.MyID)
	require.Equal(t, 3, cfg.NumParties())
	require.Equal(t, 64, cfg.BatchSize())
}

func TestValidate(t *testing.T) {
	cfg := New(0, 2)
	require.NoError(t, cfg.Validate())

	cfg = New(2, 2)
	require.Error(t, cfg.Validate())

	cfg = New(0, 1)
	require.Error(t, cfg.Validate())
}

func TestDefaultBatchSize(t *testing.T) {
	cfg := New(0, 2)
	cfg.MaxBatchSize = 0
	require.Equal(t, DefaultMaxBatchSize, cfg.BatchSize())
}
