package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2, cfg.SignatureThreshold)
	// A fresh deployment on the in-memory ledger must be able to accept
	// deposits, so the bootstrap admin's account starts funded.
	assert.Equal(t, int64(1_000_000), cfg.DevLedgerSeed)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUORUM_DEV_LEDGER_SEED", "0")
	t.Setenv("QUORUM_SIGNATURE_THRESHOLD", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.DevLedgerSeed)
	assert.Equal(t, 3, cfg.SignatureThreshold)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("QUORUM_SIGNATURE_THRESHOLD", "0")

	_, err := Load()
	require.Error(t, err)
}
