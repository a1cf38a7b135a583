package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.Equal(t, 10, cfg.Commission.MaxDepth)
	assert.Contains(t, cfg.Commission.DefaultRates, "CROWN=1.5")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("WITHDRAW_DENYLIST", "0xabc,0xdef")
	t.Setenv("COMMISSION_MAX_DEPTH", "3")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.Withdraw.Denylist)
	assert.Equal(t, 3, cfg.Commission.MaxDepth)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load("testdata/missing.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("LEDGER_MAX_ATTEMPTS", "lots")
	_, err := Load("testdata/missing.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
