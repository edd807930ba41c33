package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCUrl)
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", cfg.WSUrl)
	assert.Nil(t, cfg.RelayRegions)
	assert.Equal(t, 1.0, cfg.SlippagePercent)
	assert.Equal(t, uint64(0), cfg.TipLamports)
	assert.False(t, cfg.SimulateFirst)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, ":8090", cfg.APIAddr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "http://localhost:8899")
	t.Setenv("RELAY_REGIONS", "ny, tokyo ,frankfurt,")
	t.Setenv("SLIPPAGE_PERCENT", "2.5")
	t.Setenv("TIP_LAMPORTS", "2000000")
	t.Setenv("SIMULATE_BEFORE_SEND", "true")
	t.Setenv("RETRY_BACKOFF", "500ms")

	cfg := Load()

	assert.Equal(t, "http://localhost:8899", cfg.RPCUrl)
	assert.Equal(t, []string{"ny", "tokyo", "frankfurt"}, cfg.RelayRegions)
	assert.Equal(t, 2.5, cfg.SlippagePercent)
	assert.Equal(t, uint64(2000000), cfg.TipLamports)
	assert.True(t, cfg.SimulateFirst)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SLIPPAGE_PERCENT", "lots")
	t.Setenv("MAX_RETRIES", "3.5")
	t.Setenv("RETRY_BACKOFF", "soon")

	cfg := Load()

	assert.Equal(t, 1.0, cfg.SlippagePercent)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPCUrl:          "http://localhost:8899",
			WSUrl:           "ws://localhost:8900",
			SlippagePercent: 1.0,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.RPCUrl = ""
	assert.ErrorContains(t, cfg.Validate(), "SOLANA_RPC_URL")

	cfg = valid()
	cfg.WSUrl = ""
	assert.ErrorContains(t, cfg.Validate(), "SOLANA_WS_URL")

	cfg = valid()
	cfg.SlippagePercent = 101
	assert.ErrorContains(t, cfg.Validate(), "SLIPPAGE_PERCENT")

	cfg = valid()
	cfg.RPCRateLimit = -1
	assert.ErrorContains(t, cfg.Validate(), "RPC_RATE_LIMIT")
}
