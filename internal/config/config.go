package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// RPC settings
	RPCUrl string
	WSUrl  string

	// Wallet
	PrivateKey string

	// Relay settings
	RelayRegions []string // empty = all known regions
	RelayUUID    string   // optional auth uuid appended to relay requests

	// Trading defaults
	SlippagePercent float64
	TipLamports     uint64
	SimulateFirst   bool

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RPCRateLimit float64 // requests per second, 0 = unlimited

	// API server
	APIAddr string
	APIKey  string
	DevMode bool
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WSUrl:  getEnv("SOLANA_WS_URL", "wss://api.mainnet-beta.solana.com"),

		// Wallet
		PrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// Relay
		RelayRegions: getListEnv("RELAY_REGIONS", nil),
		RelayUUID:    getEnv("RELAY_UUID", ""),

		// Trading
		SlippagePercent: getFloatEnv("SLIPPAGE_PERCENT", 1.0),
		TipLamports:     uint64(getIntEnv("TIP_LAMPORTS", 0)),
		SimulateFirst:   getBoolEnv("SIMULATE_BEFORE_SEND", false),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),
		RPCRateLimit: getFloatEnv("RPC_RATE_LIMIT", 0),

		// API server
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),
	}
}

// Validate checks settings that no default can paper over.
func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.WSUrl == "" {
		return fmt.Errorf("SOLANA_WS_URL is required")
	}
	if c.SlippagePercent < 0 || c.SlippagePercent > 100 {
		return fmt.Errorf("SLIPPAGE_PERCENT must be a percent in [0, 100], got %v", c.SlippagePercent)
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative, got %v", c.RPCRateLimit)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getListEnv(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
