package constants

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Well-known program IDs
var (
	PumpAmmProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	ComputeBudgetProgramID   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

	// WSOL (native mint); quote side of every pump AMM pool we trade.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// PDA seeds used by the pump AMM program
const (
	SeedGlobalConfig   = "global_config"
	SeedCreatorVault   = "creator_vault"
	SeedEventAuthority = "__event_authority"
	SeedPool           = "pool"
)

// Default swap fee schedule in basis points. Per-pool overrides come from the
// on-chain global config; these match mainnet at the time of writing.
const (
	DefaultLPFeeBps       = 20
	DefaultProtocolFeeBps = 5
	DefaultCreatorFeeBps  = 5
)

// Relay (Jito block engine) regions. Keys are short region names used in
// config; values are the block engine base URLs.
var RelayRegions = map[string]string{
	"amsterdam": "https://amsterdam.mainnet.block-engine.jito.wtf",
	"dublin":    "https://dublin.mainnet.block-engine.jito.wtf",
	"frankfurt": "https://frankfurt.mainnet.block-engine.jito.wtf",
	"london":    "https://london.mainnet.block-engine.jito.wtf",
	"ny":        "https://ny.mainnet.block-engine.jito.wtf",
	"slc":       "https://slc.mainnet.block-engine.jito.wtf",
	"singapore": "https://singapore.mainnet.block-engine.jito.wtf",
	"tokyo":     "https://tokyo.mainnet.block-engine.jito.wtf",
}

// Tip-floor statistics endpoints (out-of-band from the block engines).
const (
	TipFloorURL  = "https://bundles.jito.wtf/api/v1/bundles/tip_floor"
	TipStreamURL = "wss://bundles.jito.wtf/api/v1/bundles/tip_stream"
)

// Known relay tip accounts. A random one is picked per transaction so tips
// spread across the validator set.
var TipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
}

// Fee tuning defaults and fallbacks
const (
	// Minimum tip when no recommendation is available: 0.001 SOL.
	MinTipLamports = 1_000_000

	// Compute unit sizing.
	DefaultComputeUnits = 200_000
	MaxComputeUnits     = 1_400_000
	ComputeUnitHeadroom = 1.2
	// Simulated estimates below this are treated as implausible.
	MinPlausibleComputeUnits = 1_000

	// Priority fee fallback in microlamports per compute unit.
	DefaultPriorityFeeMicroLamports = 50_000
)

// Confirmation polling defaults
const (
	ConfirmMaxRetries = 4
	ConfirmRetryDelay = 500 * time.Millisecond
)

// Subscription retry defaults
const (
	SubscribeMaxRetries = 5
	SubscribeRetryDelay = 2 * time.Second
)
