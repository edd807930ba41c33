package amm

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var globalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}

// GlobalConfig is the program-wide fee and admin configuration account.
type GlobalConfig struct {
	Admin                        solana.PublicKey
	LPFeeBasisPoints             uint64
	ProtocolFeeBasisPoints       uint64
	DisableFlags                 uint8
	ProtocolFeeRecipients        [8]solana.PublicKey
	CoinCreatorFeeBasisPoints    uint64
	AdminSetCoinCreatorAuthority solana.PublicKey
}

// FeeConfig converts the on-chain basis points into a quote fee schedule.
func (g *GlobalConfig) FeeConfig() FeeConfig {
	return FeeConfig{
		LPFeeBps:       g.LPFeeBasisPoints,
		ProtocolFeeBps: g.ProtocolFeeBasisPoints,
		CreatorFeeBps:  g.CoinCreatorFeeBasisPoints,
	}
}

// ProtocolFeeRecipient returns the first usable recipient slot. The account
// reserves eight slots but live configs leave most zeroed.
func (g *GlobalConfig) ProtocolFeeRecipient() (solana.PublicKey, error) {
	for _, recipient := range g.ProtocolFeeRecipients {
		if !recipient.IsZero() {
			return recipient, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("amm: global config has no protocol fee recipient")
}

// DecodeGlobalConfig decodes a raw global config account.
func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("amm: global config account too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], globalConfigDiscriminator) {
		return nil, fmt.Errorf("amm: account is not a global config")
	}

	var cfg GlobalConfig
	if err := bin.NewBorshDecoder(data[8:]).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("amm: decode global config: %w", err)
	}
	return &cfg, nil
}

// FetchGlobalConfig resolves the global config PDA and decodes its account.
func FetchGlobalConfig(ctx context.Context, chain Chain) (*GlobalConfig, error) {
	address, err := GlobalConfigAddress()
	if err != nil {
		return nil, err
	}
	data, err := chain.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("amm: fetch global config: %w", err)
	}
	return DecodeGlobalConfig(data)
}
