package amm

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// poolDiscriminator identifies the program's Pool account type.
var poolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}

// PoolAccountSize is the exact byte length of a Pool account: the 8-byte
// discriminator plus the fixed Borsh body. Program-wide subscriptions filter
// on it to skip the program's other account types.
const PoolAccountSize = 243

// Chain is the subset of the RPC client the pool layer reads from.
type Chain interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*big.Int, error)
}

// poolAccount is the on-chain Pool account body (Borsh, after the 8-byte
// discriminator).
type poolAccount struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	CoinCreator           solana.PublicKey
}

// PoolKeys is an immutable snapshot of a pool's addresses and metadata.
// Refreshing reserves always fetches a new snapshot; nothing mutates one in
// place.
type PoolKeys struct {
	Pool        solana.PublicKey
	Bump        uint8
	Index       uint16
	Creator     solana.PublicKey
	BaseMint    solana.PublicKey
	QuoteMint   solana.PublicKey
	LPMint      solana.PublicKey
	BaseVault   solana.PublicKey
	QuoteVault  solana.PublicKey
	LPSupply    uint64
	CoinCreator solana.PublicKey
}

// HasCreatorFee reports whether swaps against this pool owe a creator fee.
func (k *PoolKeys) HasCreatorFee() bool {
	return hasCreatorFee(k.CoinCreator)
}

// DecodePoolKeys decodes a raw Pool account into a PoolKeys snapshot.
func DecodePoolKeys(pool solana.PublicKey, data []byte) (*PoolKeys, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("pool account %s: data too short (%d bytes)", pool, len(data))
	}
	if !bytes.Equal(data[:8], poolDiscriminator) {
		return nil, fmt.Errorf("pool account %s: unexpected discriminator %x", pool, data[:8])
	}

	var acct poolAccount
	if err := bin.NewBorshDecoder(data[8:]).Decode(&acct); err != nil {
		return nil, fmt.Errorf("pool account %s: decode failed: %w", pool, err)
	}

	return &PoolKeys{
		Pool:        pool,
		Bump:        acct.PoolBump,
		Index:       acct.Index,
		Creator:     acct.Creator,
		BaseMint:    acct.BaseMint,
		QuoteMint:   acct.QuoteMint,
		LPMint:      acct.LPMint,
		BaseVault:   acct.PoolBaseTokenAccount,
		QuoteVault:  acct.PoolQuoteTokenAccount,
		LPSupply:    acct.LPSupply,
		CoinCreator: acct.CoinCreator,
	}, nil
}

// FetchPoolKeys fetches and decodes a pool's account.
func FetchPoolKeys(ctx context.Context, chain Chain, pool solana.PublicKey) (*PoolKeys, error) {
	data, err := chain.GetAccountData(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", pool, err)
	}
	return DecodePoolKeys(pool, data)
}

// FetchReserves queries the current balances of both vault accounts.
func FetchReserves(ctx context.Context, chain Chain, keys *PoolKeys) (Reserves, error) {
	base, err := chain.GetTokenAccountBalance(ctx, keys.BaseVault)
	if err != nil {
		return Reserves{}, fmt.Errorf("fetch base reserve: %w", err)
	}
	quote, err := chain.GetTokenAccountBalance(ctx, keys.QuoteVault)
	if err != nil {
		return Reserves{}, fmt.Errorf("fetch quote reserve: %w", err)
	}
	return Reserves{Base: base, Quote: quote}, nil
}
