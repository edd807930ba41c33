package amm

import "math/big"

// Reserves is a snapshot of pool liquidity. The pricing functions never
// mutate it; concurrent quotes against the same snapshot are safe.
type Reserves struct {
	Base  *big.Int
	Quote *big.Int
}

func (r Reserves) valid() bool {
	return r.Base != nil && r.Quote != nil && r.Base.Sign() > 0 && r.Quote.Sign() > 0
}

// FeeConfig is the pool's swap fee schedule in basis points. The creator fee
// only applies when the pool has a coin creator (see PoolKeys.HasCreatorFee).
type FeeConfig struct {
	LPFeeBps       uint64
	ProtocolFeeBps uint64
	CreatorFeeBps  uint64
}

// TotalBps sums the applicable fee rates.
func (f FeeConfig) TotalBps(withCreatorFee bool) uint64 {
	total := f.LPFeeBps + f.ProtocolFeeBps
	if withCreatorFee {
		total += f.CreatorFeeBps
	}
	return total
}

// BuyQuote is the priced result of a buy. For a quote computed from a target
// base output, TotalQuote is the fee-inclusive cost; for a quote computed
// from a fixed quote input, TotalQuote echoes that input. MaxQuote is the
// slippage-adjusted spend ceiling and is always >= TotalQuote.
type BuyQuote struct {
	Base        *big.Int // base tokens received
	RawQuote    *big.Int // quote amount crossing the pool, before fees
	LPFee       *big.Int
	ProtocolFee *big.Int
	CreatorFee  *big.Int
	TotalQuote  *big.Int
	MaxQuote    *big.Int
}

// SellQuote is the priced result of a sell. NetQuote is the receipt after
// fees; MinQuote is the slippage-adjusted floor and is always <= NetQuote.
// MaxBase is set only for quotes computed from a target quote output.
type SellQuote struct {
	Base        *big.Int // base tokens paid in
	RawQuote    *big.Int // quote amount leaving the pool, before fees
	LPFee       *big.Int
	ProtocolFee *big.Int
	CreatorFee  *big.Int
	NetQuote    *big.Int
	MinQuote    *big.Int
	MaxBase     *big.Int
}
