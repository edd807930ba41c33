package amm

import (
	"errors"
	"math/big"
)

const feeDenominator = 10_000 // basis points

var (
	ErrZeroDivisor           = errors.New("amm: division by zero")
	ErrZeroAmount            = errors.New("amm: amount must be greater than zero")
	ErrZeroReserves          = errors.New("amm: pool reserves must be greater than zero")
	ErrInsufficientLiquidity = errors.New("amm: amount meets or exceeds pool reserve")
	ErrFeesExceedOutput      = errors.New("amm: fees exceed swap output")
	ErrInvalidSlippage       = errors.New("amm: slippage percent out of range")
)

var bpsDenom = big.NewInt(feeDenominator)

// CeilDiv returns ceil(a/b) for non-negative a and positive b.
// The pool must never be under-compensated, so every division on the
// pay-the-pool side rounds up.
func CeilDiv(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrZeroDivisor
	}
	num := new(big.Int).Add(a, b)
	num.Sub(num, big.NewInt(1))
	return num.Div(num, b), nil
}

// Fee returns ceil(amount * bps / 10000).
func Fee(amount *big.Int, bps uint64) *big.Int {
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	num.Add(num, big.NewInt(feeDenominator-1))
	return num.Div(num, bpsDenom)
}

// scaleUp returns ceil(amount * (10000 + bps) / 10000); the max-spend bound.
func scaleUp(amount *big.Int, bps uint64) *big.Int {
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(feeDenominator+bps))
	num.Add(num, big.NewInt(feeDenominator-1))
	return num.Div(num, bpsDenom)
}

// scaleDown returns floor(amount * (10000 - bps) / 10000); the min-receipt bound.
func scaleDown(amount *big.Int, bps uint64) *big.Int {
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(feeDenominator-bps))
	return num.Div(num, bpsDenom)
}

// slippageBps converts a percent tolerance (e.g. 1.5) to basis points.
func slippageBps(percent float64) (uint64, error) {
	if percent < 0 || percent > 100 {
		return 0, ErrInvalidSlippage
	}
	return uint64(percent*100 + 0.5), nil
}
