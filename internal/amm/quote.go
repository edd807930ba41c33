package amm

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// hasCreatorFee reports whether the pool's coin creator participates in the
// fee split. The program uses the system address (all zero bytes) to mark
// pools without a creator.
func hasCreatorFee(coinCreator solana.PublicKey) bool {
	return !coinCreator.IsZero()
}

// QuoteBuyBaseOut prices a buy of exactly baseOut base tokens. It inverts the
// constant-product invariant to find the quote input that withdraws baseOut,
// then grosses up by LP, protocol and (when applicable) creator fees, each
// rounded up independently.
func QuoteBuyBaseOut(baseOut *big.Int, r Reserves, fees FeeConfig, slippagePercent float64, coinCreator solana.PublicKey) (*BuyQuote, error) {
	slipBps, err := slippageBps(slippagePercent)
	if err != nil {
		return nil, err
	}
	if baseOut == nil || baseOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !r.valid() {
		return nil, ErrZeroReserves
	}
	if baseOut.Cmp(r.Base) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	// (base - out)(quote + in) = base * quote  =>  in = out*quote/(base-out)
	num := new(big.Int).Mul(baseOut, r.Quote)
	den := new(big.Int).Sub(r.Base, baseOut)
	rawQuote, err := CeilDiv(num, den)
	if err != nil {
		return nil, err
	}

	withCreator := hasCreatorFee(coinCreator)
	lpFee := Fee(rawQuote, fees.LPFeeBps)
	protocolFee := Fee(rawQuote, fees.ProtocolFeeBps)
	creatorFee := big.NewInt(0)
	if withCreator {
		creatorFee = Fee(rawQuote, fees.CreatorFeeBps)
	}

	total := new(big.Int).Add(rawQuote, lpFee)
	total.Add(total, protocolFee)
	total.Add(total, creatorFee)

	return &BuyQuote{
		Base:        new(big.Int).Set(baseOut),
		RawQuote:    rawQuote,
		LPFee:       lpFee,
		ProtocolFee: protocolFee,
		CreatorFee:  creatorFee,
		TotalQuote:  total,
		MaxQuote:    scaleUp(total, slipBps),
	}, nil
}

// QuoteBuyQuoteIn prices a buy spending exactly quoteIn quote tokens. Fees
// are netted out of the input first, then the constant-product formula runs
// forward to find the base output. The spend bound scales the raw input, not
// the fee-netted amount: callers send at most MaxQuote.
func QuoteBuyQuoteIn(quoteIn *big.Int, r Reserves, fees FeeConfig, slippagePercent float64, coinCreator solana.PublicKey) (*BuyQuote, error) {
	slipBps, err := slippageBps(slippagePercent)
	if err != nil {
		return nil, err
	}
	if quoteIn == nil || quoteIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !r.valid() {
		return nil, ErrZeroReserves
	}

	withCreator := hasCreatorFee(coinCreator)
	totalBps := fees.TotalBps(withCreator)

	// effective = in * 10000 / (10000 + totalBps)
	effective := new(big.Int).Mul(quoteIn, bpsDenom)
	effective.Div(effective, new(big.Int).SetUint64(feeDenominator+totalBps))

	// out = base * effective / (quote + effective)
	num := new(big.Int).Mul(r.Base, effective)
	den := new(big.Int).Add(r.Quote, effective)
	baseOut := num.Div(num, den)

	creatorFee := big.NewInt(0)
	if withCreator {
		creatorFee = Fee(effective, fees.CreatorFeeBps)
	}

	return &BuyQuote{
		Base:        baseOut,
		RawQuote:    effective,
		LPFee:       Fee(effective, fees.LPFeeBps),
		ProtocolFee: Fee(effective, fees.ProtocolFeeBps),
		CreatorFee:  creatorFee,
		TotalQuote:  new(big.Int).Set(quoteIn),
		MaxQuote:    scaleUp(quoteIn, slipBps),
	}, nil
}

// QuoteSellBaseIn prices a sell of exactly baseIn base tokens. The forward
// constant-product formula yields the gross quote output; fees are then
// deducted from it.
func QuoteSellBaseIn(baseIn *big.Int, r Reserves, fees FeeConfig, slippagePercent float64, coinCreator solana.PublicKey) (*SellQuote, error) {
	slipBps, err := slippageBps(slippagePercent)
	if err != nil {
		return nil, err
	}
	if baseIn == nil || baseIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !r.valid() {
		return nil, ErrZeroReserves
	}

	// out = quote * in / (base + in)
	num := new(big.Int).Mul(r.Quote, baseIn)
	den := new(big.Int).Add(r.Base, baseIn)
	rawQuote := num.Div(num, den)

	withCreator := hasCreatorFee(coinCreator)
	lpFee := Fee(rawQuote, fees.LPFeeBps)
	protocolFee := Fee(rawQuote, fees.ProtocolFeeBps)
	creatorFee := big.NewInt(0)
	if withCreator {
		creatorFee = Fee(rawQuote, fees.CreatorFeeBps)
	}

	net := new(big.Int).Sub(rawQuote, lpFee)
	net.Sub(net, protocolFee)
	net.Sub(net, creatorFee)
	if net.Sign() < 0 {
		return nil, ErrFeesExceedOutput
	}

	return &SellQuote{
		Base:        new(big.Int).Set(baseIn),
		RawQuote:    rawQuote,
		LPFee:       lpFee,
		ProtocolFee: protocolFee,
		CreatorFee:  creatorFee,
		NetQuote:    net,
		MinQuote:    scaleDown(net, slipBps),
	}, nil
}

// QuoteSellQuoteOut prices a sell targeting a net receipt of exactly
// quoteOut quote tokens. The fee deduction is inverted to find the gross
// pool output, then the constant-product formula is inverted to find the
// base input required.
func QuoteSellQuoteOut(quoteOut *big.Int, r Reserves, fees FeeConfig, slippagePercent float64, coinCreator solana.PublicKey) (*SellQuote, error) {
	slipBps, err := slippageBps(slippagePercent)
	if err != nil {
		return nil, err
	}
	if quoteOut == nil || quoteOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !r.valid() {
		return nil, ErrZeroReserves
	}

	withCreator := hasCreatorFee(coinCreator)
	totalBps := fees.TotalBps(withCreator)

	// gross = ceil(out * 10000 / (10000 - totalBps))
	num := new(big.Int).Mul(quoteOut, bpsDenom)
	rawQuote, err := CeilDiv(num, new(big.Int).SetUint64(feeDenominator-totalBps))
	if err != nil {
		return nil, err
	}
	if rawQuote.Cmp(r.Quote) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	// in = ceil(base * gross / (quote - gross))
	num = new(big.Int).Mul(r.Base, rawQuote)
	den := new(big.Int).Sub(r.Quote, rawQuote)
	baseIn, err := CeilDiv(num, den)
	if err != nil {
		return nil, err
	}

	creatorFee := big.NewInt(0)
	if withCreator {
		creatorFee = Fee(rawQuote, fees.CreatorFeeBps)
	}

	return &SellQuote{
		Base:        baseIn,
		RawQuote:    rawQuote,
		LPFee:       Fee(rawQuote, fees.LPFeeBps),
		ProtocolFee: Fee(rawQuote, fees.ProtocolFeeBps),
		CreatorFee:  creatorFee,
		NetQuote:    new(big.Int).Set(quoteOut),
		MinQuote:    new(big.Int).Set(quoteOut),
		MaxBase:     scaleUp(baseIn, slipBps),
	}, nil
}
