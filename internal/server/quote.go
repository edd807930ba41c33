package server

import (
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"

	"github.com/quantfish/ammbot/internal/amm"
)

// Quote computes an on-curve quote against live pool reserves.
//
// Query parameters:
//
//	pool     pool account address (required)
//	side     buy or sell (required)
//	exact    which leg amount fixes: base or quote (default base)
//	amount   amount in native units (required)
//	slippage slippage tolerance percent (default 1)
func (h *Handlers) Quote(c echo.Context) error {
	poolStr := strings.TrimSpace(c.QueryParam("pool"))
	pool, err := solana.PublicKeyFromBase58(poolStr)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", map[string]any{"pool": "must be base58"})
	}

	side := strings.TrimSpace(c.QueryParam("side"))
	if side != "buy" && side != "sell" {
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "must be buy or sell"})
	}

	exact := strings.TrimSpace(c.QueryParam("exact"))
	if exact == "" {
		exact = "base"
	}
	if exact != "base" && exact != "quote" {
		return h.err(c, http.StatusBadRequest, "invalid exact", map[string]any{"exact": "must be base or quote"})
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	if _, err := strconv.ParseUint(amountStr, 10, 64); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}
	amount, _ := new(big.Int).SetString(amountStr, 10)

	slippage := 1.0
	if v := strings.TrimSpace(c.QueryParam("slippage")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			return h.err(c, http.StatusBadRequest, "invalid slippage", map[string]any{"slippage": "must be a percent in [0, 100]"})
		}
		slippage = f
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	keys, err := amm.FetchPoolKeys(ctx, h.Chain, pool)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to fetch pool", map[string]any{"err": err.Error()})
	}
	reserves, err := amm.FetchReserves(ctx, h.Chain, keys)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to fetch reserves", map[string]any{"err": err.Error()})
	}

	resp := QuoteResponse{Side: side}
	switch {
	case side == "buy" && exact == "base":
		q, err := amm.QuoteBuyBaseOut(amount, reserves, h.Fees, slippage, keys.CoinCreator)
		if err != nil {
			return h.err(c, http.StatusUnprocessableEntity, "quote failed", map[string]any{"err": err.Error()})
		}
		fillBuy(&resp, q)
	case side == "buy" && exact == "quote":
		q, err := amm.QuoteBuyQuoteIn(amount, reserves, h.Fees, slippage, keys.CoinCreator)
		if err != nil {
			return h.err(c, http.StatusUnprocessableEntity, "quote failed", map[string]any{"err": err.Error()})
		}
		fillBuy(&resp, q)
	case side == "sell" && exact == "base":
		q, err := amm.QuoteSellBaseIn(amount, reserves, h.Fees, slippage, keys.CoinCreator)
		if err != nil {
			return h.err(c, http.StatusUnprocessableEntity, "quote failed", map[string]any{"err": err.Error()})
		}
		fillSell(&resp, q)
	default: // sell exact quote
		q, err := amm.QuoteSellQuoteOut(amount, reserves, h.Fees, slippage, keys.CoinCreator)
		if err != nil {
			return h.err(c, http.StatusUnprocessableEntity, "quote failed", map[string]any{"err": err.Error()})
		}
		fillSell(&resp, q)
	}

	return c.JSON(http.StatusOK, resp)
}

func fillBuy(resp *QuoteResponse, q *amm.BuyQuote) {
	resp.Base = q.Base.String()
	resp.RawQuote = q.RawQuote.String()
	resp.LPFee = q.LPFee.String()
	resp.ProtocolFee = q.ProtocolFee.String()
	resp.CreatorFee = q.CreatorFee.String()
	resp.TotalQuote = q.TotalQuote.String()
	resp.MaxQuote = q.MaxQuote.String()
}

func fillSell(resp *QuoteResponse, q *amm.SellQuote) {
	resp.Base = q.Base.String()
	resp.RawQuote = q.RawQuote.String()
	resp.LPFee = q.LPFee.String()
	resp.ProtocolFee = q.ProtocolFee.String()
	resp.CreatorFee = q.CreatorFee.String()
	resp.NetQuote = q.NetQuote.String()
	resp.MinQuote = q.MinQuote.String()
	if q.MaxBase != nil {
		resp.MaxBase = q.MaxBase.String()
	}
}
