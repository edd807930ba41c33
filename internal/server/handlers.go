package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/amm"
	"github.com/quantfish/ammbot/internal/confirm"
	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Chain   *rpc.Client    // Solana JSON-RPC client
	Relay   *jito.Client   // Block-engine relay client
	Fees    amm.FeeConfig  // Pool fee schedule used for quotes
	DevMode bool           // Enable detailed error responses in development
	Logger  *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Pool returns the decoded pool account together with live vault reserves
func (h *Handlers) Pool(c echo.Context) error {
	address := strings.TrimSpace(c.Param("address"))
	pool, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool address", map[string]any{"address": "must be base58"})
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

	return c.JSON(http.StatusOK, PoolResponse{
		Address:      keys.Pool.String(),
		BaseMint:     keys.BaseMint.String(),
		QuoteMint:    keys.QuoteMint.String(),
		Creator:      keys.Creator.String(),
		CoinCreator:  keys.CoinCreator.String(),
		BaseReserve:  reserves.Base.String(),
		QuoteReserve: reserves.Quote.String(),
	})
}

// TipFloor returns the relay's current landed-tip percentiles
func (h *Handlers) TipFloor(c echo.Context) error {
	if h.Relay == nil {
		return h.err(c, http.StatusBadRequest, "relay is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	snapshot, err := h.Relay.GetTipFloor(ctx)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "failed to fetch tip floor", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, snapshot)
}

// ConfirmTransaction polls the status of a transaction signature until it
// confirms, fails on chain, or the retry budget runs out
func (h *Handlers) ConfirmTransaction(c echo.Context) error {
	signature := strings.TrimSpace(c.Param("signature"))
	if signature == "" {
		return h.err(c, http.StatusBadRequest, "invalid signature", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	outcome, err := confirm.Transaction(ctx, h.Chain, signature, confirm.Options{})
	if err != nil {
		return h.err(c, http.StatusBadGateway, "confirmation poll failed", map[string]any{"err": err.Error()})
	}

	resp := ConfirmResponse{Confirmed: outcome.Confirmed}
	if outcome.TxErr != nil {
		resp.Err = outcome.TxErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// ConfirmBundle polls the relay for a bundle's landing state
func (h *Handlers) ConfirmBundle(c echo.Context) error {
	if h.Relay == nil {
		return h.err(c, http.StatusBadRequest, "relay is not configured", nil)
	}
	bundleID := strings.TrimSpace(c.Param("id"))
	if bundleID == "" {
		return h.err(c, http.StatusBadRequest, "invalid bundle id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	state, err := confirm.Bundle(ctx, h.Relay, bundleID, confirm.Options{})
	if err != nil {
		return h.err(c, http.StatusBadGateway, "bundle status poll failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, BundleStateResponse{BundleID: bundleID, State: state.String()})
}
