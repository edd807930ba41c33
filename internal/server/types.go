package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// PoolResponse represents a decoded pool with its live reserves
type PoolResponse struct {
	Address      string `json:"address"`
	BaseMint     string `json:"base_mint"`
	QuoteMint    string `json:"quote_mint"`
	Creator      string `json:"creator"`
	CoinCreator  string `json:"coin_creator"`
	BaseReserve  string `json:"base_reserve"`
	QuoteReserve string `json:"quote_reserve"`
}

// QuoteResponse represents an on-curve quote. Amounts are decimal strings in
// native units (lamports for the quote side, raw token units for the base
// side). Buy quotes fill total/max_quote, sell quotes fill net/min_quote and,
// for exact-out sells, max_base.
type QuoteResponse struct {
	Side        string `json:"side"`
	Base        string `json:"base"`
	RawQuote    string `json:"raw_quote"`
	LPFee       string `json:"lp_fee"`
	ProtocolFee string `json:"protocol_fee"`
	CreatorFee  string `json:"creator_fee"`
	TotalQuote  string `json:"total_quote,omitempty"`
	MaxQuote    string `json:"max_quote,omitempty"`
	NetQuote    string `json:"net_quote,omitempty"`
	MinQuote    string `json:"min_quote,omitempty"`
	MaxBase     string `json:"max_base,omitempty"`
}

// ConfirmResponse represents the outcome of a signature confirmation poll
type ConfirmResponse struct {
	Confirmed bool   `json:"confirmed"`
	Err       string `json:"err,omitempty"` // On-chain failure, if any
}

// BundleStateResponse represents the relay's view of a bundle
type BundleStateResponse struct {
	BundleID string `json:"bundle_id"`
	State    string `json:"state"` // pending, landed, or failed
}
