package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// GetLatestBlockhash fetches the most recent blockhash. A non-zero minSlot
// constrains the lookup to ledger state at or after that slot.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string, minSlot uint64) (solana.Hash, uint64, error) {
	if commitment == "" {
		commitment = "confirmed"
	}

	opts := map[string]any{"commitment": commitment}
	if minSlot > 0 {
		opts["minContextSlot"] = minSlot
	}

	var resp struct {
		Result struct {
			Value BlockhashResult `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	if err := c.Call(ctx, "getLatestBlockhash", []any{opts}, &resp); err != nil {
		return solana.Hash{}, 0, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	if resp.Error != nil {
		return solana.Hash{}, 0, fmt.Errorf("getLatestBlockhash error: %s", resp.Error.Message)
	}

	hash, err := solana.HashFromBase58(resp.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("invalid blockhash format: %w", err)
	}
	return hash, resp.Result.Value.LastValidBlockHeight, nil
}

// GetAccountData fetches and base64-decodes an account's raw data.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	var resp struct {
		Result struct {
			Value *AccountInfo `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		account.String(),
		map[string]any{"encoding": "base64", "commitment": "confirmed"},
	}
	if err := c.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	if resp.Result.Value == nil {
		return nil, fmt.Errorf("account %s not found", account)
	}
	if len(resp.Result.Value.Data) == 0 {
		return nil, fmt.Errorf("account %s has no data", account)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode account data: %w", err)
	}
	return raw, nil
}

// AccountExists checks whether an account exists on-chain.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	var resp struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		account.String(),
		map[string]any{"encoding": "base64", "commitment": "confirmed"},
	}
	if err := c.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return false, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	return resp.Result.Value != nil, nil
}

// GetTokenAccountBalance returns a token account's raw balance as a big.Int.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*big.Int, error) {
	var resp struct {
		Result struct {
			Value TokenAmount `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		account.String(),
		map[string]any{"commitment": "confirmed"},
	}
	if err := c.Call(ctx, "getTokenAccountBalance", params, &resp); err != nil {
		return nil, fmt.Errorf("getTokenAccountBalance failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getTokenAccountBalance error: %s", resp.Error.Message)
	}

	amount, ok := new(big.Int).SetString(resp.Result.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount %q", resp.Result.Value.Amount)
	}
	return amount, nil
}

// GetSignatureStatus fetches the status of a single signature. A nil result
// with a nil error means the signature is not yet known to the cluster.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var resp struct {
		Result struct {
			Value []*SignatureStatus `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}
	if err := c.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return nil, fmt.Errorf("getSignatureStatuses failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getSignatureStatuses error: %s", resp.Error.Message)
	}
	if len(resp.Result.Value) == 0 {
		return nil, nil
	}
	return resp.Result.Value[0], nil
}

// SendTransaction submits a signed, wire-encoded transaction and returns its
// signature.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       skipPreflight,
			"preflightCommitment": "processed",
		},
	}

	var resp struct {
		Result string    `json:"result"`
		Error  *RPCError `json:"error"`
	}
	if err := c.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction error: code=%d, message=%s",
			resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// SimulateTransaction simulates a transaction against current state and
// returns its compute usage. The blockhash in the message is replaced so
// drafts built before fee tuning simulate cleanly.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		map[string]any{
			"encoding":               "base64",
			"commitment":             "processed",
			"sigVerify":              false,
			"replaceRecentBlockhash": true,
		},
	}

	var resp struct {
		Result struct {
			Value SimulationResult `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}
	if err := c.Call(ctx, "simulateTransaction", params, &resp); err != nil {
		return nil, fmt.Errorf("simulateTransaction failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("simulateTransaction error: %s", resp.Error.Message)
	}
	if resp.Result.Value.Err != nil {
		return &resp.Result.Value, fmt.Errorf("simulation failed: %v", resp.Result.Value.Err)
	}
	return &resp.Result.Value, nil
}

// GetPriorityFeeEstimate asks the endpoint for a recommended priority fee in
// microlamports per compute unit. Falls back to a percentile over recent
// prioritization fees when the endpoint does not support the extended method.
func (c *Client) GetPriorityFeeEstimate(ctx context.Context, accounts []solana.PublicKey) (uint64, error) {
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = a.String()
	}

	var resp struct {
		Result struct {
			PriorityFeeEstimate float64 `json:"priorityFeeEstimate"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []any{
		map[string]any{
			"accountKeys": keys,
			"options":     map[string]any{"recommended": true},
		},
	}
	err := c.Call(ctx, "getPriorityFeeEstimate", params, &resp)
	if err == nil && resp.Error == nil && resp.Result.PriorityFeeEstimate > 0 {
		return uint64(resp.Result.PriorityFeeEstimate), nil
	}

	return c.recentPrioritizationFee(ctx, keys)
}

// recentPrioritizationFee computes the 75th percentile of recent non-zero
// prioritization fees for the given accounts.
func (c *Client) recentPrioritizationFee(ctx context.Context, keys []string) (uint64, error) {
	var resp struct {
		Result []PrioritizationFee `json:"result"`
		Error  *RPCError           `json:"error"`
	}
	if err := c.Call(ctx, "getRecentPrioritizationFees", []any{keys}, &resp); err != nil {
		return 0, fmt.Errorf("getRecentPrioritizationFees failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getRecentPrioritizationFees error: %s", resp.Error.Message)
	}

	fees := make([]uint64, 0, len(resp.Result))
	for _, f := range resp.Result {
		if f.PrioritizationFee > 0 {
			fees = append(fees, f.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return 0, fmt.Errorf("no recent prioritization fee samples")
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	return fees[(len(fees)-1)*75/100], nil
}
