package jito

import (
	"context"
	"fmt"
)

// BundleState classifies a relay's view of a submitted bundle. Pending is
// not an error; the bundle may still land.
type BundleState int

const (
	BundlePending BundleState = iota
	BundleLanded
	BundleFailed
)

func (s BundleState) String() string {
	switch s {
	case BundleLanded:
		return "landed"
	case BundleFailed:
		return "failed"
	default:
		return "pending"
	}
}

// BundleStatus is one entry of a getBundleStatuses response.
type BundleStatus struct {
	BundleID           string      `json:"bundle_id"`
	Transactions       []string    `json:"transactions"`
	Slot               uint64      `json:"slot"`
	ConfirmationStatus string      `json:"confirmation_status"`
	Err                interface{} `json:"err"`
}

// State interprets the relay's response fields into a tri-state outcome.
func (s *BundleStatus) State() BundleState {
	if s == nil {
		return BundlePending
	}
	if hasBundleError(s.Err) {
		return BundleFailed
	}
	switch s.ConfirmationStatus {
	case "confirmed", "finalized":
		return BundleLanded
	default:
		return BundlePending
	}
}

// hasBundleError unwraps the relay's error envelope. The relay reports
// success as {"Ok": null}, so a non-nil field is only an error when it is
// not that marker.
func hasBundleError(v interface{}) bool {
	if v == nil {
		return false
	}
	if m, ok := v.(map[string]interface{}); ok {
		if inner, present := m["Ok"]; present && inner == nil {
			return false
		}
	}
	return true
}

// GetBundleStatuses fetches relay-side status for up to five bundle ids.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]*BundleStatus, error) {
	return c.bundleStatuses(ctx, "getBundleStatuses", bundleIDs)
}

// GetInflightBundleStatuses fetches status for bundles the relay has accepted
// but not yet observed on-chain.
func (c *Client) GetInflightBundleStatuses(ctx context.Context, bundleIDs []string) ([]*BundleStatus, error) {
	return c.bundleStatuses(ctx, "getInflightBundleStatuses", bundleIDs)
}

func (c *Client) bundleStatuses(ctx context.Context, method string, bundleIDs []string) ([]*BundleStatus, error) {
	if len(bundleIDs) == 0 {
		return nil, fmt.Errorf("jito: no bundle ids")
	}

	var resp struct {
		Result struct {
			Value []*BundleStatus `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := c.call(ctx, c.pickRegion(), method, []interface{}{bundleIDs}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("relay %s error: %s", method, resp.Error.Message)
	}
	return resp.Result.Value, nil
}
