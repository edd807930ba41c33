package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/constants"
)

// methodPaths shards the relay API by JSON-RPC method: each method posts to
// its own endpoint path.
var methodPaths = map[string]string{
	"sendTransaction":           "/api/v1/transactions",
	"sendBundle":                "/api/v1/bundles",
	"getBundleStatuses":         "/api/v1/getBundleStatuses",
	"getInflightBundleStatuses": "/api/v1/getInflightBundleStatuses",
	"getTipAccounts":            "/api/v1/getTipAccounts",
}

// Client talks to a set of geographically distributed relay endpoints. When
// no region is pinned, each call picks one uniformly at random so no single
// region becomes a bottleneck.
type Client struct {
	regions map[string]string // region name -> base URL
	names   []string          // stable iteration order
	pinned  string            // optional region name
	uuid    string            // optional relay auth uuid

	httpClient  *http.Client
	tipFloorURL string
	tipWSURL    string
	logger      *logrus.Logger

	feed *tipFeedHandle
}

// ClientConfig holds configuration for the relay client.
type ClientConfig struct {
	Regions      []string // region names; empty = all known regions
	PinnedRegion string   // optional; all calls go to this region
	UUID         string
	Timeout      time.Duration
	TipFloorURL  string // override for tests
	TipStreamURL string // override for tests
	Logger       *logrus.Logger
}

// NewClient creates a relay client over the configured regions.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TipFloorURL == "" {
		cfg.TipFloorURL = constants.TipFloorURL
	}
	if cfg.TipStreamURL == "" {
		cfg.TipStreamURL = constants.TipStreamURL
	}

	regions := make(map[string]string)
	if len(cfg.Regions) == 0 {
		for name, url := range constants.RelayRegions {
			regions[name] = url
		}
	} else {
		for _, name := range cfg.Regions {
			url, ok := constants.RelayRegions[name]
			if !ok {
				return nil, fmt.Errorf("jito: unknown relay region %q", name)
			}
			regions[name] = url
		}
	}
	if cfg.PinnedRegion != "" {
		if _, ok := regions[cfg.PinnedRegion]; !ok {
			return nil, fmt.Errorf("jito: pinned region %q not in region set", cfg.PinnedRegion)
		}
	}

	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Client{
		regions:     regions,
		names:       names,
		pinned:      cfg.PinnedRegion,
		uuid:        cfg.UUID,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		tipFloorURL: cfg.TipFloorURL,
		tipWSURL:    cfg.TipStreamURL,
		logger:      cfg.Logger,
		feed:        &tipFeedHandle{},
	}, nil
}

// Regions returns the region names this client races across.
func (c *Client) Regions() []string {
	return append([]string(nil), c.names...)
}

func (c *Client) pickRegion() string {
	if c.pinned != "" {
		return c.pinned
	}
	return c.names[rand.IntN(len(c.names))]
}

// endpoint resolves the URL a method must be posted to on a given region.
func (c *Client) endpoint(region, method string) (string, error) {
	base, ok := c.regions[region]
	if !ok {
		return "", fmt.Errorf("jito: unknown region %q", region)
	}
	path, ok := methodPaths[method]
	if !ok {
		return "", fmt.Errorf("jito: unsupported method %q", method)
	}
	url := base + path
	if c.uuid != "" {
		url += "?uuid=" + c.uuid
	}
	return url, nil
}

// call posts a JSON-RPC request to one region.
func (c *Client) call(ctx context.Context, region, method string, params interface{}, result interface{}) error {
	url, err := c.endpoint(region, method)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request to %s failed: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay %s returned status %d", region, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to unmarshal relay response: %w", err)
	}
	return nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendTransaction submits a single signed transaction through the relay and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	encoded, err := encodeTx(tx)
	if err != nil {
		return "", err
	}

	var resp struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	params := []interface{}{encoded, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, c.pickRegion(), "sendTransaction", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("relay sendTransaction error: %s", resp.Error.Message)
	}
	return resp.Result, nil
}

// SendBundle submits an ordered transaction group to one region and returns
// the bundle id.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	encoded, err := encodeBundle(txs)
	if err != nil {
		return "", err
	}
	return c.sendBundleTo(ctx, c.pickRegion(), encoded)
}

func (c *Client) sendBundleTo(ctx context.Context, region string, encoded []string) (string, error) {
	var resp struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	params := []interface{}{encoded, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, region, "sendBundle", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("relay %s sendBundle error: %s", region, resp.Error.Message)
	}
	return resp.Result, nil
}

// GetTipAccounts fetches the relay's current tip accounts.
func (c *Client) GetTipAccounts(ctx context.Context) ([]string, error) {
	var resp struct {
		Result []string  `json:"result"`
		Error  *rpcError `json:"error"`
	}
	if err := c.call(ctx, c.pickRegion(), "getTipAccounts", []interface{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("relay getTipAccounts error: %s", resp.Error.Message)
	}
	return resp.Result, nil
}

func encodeTx(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func encodeBundle(txs []*solana.Transaction) ([]string, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("jito: bundle has no transactions")
	}
	encoded := make([]string, len(txs))
	for i, tx := range txs {
		s, err := encodeTx(tx)
		if err != nil {
			return nil, fmt.Errorf("bundle transaction %d: %w", i, err)
		}
		encoded[i] = s
	}
	return encoded, nil
}
