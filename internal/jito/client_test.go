package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client over arbitrary base URLs, bypassing the
// known-region table.
func newTestClient(regionURLs map[string]string) *Client {
	names := make([]string, 0, len(regionURLs))
	for name := range regionURLs {
		names = append(names, name)
	}
	sort.Strings(names)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &Client{
		regions:    regionURLs,
		names:      names,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		feed:       &tipFeedHandle{},
	}
}

func signedTestTx(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	ix := solana.NewInstruction(
		solana.MemoProgramID,
		[]*solana.AccountMeta{{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true}},
		[]byte("test"),
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestEndpoint_MethodSharding(t *testing.T) {
	c := newTestClient(map[string]string{"ny": "https://relay.example"})

	cases := map[string]string{
		"sendTransaction":           "https://relay.example/api/v1/transactions",
		"sendBundle":                "https://relay.example/api/v1/bundles",
		"getBundleStatuses":         "https://relay.example/api/v1/getBundleStatuses",
		"getInflightBundleStatuses": "https://relay.example/api/v1/getInflightBundleStatuses",
		"getTipAccounts":            "https://relay.example/api/v1/getTipAccounts",
	}
	for method, want := range cases {
		url, err := c.endpoint("ny", method)
		require.NoError(t, err)
		assert.Equal(t, want, url)
	}

	_, err := c.endpoint("ny", "getRegions")
	assert.ErrorContains(t, err, "unsupported method")
	_, err = c.endpoint("mars", "sendBundle")
	assert.ErrorContains(t, err, "unknown region")
}

func TestEndpoint_UUID(t *testing.T) {
	c := newTestClient(map[string]string{"ny": "https://relay.example"})
	c.uuid = "my-uuid"

	url, err := c.endpoint("ny", "sendBundle")
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example/api/v1/bundles?uuid=my-uuid", url)
}

func TestNewClient_RegionValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{Regions: []string{"atlantis"}})
	assert.ErrorContains(t, err, "unknown relay region")

	_, err = NewClient(ClientConfig{Regions: []string{"ny"}, PinnedRegion: "tokyo"})
	assert.ErrorContains(t, err, "not in region set")

	c, err := NewClient(ClientConfig{Regions: []string{"ny", "tokyo"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ny", "tokyo"}, c.Regions())
}

func TestPickRegion_Pinned(t *testing.T) {
	c := newTestClient(map[string]string{"a": "x", "b": "y", "c": "z"})
	c.pinned = "b"
	for i := 0; i < 8; i++ {
		assert.Equal(t, "b", c.pickRegion())
	}
}

func TestSendBundle(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "bundle-123"})
	}))
	defer srv.Close()

	c := newTestClient(map[string]string{"test": srv.URL})
	id, err := c.SendBundle(context.Background(), []*solana.Transaction{signedTestTx(t)})
	require.NoError(t, err)

	assert.Equal(t, "bundle-123", id)
	assert.Equal(t, "/api/v1/bundles", gotPath)
	assert.Equal(t, "sendBundle", gotBody["method"])

	// params: [txs, {"encoding": "base64"}]
	params, ok := gotBody["params"].([]interface{})
	require.True(t, ok)
	require.Len(t, params, 2)
	txs, ok := params[0].([]interface{})
	require.True(t, ok)
	assert.Len(t, txs, 1)
}

func TestSendBundle_RelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": -32600, "message": "bundle too large"},
		})
	}))
	defer srv.Close()

	c := newTestClient(map[string]string{"test": srv.URL})
	_, err := c.SendBundle(context.Background(), []*solana.Transaction{signedTestTx(t)})
	assert.ErrorContains(t, err, "bundle too large")
}

func TestSendBundle_Empty(t *testing.T) {
	c := newTestClient(map[string]string{"test": "http://unused"})
	_, err := c.SendBundle(context.Background(), nil)
	assert.ErrorContains(t, err, "no transactions")
}

func TestGetBundleStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/getBundleStatuses", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{
						"bundle_id":           "b-1",
						"slot":                123,
						"confirmation_status": "confirmed",
						"err":                 map[string]interface{}{"Ok": nil},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(map[string]string{"test": srv.URL})
	statuses, err := c.GetBundleStatuses(context.Background(), []string{"b-1"})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "b-1", statuses[0].BundleID)
	assert.Equal(t, uint64(123), statuses[0].Slot)
	assert.Equal(t, BundleLanded, statuses[0].State())
}

func TestGetBundleStatuses_NoIDs(t *testing.T) {
	c := newTestClient(map[string]string{"test": "http://unused"})
	_, err := c.GetBundleStatuses(context.Background(), nil)
	assert.ErrorContains(t, err, "no bundle ids")
}

func TestGetTipAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/getTipAccounts", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []string{"tip1", "tip2"},
		})
	}))
	defer srv.Close()

	c := newTestClient(map[string]string{"test": srv.URL})
	accounts, err := c.GetTipAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tip1", "tip2"}, accounts)
}
