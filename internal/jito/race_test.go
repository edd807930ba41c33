package jito

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relayServer(t *testing.T, bundleID string, fail bool, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if fail {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": bundleID})
	}))
}

func TestSendBundleShaking_FirstSuccessWins(t *testing.T) {
	// 7 regions: 2 accept, 5 reject
	regions := make(map[string]string, 7)
	accepted := map[string]bool{}
	for i := 0; i < 7; i++ {
		name := fmt.Sprintf("region-%d", i)
		fail := i != 2 && i != 5
		srv := relayServer(t, "bundle-"+name, fail, nil)
		defer srv.Close()
		regions[name] = srv.URL
		if !fail {
			accepted["bundle-"+name] = true
		}
	}
	require.Len(t, accepted, 2)

	c := newTestClient(regions)
	id, err := c.SendBundleShaking(context.Background(), []*solana.Transaction{signedTestTx(t)})
	require.NoError(t, err)
	assert.True(t, accepted[id], "winning id %q must come from an accepting region", id)
}

func TestSendBundleShaking_AllFail(t *testing.T) {
	regions := make(map[string]string, 7)
	for i := 0; i < 7; i++ {
		srv := relayServer(t, "", true, nil)
		defer srv.Close()
		regions[fmt.Sprintf("region-%d", i)] = srv.URL
	}

	c := newTestClient(regions)
	_, err := c.SendBundleShaking(context.Background(), []*solana.Transaction{signedTestTx(t)})
	require.Error(t, err)
	assert.ErrorContains(t, err, "all 7 relay regions rejected the bundle")
	// each region's failure is preserved in the joined error
	for name := range regions {
		assert.ErrorContains(t, err, name)
	}
}

func TestSendBundleShaking_HitsEveryRegion(t *testing.T) {
	var hits atomic.Int32
	regions := make(map[string]string, 3)
	for i := 0; i < 3; i++ {
		srv := relayServer(t, "", true, &hits)
		defer srv.Close()
		regions[fmt.Sprintf("region-%d", i)] = srv.URL
	}

	c := newTestClient(regions)
	_, err := c.SendBundleShaking(context.Background(), []*solana.Transaction{signedTestTx(t)})
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSendBundleShaking_CancelledContext(t *testing.T) {
	c := newTestClient(map[string]string{"test": "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SendBundleShaking(ctx, []*solana.Transaction{signedTestTx(t)})
	assert.Error(t, err)
}
