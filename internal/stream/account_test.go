package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subscribeRequest is the first frame every subscription sends.
type subscribeRequest struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// wsFakeServer upgrades each connection, acks the subscribe request with
// subscription id 1, and hands the connection to script. Returning from
// script drops the connection, which the client sees as a transport failure.
func wsFakeServer(t *testing.T, script func(conn *websocket.Conn, connNum int, req subscribeRequest)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var upgrader websocket.Upgrader
	var conns atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := int(conns.Add(1))

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage,
			[]byte(fmt.Sprintf(`{"jsonrpc":"2.0","result":1,"id":%d}`, req.ID))); err != nil {
			return
		}
		script(conn, n, req)
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsFakeURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func accountNotification(slot uint64, data []byte) []byte {
	return []byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"result":{"context":{"slot":%d},"value":{"lamports":1,"owner":"11111111111111111111111111111111","data":[%q,"base64"],"executable":false,"rentEpoch":0}},"subscription":1}}`,
		slot, base64.StdEncoding.EncodeToString(data)))
}

// deliverThenDrop writes one notification, gives the client time to consume
// it, then returns so the connection closes under the subscriber.
func deliverThenDrop(conn *websocket.Conn, payload []byte) {
	_ = conn.WriteMessage(websocket.TextMessage, payload)
	time.Sleep(150 * time.Millisecond)
}

func quietConfig(url string, maxRetries int) Config {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return Config{
		WSURL:      url,
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		Logger:     logger,
	}
}

func decodeString(data []byte) (string, error) {
	return string(data), nil
}

func TestAccount_ResubscribesAndResetsRetries(t *testing.T) {
	// Four connections each deliver one update before dropping; with
	// MaxRetries 2, reaching all four deliveries requires the retry counter
	// to reset on every successful delivery. The two final connections fail
	// without delivering, exhausting the budget.
	const delivering = 4
	srv, conns := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {
		if n <= delivering {
			deliverThenDrop(conn, accountNotification(uint64(n), []byte(fmt.Sprintf("update-%d", n))))
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	watched := solana.NewWallet().PublicKey()
	updates, err := Account[string](ctx, quietConfig(wsFakeURL(srv), 2), nil, watched, decodeString)
	require.NoError(t, err)

	var values []string
	var terminal error
	for update := range updates {
		if update.Err != nil {
			terminal = update.Err
			continue
		}
		values = append(values, update.Value)
	}

	assert.Equal(t, []string{"update-1", "update-2", "update-3", "update-4"}, values)
	require.Error(t, terminal)
	assert.Contains(t, terminal.Error(), "after 2 retries")
	assert.Equal(t, int32(delivering+2), conns.Load())
}

func TestAccount_CarriesSlot(t *testing.T) {
	srv, _ := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {
		deliverThenDrop(conn, accountNotification(4242, []byte("state")))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := Account[string](ctx, quietConfig(wsFakeURL(srv), 0), nil, solana.NewWallet().PublicKey(), decodeString)
	require.NoError(t, err)

	update := <-updates
	require.NoError(t, update.Err)
	assert.Equal(t, uint64(4242), update.Slot)
	assert.Equal(t, "state", update.Value)
	cancel()
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) GetAccountData(context.Context, solana.PublicKey) ([]byte, error) {
	return f.data, f.err
}

func TestAccount_InitialSnapshot(t *testing.T) {
	srv, _ := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {
		// hold the connection open without delivering anything
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fetcher := &fakeFetcher{data: []byte("snapshot")}
	updates, err := Account[string](ctx, quietConfig(wsFakeURL(srv), 0), fetcher, solana.NewWallet().PublicKey(), decodeString)
	require.NoError(t, err)

	first := <-updates
	require.NoError(t, first.Err)
	assert.Equal(t, "snapshot", first.Value)
	assert.Zero(t, first.Slot)
	cancel()
}

func TestAccount_GivesUpWithoutDeliveries(t *testing.T) {
	// every connection drops right after the subscription ack
	srv, conns := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := Account[string](ctx, quietConfig(wsFakeURL(srv), 2), nil, solana.NewWallet().PublicKey(), decodeString)
	require.NoError(t, err)

	var terminal error
	for update := range updates {
		require.Error(t, update.Err)
		terminal = update.Err
	}
	require.Error(t, terminal)
	assert.Contains(t, terminal.Error(), "account subscription failed")
	// initial attempt plus MaxRetries resubscribes
	assert.Equal(t, int32(3), conns.Load())
}
