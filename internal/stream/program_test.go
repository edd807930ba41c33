package stream

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func programNotification(slot uint64, account solana.PublicKey, data []byte) []byte {
	return []byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"programNotification","params":{"result":{"context":{"slot":%d},"value":{"pubkey":%q,"account":{"lamports":1,"owner":%q,"data":[%q,"base64"],"executable":false,"rentEpoch":0}}},"subscription":1}}`,
		slot, account, targetProgram, base64.StdEncoding.EncodeToString(data)))
}

func TestProgram_DeliversTypedUpdates(t *testing.T) {
	accountA := solana.NewWallet().PublicKey()
	accountB := solana.NewWallet().PublicKey()

	var mu sync.Mutex
	var subscribes []subscribeRequest

	srv, _ := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {
		mu.Lock()
		subscribes = append(subscribes, req)
		mu.Unlock()

		_ = conn.WriteMessage(websocket.TextMessage, programNotification(10, accountA, []byte("pool-a")))
		deliverThenDrop(conn, programNotification(11, accountB, []byte("pool-b")))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := Program[string](ctx, quietConfig(wsFakeURL(srv), 1), targetProgram, 243, decodeString)
	require.NoError(t, err)

	first := <-updates
	require.NoError(t, first.Err)
	assert.Equal(t, accountA, first.Account)
	assert.Equal(t, uint64(10), first.Slot)
	assert.Equal(t, "pool-a", first.Value)

	second := <-updates
	require.NoError(t, second.Err)
	assert.Equal(t, accountB, second.Account)
	assert.Equal(t, "pool-b", second.Value)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, subscribes)
	assert.Equal(t, "programSubscribe", subscribes[0].Method)

	// the second param carries the options, data-size filter included
	require.Len(t, subscribes[0].Params, 2)
	assert.Contains(t, string(subscribes[0].Params[1]), `"dataSize":243`)
}

func TestProgram_GivesUpAfterRetries(t *testing.T) {
	// connections drop straight after the ack; no update ever lands
	srv, conns := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := Program[string](ctx, quietConfig(wsFakeURL(srv), 2), targetProgram, 0, decodeString)
	require.NoError(t, err)

	var terminal error
	for update := range updates {
		require.Error(t, update.Err)
		terminal = update.Err
	}
	require.Error(t, terminal)
	assert.Contains(t, terminal.Error(), "program subscription failed after 2 retries")
	assert.Equal(t, int32(3), conns.Load())
}

func TestProgram_RecoversAcrossDrops(t *testing.T) {
	account := solana.NewWallet().PublicKey()

	srv, conns := wsFakeServer(t, func(conn *websocket.Conn, n int, req subscribeRequest) {
		deliverThenDrop(conn, programNotification(uint64(n), account, []byte(fmt.Sprintf("gen-%d", n))))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := Program[string](ctx, quietConfig(wsFakeURL(srv), 1), targetProgram, 0, decodeString)
	require.NoError(t, err)

	// three deliveries need two resubscribes; a counter that never reset
	// would allow at most MaxRetries+1 connections
	var values []string
	for len(values) < 3 {
		update := <-updates
		require.NoError(t, update.Err)
		values = append(values, update.Value)
	}
	cancel()

	assert.Equal(t, []string{"gen-1", "gen-2", "gen-3"}, values)
	assert.GreaterOrEqual(t, conns.Load(), int32(3))
}
