package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{}

// newLogsServer runs a minimal logsSubscribe endpoint: it confirms the
// subscription and then plays the given frames before holding the connection
// open until the client hangs up.
func newLogsServer(t *testing.T, frames []interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req JSONRPCRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "logsSubscribe", req.Method)

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"result":  23784,
			"id":      req.ID,
		}))

		for _, frame := range frames {
			require.NoError(t, conn.WriteJSON(frame))
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func logsNotificationFrame(signature string, slot uint64, logs []string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value": map[string]interface{}{
					"signature": signature,
					"err":       nil,
					"logs":      logs,
				},
			},
			"subscription": 23784,
		},
	}
}

func TestNewWebsocketClient(t *testing.T) {
	t.Run("with empty url", func(t *testing.T) {
		client, err := NewWebsocketClient("", zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("with nil logger", func(t *testing.T) {
		client, err := NewWebsocketClient("ws://127.0.0.1:8900", nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("for a cluster", func(t *testing.T) {
		client, err := NewWebsocketClientForCluster(config.ClusterDevnet, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "wss://api.devnet.solana.com", client.wsURL)
	})

	t.Run("for an unsupported cluster", func(t *testing.T) {
		_, err := NewWebsocketClientForCluster(config.Cluster("betanet"), zap.NewNop())
		assert.Error(t, err)
	})
}

func TestWebsocketClient_SubscribeLogs(t *testing.T) {
	t.Run("delivers log notifications", func(t *testing.T) {
		logs := []string{
			"Program AmmV2Prog11111111111111111111111111111111111 invoke [1]",
			"Program log: Instruction: Swap",
			"Program AmmV2Prog11111111111111111111111111111111111 success",
		}
		server := newLogsServer(t, []interface{}{
			// Unrelated frames must be skipped, not delivered.
			map[string]interface{}{"jsonrpc": "2.0", "method": "slotNotification", "params": map[string]interface{}{}},
			logsNotificationFrame("5igSig111", 5208469, logs),
		})
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = client.Close() }()

		notifications, err := client.SubscribeLogs(context.Background(), LogsFilter{
			Mentions: []string{"AmmV2Prog11111111111111111111111111111111111"},
		})
		require.NoError(t, err)

		select {
		case notification := <-notifications:
			assert.Equal(t, "5igSig111", notification.Signature)
			assert.Equal(t, uint64(5208469), notification.Slot)
			assert.Equal(t, logs, notification.Logs)
			assert.Nil(t, notification.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a log notification")
		}
	})

	t.Run("closes the channel when the context is cancelled", func(t *testing.T) {
		server := newLogsServer(t, nil)
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		notifications, err := client.SubscribeLogs(ctx, LogsFilter{})
		require.NoError(t, err)

		cancel()

		select {
		case _, open := <-notifications:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("channel was not closed after cancellation")
		}
	})

	t.Run("releases the subscription on close", func(t *testing.T) {
		requests := make(chan JSONRPCRequest, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := testUpgrader.Upgrade(w, r, nil)
			require.NoError(t, err)
			defer conn.Close()

			var req JSONRPCRequest
			require.NoError(t, conn.ReadJSON(&req))
			require.NoError(t, conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"result":  23784,
				"id":      req.ID,
			}))

			var next JSONRPCRequest
			if err := conn.ReadJSON(&next); err == nil {
				requests <- next
			}
		}))
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)

		notifications, err := client.SubscribeLogs(context.Background(), LogsFilter{})
		require.NoError(t, err)
		require.NoError(t, client.Close())

		select {
		case req := <-requests:
			assert.Equal(t, "logsUnsubscribe", req.Method)
			assert.Equal(t, []interface{}{float64(23784)}, req.Params)
		case <-time.After(2 * time.Second):
			t.Fatal("no logsUnsubscribe frame before the connection closed")
		}

		// Close alone must wind the subscription down, even with a
		// long-lived context.
		select {
		case _, open := <-notifications:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("channel was not closed after Close")
		}
	})

	t.Run("rejects a second subscription on the same client", func(t *testing.T) {
		server := newLogsServer(t, nil)
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = client.Close() }()

		_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
		require.NoError(t, err)

		_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already carries a subscription")
	})

	t.Run("surfaces a subscription rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := testUpgrader.Upgrade(w, r, nil)
			require.NoError(t, err)
			defer conn.Close()

			var req JSONRPCRequest
			require.NoError(t, conn.ReadJSON(&req))
			require.NoError(t, conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
				"id":      req.ID,
			}))
		}))
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)

		_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
		require.Error(t, err)

		var rpcErr *RPCError
		assert.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32602, rpcErr.Code)
	})

	t.Run("subscribing after close fails", func(t *testing.T) {
		server := newLogsServer(t, nil)
		defer server.Close()

		client, err := NewWebsocketClient(wsURL(server), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, client.Close())

		_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")
	})
}
