package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aldrin-exchange/anchor/pkg/config"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// notificationBufferSize bounds how far a slow consumer can fall behind
// before notifications are dropped.
const notificationBufferSize = 64

// LogsFilter defines a logs subscription filter. An empty Mentions list
// subscribes to all non-vote transactions.
type LogsFilter struct {
	// Mentions filters to transactions that mention any of these program IDs
	Mentions []string
	// Commitment overrides the notification commitment level, confirmed when empty
	Commitment config.Commitment
}

// LogNotification is one logs subscription message: the log output of a
// transaction as it reached the subscribed commitment level.
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	Err       interface{}
}

// WebsocketClient subscribes to a Solana node's log stream. One client
// carries one subscription; Close releases it and tears the connection down.
type WebsocketClient struct {
	logger *zap.Logger
	wsURL  string

	requestID int64

	mu             sync.Mutex
	conn           *websocket.Conn
	closed         bool
	subscribed     bool
	subscriptionID uint64
	done           chan struct{}
}

func NewWebsocketClient(wsURL string, logger *zap.Logger) (*WebsocketClient, error) {
	if wsURL == "" {
		return nil, fmt.Errorf("wsURL cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &WebsocketClient{
		logger: logger,
		wsURL:  wsURL,
		done:   make(chan struct{}),
	}, nil
}

// NewWebsocketClientForCluster builds a client pointed at a public cluster's
// WebSocket endpoint.
func NewWebsocketClientForCluster(cluster config.Cluster, logger *zap.Logger) (*WebsocketClient, error) {
	_, wsURL, err := config.ClusterAPIURL(cluster)
	if err != nil {
		return nil, err
	}
	return NewWebsocketClient(wsURL, logger)
}

// wsNotification mirrors a logsNotification frame.
type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context rpcContext `json:"context"`
			Value   struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string    `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Subscription uint64 `json:"subscription"`
	} `json:"params"`
}

// SubscribeLogs subscribes to program logs matching the filter. The returned
// channel delivers notifications until ctx is cancelled, Close is called, or
// the connection drops; it is closed afterwards. Notifications are dropped,
// with a warning, when the consumer falls behind the buffer.
func (wc *WebsocketClient) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	conn, err := wc.dial(ctx)
	if err != nil {
		return nil, err
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = config.CommitmentConfirmed
	}

	var filterParam interface{} = "all"
	if len(filter.Mentions) > 0 {
		filterParam = map[string]interface{}{"mentions": filter.Mentions}
	}

	request := JSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  "logsSubscribe",
		Params:  []interface{}{filterParam, map[string]interface{}{"commitment": commitment}},
		ID:      atomic.AddInt64(&wc.requestID, 1),
	}
	if err := conn.WriteJSON(request); err != nil {
		wc.closeConn()
		return nil, fmt.Errorf("failed to send logsSubscribe: %w", err)
	}

	// The node confirms the subscription before any notification.
	var confirmation JSONRPCResponse
	if err := conn.ReadJSON(&confirmation); err != nil {
		wc.closeConn()
		return nil, fmt.Errorf("failed to read logsSubscribe confirmation: %w", err)
	}
	if confirmation.Error != nil {
		wc.closeConn()
		return nil, &RPCError{Code: confirmation.Error.Code, Message: confirmation.Error.Message}
	}

	var subscriptionID uint64
	if err := json.Unmarshal(confirmation.Result, &subscriptionID); err != nil {
		wc.closeConn()
		return nil, fmt.Errorf("failed to parse subscription id: %w", err)
	}

	wc.mu.Lock()
	wc.subscribed = true
	wc.subscriptionID = subscriptionID
	wc.mu.Unlock()

	wc.logger.Sugar().Infow("Subscribed to program logs",
		zap.Uint64("subscriptionId", subscriptionID),
		zap.Any("mentions", filter.Mentions),
		zap.String("commitment", string(commitment)),
	)

	notifications := make(chan LogNotification, notificationBufferSize)

	go func() {
		select {
		case <-ctx.Done():
			wc.closeConn()
		case <-wc.done:
		}
	}()

	go wc.readLoop(conn, notifications)

	return notifications, nil
}

func (wc *WebsocketClient) readLoop(conn *websocket.Conn, notifications chan<- LogNotification) {
	defer close(notifications)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			wc.mu.Lock()
			closed := wc.closed
			wc.mu.Unlock()
			if !closed {
				wc.logger.Sugar().Warnw("Log subscription read failed", zap.Error(err))
			}
			return
		}

		var notification wsNotification
		if err := json.Unmarshal(message, &notification); err != nil {
			wc.logger.Sugar().Warnw("Discarding unparseable subscription frame", zap.Error(err))
			continue
		}
		if notification.Method != "logsNotification" {
			continue
		}

		value := notification.Params.Result.Value
		select {
		case notifications <- LogNotification{
			Signature: value.Signature,
			Slot:      notification.Params.Result.Context.Slot,
			Logs:      value.Logs,
			Err:       value.Err,
		}:
		default:
			wc.logger.Sugar().Warnw("Dropping log notification, consumer too slow",
				zap.String("signature", value.Signature),
			)
		}
	}
}

func (wc *WebsocketClient) dial(ctx context.Context) (*websocket.Conn, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if wc.conn != nil {
		return nil, fmt.Errorf("client already carries a subscription")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wc.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", wc.wsURL, err)
	}
	wc.conn = conn
	return conn, nil
}

// unsubscribeLocked releases the active subscription with a best-effort
// logsUnsubscribe before the connection goes away. Callers hold wc.mu.
func (wc *WebsocketClient) unsubscribeLocked() {
	if !wc.subscribed {
		return
	}
	wc.subscribed = false

	request := JSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  "logsUnsubscribe",
		Params:  []interface{}{wc.subscriptionID},
		ID:      atomic.AddInt64(&wc.requestID, 1),
	}
	if err := wc.conn.WriteJSON(request); err != nil {
		wc.logger.Sugar().Debugw("Failed to send logsUnsubscribe",
			zap.Uint64("subscriptionId", wc.subscriptionID),
			zap.Error(err),
		)
	}
}

func (wc *WebsocketClient) closeConn() {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.closed {
		return
	}
	wc.closed = true
	close(wc.done)
	if wc.conn != nil {
		wc.unsubscribeLocked()
		_ = wc.conn.Close()
		wc.conn = nil
	}
}

// Close ends the subscription, sending a best-effort logsUnsubscribe before
// the connection is torn down.
func (wc *WebsocketClient) Close() error {
	wc.closeConn()
	return nil
}
