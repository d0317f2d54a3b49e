// Package solana provides a client for interacting with Solana RPC nodes.
//
// Solana nodes expose a JSON-RPC API over HTTP for queries and transaction
// simulation, plus a WebSocket API for subscriptions. This package covers the
// slice of both surfaces the event pipeline needs:
//   - Reading the current slot and node health
//   - Paging a program's signature history
//   - Fetching the log output of confirmed transactions
//   - Simulating transactions to preview the logs they would emit
//   - Subscribing to live log output that mentions a program
//
// Example usage:
//
//	cfg, err := solana.NewConfigForCluster(config.ClusterDevnet)
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := solana.NewClient(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	txLogs, err := client.GetTransactionLogs(ctx, signature)
//	if err != nil {
//		log.Fatal(err)
//	}
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrTransactionNotFound is returned when the node has no record of a
// signature, either because it never landed or because it aged out of the
// node's retention window.
var ErrTransactionNotFound = errors.New("transaction not found")

// Client is the node surface the event pipeline depends on. *RPCClient is the
// production implementation; tests substitute a mock.
type Client interface {
	// GetHealth reports the node's own health check, "ok" when healthy.
	GetHealth(ctx context.Context) (string, error)
	// GetSlot returns the node's view of the current slot.
	GetSlot(ctx context.Context) (uint64, error)
	// GetSignaturesForAddress pages the signature history of an address,
	// newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesForAddressOpts) ([]*SignatureInfo, error)
	// GetTransactionLogs fetches the log output of a confirmed transaction.
	GetTransactionLogs(ctx context.Context, signature string) (*TransactionLogs, error)
	// SimulateTransaction executes a serialized transaction against the
	// node's current state without submitting it.
	SimulateTransaction(ctx context.Context, encodedTransaction string) (*SimulationResult, error)
}

// RPCClient is a Solana JSON-RPC client backed by a single HTTP endpoint.
type RPCClient struct {
	// Logger is used for logging client operations and debugging
	Logger *zap.Logger
	// httpClient is the underlying HTTP client used for requests
	httpClient *http.Client
	// config contains the client configuration including RPC URL and timeout
	config *Config
	// requestID is used to generate unique request IDs for JSON-RPC calls
	requestID int64
}

var _ Client = (*RPCClient)(nil)

// Config holds the configuration for the Solana RPC client.
type Config struct {
	// RPCURL is the HTTP endpoint of the node (e.g. "https://api.devnet.solana.com")
	RPCURL string
	// Timeout is the maximum duration for HTTP requests
	Timeout time.Duration
	// Commitment is the confirmation level queries are made at
	Commitment config.Commitment
}

// DefaultConfig returns a configuration pointed at a local test validator
// with a 30-second timeout and confirmed commitment.
func DefaultConfig() *Config {
	return &Config{
		RPCURL:     "http://127.0.0.1:8899",
		Timeout:    30 * time.Second,
		Commitment: config.CommitmentConfirmed,
	}
}

// NewConfigForCluster builds a Config pointed at a public cluster's RPC
// endpoint.
func NewConfigForCluster(cluster config.Cluster) (*Config, error) {
	httpURL, _, err := config.ClusterAPIURL(cluster)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.RPCURL = httpURL
	return cfg, nil
}

// NewClient creates a new Solana RPC client with the given configuration and
// logger. Both cfg and logger must be non-nil. Use DefaultConfig() if you
// want default configuration.
func NewClient(cfg *Config, logger *zap.Logger) (*RPCClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.Commitment != "" && !config.IsValidCommitment(cfg.Commitment) {
		return nil, fmt.Errorf("unsupported commitment %s", cfg.Commitment)
	}

	logger.Sugar().Debugw("Creating new Solana RPC client",
		zap.String("rpcUrl", cfg.RPCURL),
		zap.Duration("timeout", cfg.Timeout),
		zap.String("commitment", string(cfg.Commitment)),
	)

	return &RPCClient{
		Logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config:    cfg,
		requestID: 0,
	}, nil
}

// SetHttpClient allows setting a custom HTTP client for the Solana client.
// This is useful for testing or when custom HTTP client configuration is needed.
func (c *RPCClient) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// GetHealth reports the node's own health check.
// This corresponds to the getHealth JSON-RPC method.
func (c *RPCClient) GetHealth(ctx context.Context) (string, error) {
	var result string
	err := c.makeJSONRPCRequest(ctx, "getHealth", nil, &result)
	if err != nil {
		return "", fmt.Errorf("failed to get node health: %w", err)
	}
	return result, nil
}

// GetSlot returns the current slot at the configured commitment.
// This corresponds to the getSlot JSON-RPC method.
func (c *RPCClient) GetSlot(ctx context.Context) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.config.Commitment},
	}
	var result uint64
	err := c.makeJSONRPCRequest(ctx, "getSlot", params, &result)
	if err != nil {
		return 0, fmt.Errorf("failed to get slot: %w", err)
	}
	return result, nil
}

// GetSignaturesForAddress pages the signature history of an address, newest
// first as the node returns it.
// This corresponds to the getSignaturesForAddress JSON-RPC method.
func (c *RPCClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesForAddressOpts) ([]*SignatureInfo, error) {
	queryOpts := map[string]interface{}{
		"commitment": c.config.Commitment,
	}
	if opts != nil {
		if opts.Limit > 0 {
			queryOpts["limit"] = opts.Limit
		}
		if opts.Before != "" {
			queryOpts["before"] = opts.Before
		}
		if opts.Until != "" {
			queryOpts["until"] = opts.Until
		}
	}

	params := []interface{}{address, queryOpts}
	var result []*SignatureInfo
	err := c.makeJSONRPCRequest(ctx, "getSignaturesForAddress", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", address, err)
	}
	return result, nil
}

// GetTransactionLogs fetches one confirmed transaction and extracts its log
// output. This corresponds to the getTransaction JSON-RPC method.
func (c *RPCClient) GetTransactionLogs(ctx context.Context, signature string) (*TransactionLogs, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     c.config.Commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *transactionResult
	err := c.makeJSONRPCRequest(ctx, "getTransaction", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}
	if result == nil {
		return nil, errors.Wrapf(ErrTransactionNotFound, "signature %s", signature)
	}
	if result.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no metadata", signature)
	}

	txLogs := &TransactionLogs{
		Signature:   signature,
		Slot:        result.Slot,
		LogMessages: result.Meta.LogMessages,
		Failed:      result.Meta.Err != nil,
	}
	if result.BlockTime != nil {
		txLogs.BlockTime = *result.BlockTime
	}
	return txLogs, nil
}

// SimulateTransaction executes a base64-serialized transaction against the
// node's current state without submitting it, returning the logs it would
// emit. This corresponds to the simulateTransaction JSON-RPC method.
func (c *RPCClient) SimulateTransaction(ctx context.Context, encodedTransaction string) (*SimulationResult, error) {
	params := []interface{}{
		encodedTransaction,
		map[string]interface{}{
			"encoding":               "base64",
			"commitment":             c.config.Commitment,
			"replaceRecentBlockhash": true,
		},
	}

	var result simulateResult
	err := c.makeJSONRPCRequest(ctx, "simulateTransaction", params, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}

	return &SimulationResult{
		Slot:          result.Context.Slot,
		Logs:          result.Value.Logs,
		Err:           result.Value.Err,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}

// makeJSONRPCRequest performs a JSON-RPC request to the Solana node.
func (c *RPCClient) makeJSONRPCRequest(ctx context.Context, method string, params interface{}, result interface{}) error {
	// Generate unique request ID
	id := atomic.AddInt64(&c.requestID, 1)

	request := JSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	url := strings.TrimSuffix(c.config.RPCURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.Logger.Sugar().Debugw("Making Solana JSON-RPC request",
		zap.String("method", method),
		zap.String("url", url),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("JSON-RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.Logger.Sugar().Debugw("Solana JSON-RPC response received",
		zap.String("method", method),
		zap.Int("status_code", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return c.handleHTTPError(resp.StatusCode, responseData)
	}

	var jsonRPCResponse JSONRPCResponse
	if err := json.Unmarshal(responseData, &jsonRPCResponse); err != nil {
		return fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err)
	}

	if jsonRPCResponse.Error != nil {
		return &RPCError{
			Code:    jsonRPCResponse.Error.Code,
			Message: jsonRPCResponse.Error.Message,
		}
	}

	// Result stays raw JSON until here so large integers such as slots never
	// round-trip through float64.
	if result != nil && jsonRPCResponse.Result != nil {
		if err := json.Unmarshal(jsonRPCResponse.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return nil
}

// handleHTTPError converts HTTP error responses into appropriate RPCError instances.
func (c *RPCClient) handleHTTPError(statusCode int, responseData []byte) error {
	errorMsg := string(responseData)

	return &RPCError{
		Code:    statusCode,
		Message: fmt.Sprintf("HTTP error %d: %s", statusCode, errorMsg),
	}
}
