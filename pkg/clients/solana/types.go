package solana

import (
	"encoding/json"
	"fmt"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	// Jsonrpc specifies the JSON-RPC version (always "2.0")
	Jsonrpc string `json:"jsonrpc"`
	// Method is the JSON-RPC method name
	Method string `json:"method"`
	// Params contains the method parameters
	Params interface{} `json:"params,omitempty"`
	// ID is a unique identifier for the request
	ID int64 `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	// Jsonrpc specifies the JSON-RPC version (always "2.0")
	Jsonrpc string `json:"jsonrpc"`
	// Result contains the method result (present on success)
	Result json.RawMessage `json:"result,omitempty"`
	// Error contains error information (present on error)
	Error *JSONRPCError `json:"error,omitempty"`
	// ID is the request identifier
	ID int64 `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	// Code is the error code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
	// Data contains additional error data
	Data interface{} `json:"data,omitempty"`
}

// RPCError represents an error response from a Solana RPC node.
type RPCError struct {
	// Code is the JSON-RPC or HTTP status code associated with the error
	Code int `json:"code"`
	// Message is the error message describing what went wrong
	Message string `json:"message"`
}

// Error implements the error interface for RPCError.
func (e *RPCError) Error() string {
	return fmt.Sprintf("solana rpc error %d: %s", e.Code, e.Message)
}

// SignaturesForAddressOpts narrows a signature history query. The zero value
// asks for the node's default page of most recent signatures.
type SignaturesForAddressOpts struct {
	// Limit caps the number of returned signatures (node default 1000)
	Limit int `json:"limit,omitempty"`
	// Before starts the page immediately before this signature, exclusive
	Before string `json:"before,omitempty"`
	// Until stops the page at this signature, exclusive
	Until string `json:"until,omitempty"`
}

// SignatureInfo is one entry of an address's signature history, newest first
// as the node returns them.
type SignatureInfo struct {
	// Signature is the transaction signature, base58 encoded
	Signature string `json:"signature"`
	// Slot is the slot the transaction was processed in
	Slot uint64 `json:"slot"`
	// Err is non-nil when the transaction failed on chain
	Err interface{} `json:"err"`
	// Memo is the memo attached to the transaction, if any
	Memo string `json:"memo,omitempty"`
	// BlockTime is the estimated production time as a unix timestamp, 0 when unavailable
	BlockTime int64 `json:"blockTime,omitempty"`
	// ConfirmationStatus is the cluster confirmation status of the transaction
	ConfirmationStatus string `json:"confirmationStatus,omitempty"`
}

// TransactionLogs is the log output of one confirmed transaction.
type TransactionLogs struct {
	// Signature is the transaction signature the logs belong to
	Signature string
	// Slot is the slot the transaction was processed in
	Slot uint64
	// BlockTime is the estimated production time as a unix timestamp, 0 when unavailable
	BlockTime int64
	// LogMessages are the raw log lines in emission order
	LogMessages []string
	// Failed reports whether the transaction errored on chain
	Failed bool
}

// SimulationResult is the outcome of simulating a transaction against the
// node's current bank state.
type SimulationResult struct {
	// Slot is the slot the simulation executed against
	Slot uint64
	// Logs are the raw log lines the simulated execution produced
	Logs []string
	// Err is non-nil when the simulated transaction failed
	Err interface{}
	// UnitsConsumed is the compute budget the simulation spent
	UnitsConsumed uint64
}

// transactionResult mirrors the getTransaction response body.
type transactionResult struct {
	Slot      uint64           `json:"slot"`
	BlockTime *int64           `json:"blockTime"`
	Meta      *transactionMeta `json:"meta"`
}

type transactionMeta struct {
	Err         interface{} `json:"err"`
	LogMessages []string    `json:"logMessages"`
}

// simulateResult mirrors the simulateTransaction response body.
type simulateResult struct {
	Context rpcContext          `json:"context"`
	Value   simulateResultValue `json:"value"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type simulateResultValue struct {
	Err           interface{} `json:"err"`
	Logs          []string    `json:"logs"`
	UnitsConsumed uint64      `json:"unitsConsumed"`
}
