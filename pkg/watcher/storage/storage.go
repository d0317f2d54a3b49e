package storage

import (
	"context"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/types"
)

// WatcherStore defines the interface for watcher state persistence
type WatcherStore interface {
	GetLastProcessedSignature(ctx context.Context, programID string) (*SignatureRecord, error)

	SaveSignature(ctx context.Context, programID string, record *SignatureRecord) error
	GetSignature(ctx context.Context, programID string, signature string) (*SignatureRecord, error)
	ListSignatures(ctx context.Context, programID string) ([]*SignatureRecord, error)
	DeleteSignature(ctx context.Context, programID string, signature string) error

	SaveEvents(ctx context.Context, programID string, events []*types.EventRecord) error
	ListEventsForSignature(ctx context.Context, programID string, signature string) ([]*types.EventRecord, error)

	Close() error
}

// SignatureStatus represents the processing outcome of a transaction signature
type SignatureStatus string

const (
	// SignatureStatusProcessed means the transaction's logs were parsed and
	// its events extracted
	SignatureStatusProcessed SignatureStatus = "processed"
	// SignatureStatusSkipped means the transaction was seen but its logs
	// could not be processed; a later pass may retry it
	SignatureStatusSkipped SignatureStatus = "skipped"
)

// SignatureRecord stores per-transaction processing state. The record with
// the highest slot doubles as the polling checkpoint for its program.
type SignatureRecord struct {
	Signature   string
	Slot        uint64
	BlockTime   int64
	Status      SignatureStatus
	EventCount  int
	ProcessedAt time.Time
}
