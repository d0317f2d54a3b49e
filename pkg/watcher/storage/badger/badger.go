package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
	"github.com/aldrin-exchange/anchor/pkg/watcher/watcherConfig"
	badgerv3 "github.com/dgraph-io/badger/v3"
)

// Key prefixes for different data types
const (
	prefixSignature  = "sig:%s:%s"        // programId:signature
	prefixCheckpoint = "checkpoint:%s"    // programId
	prefixEvent      = "event:%s:%s:%06d" // programId:signature:logIndex
	prefixEventScan  = "event:%s:%s:"     // programId:signature
	prefixSigScan    = "sig:%s:"          // programId
)

// BadgerWatcherStore implements the WatcherStore interface using BadgerDB
type BadgerWatcherStore struct {
	db       *badgerv3.DB
	mu       sync.RWMutex
	closed   bool
	closeCh  chan struct{}
	gcTicker *time.Ticker
}

// NewBadgerWatcherStore creates a new BadgerDB-backed watcher store
func NewBadgerWatcherStore(cfg *watcherConfig.BadgerConfig) (*BadgerWatcherStore, error) {
	if cfg == nil {
		return nil, errors.New("badger config is nil")
	}

	opts := badgerv3.DefaultOptions(cfg.Dir)
	opts.Logger = nil // Disable BadgerDB's default logging

	// Apply custom options if needed
	if cfg.InMemory {
		opts.InMemory = true
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumVersionsToKeep > 0 {
		opts.NumVersionsToKeep = cfg.NumVersionsToKeep
	}
	if cfg.NumLevelZeroTables > 0 {
		opts.NumLevelZeroTables = cfg.NumLevelZeroTables
	}
	if cfg.NumLevelZeroTablesStall > 0 {
		opts.NumLevelZeroTablesStall = cfg.NumLevelZeroTablesStall
	}

	db, err := badgerv3.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &BadgerWatcherStore{
		db:      db,
		closeCh: make(chan struct{}),
	}

	// Start garbage collection routine
	s.gcTicker = time.NewTicker(5 * time.Minute)
	go s.runGC()

	return s, nil
}

// runGC runs periodic garbage collection
func (s *BadgerWatcherStore) runGC() {
	for {
		select {
		case <-s.gcTicker.C:
			s.mu.RLock()
			if s.closed {
				s.mu.RUnlock()
				return
			}
			s.mu.RUnlock()

			// Run value log GC
			_ = s.db.RunValueLogGC(0.5)
		case <-s.closeCh:
			return
		}
	}
}

// GetLastProcessedSignature retrieves the polling checkpoint for a program
func (s *BadgerWatcherStore) GetLastProcessedSignature(ctx context.Context, programID string) (*storage.SignatureRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	var record storage.SignatureRecord
	key := fmt.Sprintf(prefixCheckpoint, programID)

	err := s.db.View(func(txn *badgerv3.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badgerv3.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get last processed signature: %w", err)
	}

	return &record, nil
}

// SaveSignature saves a signature record and advances the program's
// checkpoint when the record's slot is at least as high
func (s *BadgerWatcherStore) SaveSignature(ctx context.Context, programID string, record *storage.SignatureRecord) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	if record == nil || record.Signature == "" {
		return fmt.Errorf("%w: record or signature is empty", storage.ErrInvalidRecord)
	}

	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal signature record: %w", err)
	}

	err = s.db.Update(func(txn *badgerv3.Txn) error {
		sigKey := fmt.Sprintf(prefixSignature, programID, record.Signature)
		if err := txn.Set([]byte(sigKey), value); err != nil {
			return err
		}

		// Advance the checkpoint when this record is at least as recent.
		checkpointKey := fmt.Sprintf(prefixCheckpoint, programID)
		item, err := txn.Get([]byte(checkpointKey))
		if err == nil {
			var checkpoint storage.SignatureRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &checkpoint)
			}); err != nil {
				return err
			}
			if record.Slot < checkpoint.Slot {
				return nil
			}
		} else if !errors.Is(err, badgerv3.ErrKeyNotFound) {
			return err
		}

		return txn.Set([]byte(checkpointKey), value)
	})

	if err != nil {
		return fmt.Errorf("failed to save signature record: %w", err)
	}

	return nil
}

// GetSignature retrieves a signature record
func (s *BadgerWatcherStore) GetSignature(ctx context.Context, programID string, signature string) (*storage.SignatureRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	var record storage.SignatureRecord
	key := fmt.Sprintf(prefixSignature, programID, signature)

	err := s.db.View(func(txn *badgerv3.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badgerv3.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get signature record: %w", err)
	}

	return &record, nil
}

// ListSignatures returns all records saved for a program, slot ascending
func (s *BadgerWatcherStore) ListSignatures(ctx context.Context, programID string) ([]*storage.SignatureRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	var records []*storage.SignatureRecord
	prefix := fmt.Sprintf(prefixSigScan, programID)

	err := s.db.View(func(txn *badgerv3.Txn) error {
		opts := badgerv3.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record storage.SignatureRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				continue // Skip on unmarshal error
			}
			records = append(records, &record)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list signature records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Slot != records[j].Slot {
			return records[i].Slot < records[j].Slot
		}
		return records[i].Signature < records[j].Signature
	})
	return records, nil
}

// DeleteSignature removes a signature record
func (s *BadgerWatcherStore) DeleteSignature(ctx context.Context, programID string, signature string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	key := fmt.Sprintf(prefixSignature, programID, signature)

	err := s.db.Update(func(txn *badgerv3.Txn) error {
		// Check if key exists first
		_, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badgerv3.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return txn.Delete([]byte(key))
	})

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete signature record: %w", err)
	}

	return nil
}

// SaveEvents archives decoded events under their transaction signatures
func (s *BadgerWatcherStore) SaveEvents(ctx context.Context, programID string, events []*types.EventRecord) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	err := s.db.Update(func(txn *badgerv3.Txn) error {
		for _, event := range events {
			if event == nil || event.Signature == "" {
				return fmt.Errorf("%w: event or signature is empty", storage.ErrInvalidRecord)
			}

			value, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event record: %w", err)
			}

			key := fmt.Sprintf(prefixEvent, programID, event.Signature, event.LogIndex)
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, storage.ErrInvalidRecord) {
			return err
		}
		return fmt.Errorf("failed to save events: %w", err)
	}

	return nil
}

// ListEventsForSignature returns the archived events of one transaction in
// log order. Event data decoded from storage is generic JSON, not the
// original Go struct.
func (s *BadgerWatcherStore) ListEventsForSignature(ctx context.Context, programID string, signature string) ([]*types.EventRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	var events []*types.EventRecord
	prefix := fmt.Sprintf(prefixEventScan, programID, signature)

	err := s.db.View(func(txn *badgerv3.Txn) error {
		opts := badgerv3.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Keys are zero-padded by log index, so iteration order is log order.
		for it.Rewind(); it.Valid(); it.Next() {
			var event types.EventRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				continue
			}
			events = append(events, &event)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// Close shuts down the store
func (s *BadgerWatcherStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.closeCh)
	s.gcTicker.Stop()

	return s.db.Close()
}
