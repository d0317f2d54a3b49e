package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
)

// InMemoryWatcherStore implements WatcherStore interface with in-memory storage
type InMemoryWatcherStore struct {
	mu          sync.RWMutex
	closed      bool
	checkpoints map[string]*storage.SignatureRecord
	signatures  map[string]*storage.SignatureRecord
	events      map[string][]*types.EventRecord
}

// NewInMemoryWatcherStore creates a new in-memory watcher store
func NewInMemoryWatcherStore() *InMemoryWatcherStore {
	return &InMemoryWatcherStore{
		checkpoints: make(map[string]*storage.SignatureRecord),
		signatures:  make(map[string]*storage.SignatureRecord),
		events:      make(map[string][]*types.EventRecord),
	}
}

// makeSignatureKey creates a composite key for signature storage
func makeSignatureKey(programID string, signature string) string {
	return fmt.Sprintf("%s:%s", programID, signature)
}

// GetLastProcessedSignature returns the highest-slot record saved for a program
func (s *InMemoryWatcherStore) GetLastProcessedSignature(ctx context.Context, programID string) (*storage.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	checkpoint, exists := s.checkpoints[programID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return checkpoint, nil
}

// SaveSignature saves a signature record and advances the program's
// checkpoint when the record's slot is at least as high
func (s *InMemoryWatcherStore) SaveSignature(ctx context.Context, programID string, record *storage.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	if record == nil || record.Signature == "" {
		return fmt.Errorf("%w: record or signature is empty", storage.ErrInvalidRecord)
	}

	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}

	s.signatures[makeSignatureKey(programID, record.Signature)] = record

	checkpoint, exists := s.checkpoints[programID]
	if !exists || record.Slot >= checkpoint.Slot {
		s.checkpoints[programID] = record
	}
	return nil
}

// GetSignature retrieves a signature record
func (s *InMemoryWatcherStore) GetSignature(ctx context.Context, programID string, signature string) (*storage.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	record, exists := s.signatures[makeSignatureKey(programID, signature)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return record, nil
}

// ListSignatures returns all records saved for a program, slot ascending
func (s *InMemoryWatcherStore) ListSignatures(ctx context.Context, programID string) ([]*storage.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	prefix := programID + ":"
	var records []*storage.SignatureRecord
	for key, record := range s.signatures {
		if strings.HasPrefix(key, prefix) {
			records = append(records, record)
		}
	}

	sortSignatureRecords(records)
	return records, nil
}

// DeleteSignature removes a signature record from storage
func (s *InMemoryWatcherStore) DeleteSignature(ctx context.Context, programID string, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	key := makeSignatureKey(programID, signature)
	if _, exists := s.signatures[key]; !exists {
		return storage.ErrNotFound
	}

	delete(s.signatures, key)
	return nil
}

// SaveEvents archives decoded events under their transaction signatures
func (s *InMemoryWatcherStore) SaveEvents(ctx context.Context, programID string, events []*types.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	for _, event := range events {
		if event == nil || event.Signature == "" {
			return fmt.Errorf("%w: event or signature is empty", storage.ErrInvalidRecord)
		}
		key := makeSignatureKey(programID, event.Signature)
		s.events[key] = append(s.events[key], event)
	}
	return nil
}

// ListEventsForSignature returns the archived events of one transaction in
// log order
func (s *InMemoryWatcherStore) ListEventsForSignature(ctx context.Context, programID string, signature string) ([]*types.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	events := s.events[makeSignatureKey(programID, signature)]
	sorted := make([]*types.EventRecord, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LogIndex < sorted[j].LogIndex
	})
	return sorted, nil
}

// Close closes the store. Closing an already closed store is a no-op.
func (s *InMemoryWatcherStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	// Clear all maps
	s.checkpoints = nil
	s.signatures = nil
	s.events = nil

	return nil
}

func sortSignatureRecords(records []*storage.SignatureRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Slot != records[j].Slot {
			return records[i].Slot < records[j].Slot
		}
		return records[i].Signature < records[j].Signature
	})
}
