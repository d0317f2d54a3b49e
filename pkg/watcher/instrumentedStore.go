package watcher

import (
	"context"

	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
)

// instrumentedStore decorates a WatcherStore with the watcher's counters.
// Writes count only after the underlying store accepts them, so the metrics
// track what was actually persisted.
type instrumentedStore struct {
	storage.WatcherStore
	programName string
	metrics     *Metrics
}

func newInstrumentedStore(inner storage.WatcherStore, programName string, metrics *Metrics) *instrumentedStore {
	return &instrumentedStore{
		WatcherStore: inner,
		programName:  programName,
		metrics:      metrics,
	}
}

func (s *instrumentedStore) SaveSignature(ctx context.Context, programID string, record *storage.SignatureRecord) error {
	if err := s.WatcherStore.SaveSignature(ctx, programID, record); err != nil {
		return err
	}
	s.metrics.TransactionsRecorded.WithLabelValues(s.programName, string(record.Status)).Inc()
	return nil
}

func (s *instrumentedStore) SaveEvents(ctx context.Context, programID string, events []*types.EventRecord) error {
	if err := s.WatcherStore.SaveEvents(ctx, programID, events); err != nil {
		return err
	}
	for _, event := range events {
		s.metrics.EventsExtracted.WithLabelValues(s.programName, event.Name).Inc()
	}
	return nil
}
