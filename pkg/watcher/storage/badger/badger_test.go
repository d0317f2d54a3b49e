package badger

import (
	"context"
	"testing"

	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
	"github.com/aldrin-exchange/anchor/pkg/watcher/watcherConfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerWatcherStore(t *testing.T) {
	suite := &storage.TestSuite{
		NewStore: func() (storage.WatcherStore, error) {
			return NewBadgerWatcherStore(&watcherConfig.BadgerConfig{
				InMemory: true,
			})
		},
	}
	suite.Run(t)
}

func TestNewBadgerWatcherStore_NilConfig(t *testing.T) {
	store, err := NewBadgerWatcherStore(nil)
	assert.Error(t, err)
	assert.Nil(t, store)
}

// State written to disk must survive a close and reopen; this is what makes
// restart resume possible.
func TestBadgerWatcherStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	programID := "AmmV2Prog11111111111111111111111111111111111"

	store, err := NewBadgerWatcherStore(&watcherConfig.BadgerConfig{Dir: dir})
	require.NoError(t, err)

	err = store.SaveSignature(ctx, programID, &storage.SignatureRecord{
		Signature:  "sig100",
		Slot:       100,
		Status:     storage.SignatureStatusProcessed,
		EventCount: 1,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerWatcherStore(&watcherConfig.BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	checkpoint, err := reopened.GetLastProcessedSignature(ctx, programID)
	require.NoError(t, err)
	assert.Equal(t, "sig100", checkpoint.Signature)
	assert.Equal(t, uint64(100), checkpoint.Slot)
}

func TestBadgerWatcherStore_DoubleClose(t *testing.T) {
	store, err := NewBadgerWatcherStore(&watcherConfig.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
