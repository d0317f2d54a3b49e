package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventRecord(t *testing.T) {
	t.Run("builds a record from decoded data", func(t *testing.T) {
		record, err := NewEventRecord("SwapEvent", map[string]uint64{"amountIn": 5}, "AmmV2Prog1111", "5igSig111", 1234)
		require.NoError(t, err)
		assert.Equal(t, "SwapEvent", record.Name)
		assert.Equal(t, uint64(1234), record.Slot)
		assert.Equal(t, "5igSig111", record.Signature)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		_, err := NewEventRecord("", struct{}{}, "AmmV2Prog1111", "5igSig111", 1)
		assert.Error(t, err)
	})

	t.Run("rejects nil data", func(t *testing.T) {
		_, err := NewEventRecord("SwapEvent", nil, "AmmV2Prog1111", "5igSig111", 1)
		assert.Error(t, err)
	})

	t.Run("rejects missing program id", func(t *testing.T) {
		_, err := NewEventRecord("SwapEvent", struct{}{}, "", "5igSig111", 1)
		assert.Error(t, err)
	})
}

func TestEventRecord_ObservedAt(t *testing.T) {
	record := &EventRecord{Name: "SwapEvent", BlockTime: 1700000000}
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), record.ObservedAt())

	record.BlockTime = 0
	assert.True(t, record.ObservedAt().IsZero())
}

func TestEventRecord_String(t *testing.T) {
	record := &EventRecord{Name: "SwapEvent", Signature: "5igSig111", LogIndex: 2}
	assert.Equal(t, "SwapEvent@5igSig111[2]", record.String())
}
