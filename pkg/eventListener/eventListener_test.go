package eventListener

import (
	"context"
	"testing"
	"time"

	"github.com/aldrin-exchange/anchor/internal/testUtils"
	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createTestListener(t *testing.T, notifications <-chan solana.LogNotification) *EventListener {
	decoder, err := testUtils.NewFixtureDecoder(zap.NewNop())
	require.NoError(t, err)

	parser := programLogParser.NewProgramLogParser(testUtils.AmmProgramID, decoder.Named(), zap.NewNop())
	return NewEventListener(testUtils.AmmProgramID, parser, notifications, zap.NewNop())
}

func swapRecord(name string) *types.EventRecord {
	return &types.EventRecord{
		Name:      name,
		Data:      &testUtils.SwapEvent{Pool: "AmmPool1111"},
		ProgramID: testUtils.AmmProgramID,
		Signature: "sigDispatch",
		Slot:      100,
	}
}

func TestAddAndRemoveEventListener(t *testing.T) {
	listener := createTestListener(t, nil)

	calls := 0
	first := listener.AddEventListener("SwapEvent", func(*types.EventRecord) { calls++ })
	second := listener.AddEventListener("SwapEvent", func(*types.EventRecord) {})
	assert.NotEqual(t, first, second, "every subscription gets its own id")

	assert.True(t, listener.RemoveEventListener(first))
	assert.False(t, listener.RemoveEventListener(first), "removing twice reports no subscription")

	listener.Dispatch(swapRecord("SwapEvent"))
	assert.Equal(t, 0, calls, "a removed listener must not be invoked")
}

func TestDispatch_FiltersByEventName(t *testing.T) {
	listener := createTestListener(t, nil)

	var swaps, pools, all int
	listener.AddEventListener("SwapEvent", func(*types.EventRecord) { swaps++ })
	listener.AddEventListener("PoolCreatedEvent", func(*types.EventRecord) { pools++ })
	listener.AddEventListener("", func(*types.EventRecord) { all++ })

	listener.Dispatch(swapRecord("SwapEvent"))
	listener.Dispatch(swapRecord("SwapEvent"))
	listener.Dispatch(swapRecord("PoolCreatedEvent"))

	assert.Equal(t, 2, swaps)
	assert.Equal(t, 1, pools)
	assert.Equal(t, 3, all, "the empty name subscribes to everything")
}

func TestProcessNotifications_DecodesAndDispatches(t *testing.T) {
	notifications := make(chan solana.LogNotification, 4)
	listener := createTestListener(t, notifications)

	received := make(chan *types.EventRecord, 4)
	listener.AddEventListener("SwapEvent", func(event *types.EventRecord) { received <- event })

	require.NoError(t, listener.Start(context.Background()))
	defer func() {
		_ = listener.Close()
	}()

	notifications <- solana.LogNotification{
		Signature: "sigLive",
		Slot:      222,
		Logs: testUtils.SingleInvocationStream(testUtils.AmmProgramID,
			testUtils.LogLine("Instruction: Swap"),
			testUtils.DataLine(testUtils.MustEncodeEvent("SwapEvent", testUtils.SwapEvent{Pool: "AmmPool1111", AmountIn: 7})),
		),
	}

	select {
	case event := <-received:
		assert.Equal(t, "SwapEvent", event.Name)
		assert.Equal(t, "sigLive", event.Signature)
		assert.Equal(t, uint64(222), event.Slot)
		assert.Equal(t, 0, event.LogIndex)
		assert.Equal(t, uint64(7), event.Data.(*testUtils.SwapEvent).AmountIn)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched event")
	}
}

func TestProcessNotifications_SkipsFailedTransactions(t *testing.T) {
	notifications := make(chan solana.LogNotification, 4)
	listener := createTestListener(t, notifications)

	received := make(chan *types.EventRecord, 4)
	listener.AddEventListener("", func(event *types.EventRecord) { received <- event })

	require.NoError(t, listener.Start(context.Background()))
	defer func() {
		_ = listener.Close()
	}()

	stream := testUtils.SingleInvocationStream(testUtils.AmmProgramID,
		testUtils.DataLine(testUtils.MustEncodeEvent("SwapEvent", testUtils.SwapEvent{Pool: "AmmPool1111"})),
	)
	notifications <- solana.LogNotification{
		Signature: "sigFailed",
		Slot:      100,
		Logs:      stream,
		Err:       map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}
	notifications <- solana.LogNotification{Signature: "sigOk", Slot: 101, Logs: stream}

	select {
	case event := <-received:
		assert.Equal(t, "sigOk", event.Signature, "the failed transaction must not dispatch")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched event")
	}
	assert.Empty(t, received)
}

func TestProcessNotifications_SkipsMalformedStreams(t *testing.T) {
	notifications := make(chan solana.LogNotification, 4)
	listener := createTestListener(t, notifications)

	received := make(chan *types.EventRecord, 4)
	listener.AddEventListener("", func(event *types.EventRecord) { received <- event })

	require.NoError(t, listener.Start(context.Background()))
	defer func() {
		_ = listener.Close()
	}()

	notifications <- solana.LogNotification{
		Signature: "sigBad",
		Slot:      100,
		Logs:      []string{testUtils.LogLine("stream starts mid execution")},
	}
	notifications <- solana.LogNotification{
		Signature: "sigOk",
		Slot:      101,
		Logs: testUtils.SingleInvocationStream(testUtils.AmmProgramID,
			testUtils.DataLine(testUtils.MustEncodeEvent("SwapEvent", testUtils.SwapEvent{Pool: "AmmPool1111"})),
		),
	}

	select {
	case event := <-received:
		assert.Equal(t, "sigOk", event.Signature, "the malformed stream must be skipped, not fatal")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched event")
	}
}

func TestProcessNotifications_ExitsWhenChannelCloses(t *testing.T) {
	notifications := make(chan solana.LogNotification)
	listener := createTestListener(t, notifications)

	require.NoError(t, listener.Start(context.Background()))
	close(notifications)

	// the dispatch loop exits on its own; Close afterwards is still clean
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, listener.Close())
}
