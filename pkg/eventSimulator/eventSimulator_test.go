package eventSimulator

import (
	"context"
	"errors"
	"testing"

	"github.com/aldrin-exchange/anchor/internal/testUtils"
	"github.com/aldrin-exchange/anchor/mocks"
	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const encodedTransaction = "AQABAgMEBQYHCAkK"

func createTestSimulator(t *testing.T, client solana.Client) *EventSimulator {
	decoder, err := testUtils.NewFixtureDecoder(zap.NewNop())
	require.NoError(t, err)

	parser := programLogParser.NewProgramLogParser(testUtils.AmmProgramID, decoder.Named(), zap.NewNop())
	return NewEventSimulator(client, parser, testUtils.AmmProgramID, zap.NewNop())
}

func TestSimulateEvents_ReturnsDecodedEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockClient := mocks.NewMockClient(ctrl)

	logs := testUtils.SingleInvocationStream(testUtils.AmmProgramID,
		testUtils.LogLine("Instruction: Swap"),
		testUtils.DataLine(testUtils.MustEncodeEvent("SwapEvent", testUtils.SwapEvent{Pool: "AmmPool1111", AmountIn: 5, AmountOut: 4})),
		testUtils.DataLine(testUtils.MustEncodeEvent("PoolCreatedEvent", testUtils.PoolCreatedEvent{Pool: "AmmPool1111", Fee: 30})),
	)
	mockClient.EXPECT().
		SimulateTransaction(ctx, encodedTransaction).
		Return(&solana.SimulationResult{Slot: 4242, Logs: logs, UnitsConsumed: 2366}, nil)

	simulator := createTestSimulator(t, mockClient)
	records, err := simulator.SimulateEvents(ctx, encodedTransaction)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "SwapEvent", records[0].Name)
	assert.Equal(t, "PoolCreatedEvent", records[1].Name)
	assert.Equal(t, uint64(4242), records[0].Slot)
	assert.Empty(t, records[0].Signature, "a simulated transaction never lands on chain")
	assert.Equal(t, 0, records[0].LogIndex)
	assert.Equal(t, 1, records[1].LogIndex)
	assert.Equal(t, uint64(4), records[0].Data.(*testUtils.SwapEvent).AmountOut)
}

func TestSimulateEvents_PropagatesClientError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().
		SimulateTransaction(ctx, encodedTransaction).
		Return(nil, errors.New("rpc unavailable"))

	simulator := createTestSimulator(t, mockClient)
	records, err := simulator.SimulateEvents(ctx, encodedTransaction)
	require.Error(t, err)
	assert.Nil(t, records)
}

func TestSimulateEvents_RejectsFailedSimulation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().
		SimulateTransaction(ctx, encodedTransaction).
		Return(&solana.SimulationResult{Slot: 4242, Err: "BlockhashNotFound"}, nil)

	simulator := createTestSimulator(t, mockClient)
	_, err := simulator.SimulateEvents(ctx, encodedTransaction)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated transaction failed")
}

func TestSimulateEvents_PropagatesMalformedLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().
		SimulateTransaction(ctx, encodedTransaction).
		Return(&solana.SimulationResult{
			Slot: 4242,
			Logs: []string{testUtils.LogLine("stream starts mid execution")},
		}, nil)

	simulator := createTestSimulator(t, mockClient)
	_, err := simulator.SimulateEvents(ctx, encodedTransaction)
	require.Error(t, err)
	assert.ErrorIs(t, err, programLogParser.ErrMalformedLogStream)
}
