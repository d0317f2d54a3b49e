package eventSimulator

import (
	"context"

	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/eventDecoder"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EventSimulator extracts the events a transaction would emit by running it
// through simulation instead of sending it. Useful for quoting swaps and
// previewing state changes without paying for the transaction.
type EventSimulator struct {
	client    solana.Client
	logParser *programLogParser.ProgramLogParser
	programID string
	logger    *zap.Logger
}

func NewEventSimulator(
	client solana.Client,
	logParser *programLogParser.ProgramLogParser,
	programID string,
	logger *zap.Logger,
) *EventSimulator {
	return &EventSimulator{
		client:    client,
		logParser: logParser,
		programID: programID,
		logger:    logger,
	}
}

// SimulateEvents runs the base64-encoded wire transaction through simulation
// and returns the events the target program would emit, in log order. The
// records carry the simulation slot and no signature since nothing landed on
// chain.
func (es *EventSimulator) SimulateEvents(ctx context.Context, encodedTransaction string) ([]*types.EventRecord, error) {
	result, err := es.client.SimulateTransaction(ctx, encodedTransaction)
	if err != nil {
		return nil, err
	}
	if result.Err != nil {
		return nil, errors.Errorf("simulated transaction failed: %v", result.Err)
	}

	parsed, err := es.logParser.ParseLogs(result.Logs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse simulated logs")
	}

	records := make([]*types.EventRecord, 0, len(parsed))
	for i, raw := range parsed {
		named, ok := raw.(*eventDecoder.NamedEvent)
		if !ok {
			es.logger.Sugar().Warnw("Skipping simulated event without a registered name")
			continue
		}
		record, err := types.NewEventRecord(named.Name, named.Data, es.programID, "", result.Slot)
		if err != nil {
			es.logger.Sugar().Warnw("Skipping invalid simulated event record", zap.Error(err))
			continue
		}
		record.LogIndex = i
		records = append(records, record)
	}

	es.logger.Sugar().Debugw("Simulated transaction events",
		zap.Int("events", len(records)),
		zap.Uint64("slot", result.Slot),
		zap.Uint64("unitsConsumed", result.UnitsConsumed),
	)
	return records, nil
}
