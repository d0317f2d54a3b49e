package transactionPoller

import (
	"context"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/eventDecoder"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DistributeEventFunc receives every decoded event after its transaction has
// been committed to storage.
type DistributeEventFunc func(event *types.EventRecord) error

type TransactionPollerConfig struct {
	ProgramID       string
	PollingInterval time.Duration
	BatchSize       int
	MaxErrorCount   int
}

func NewTransactionPollerDefaultConfig(programID string) *TransactionPollerConfig {
	return &TransactionPollerConfig{
		ProgramID:       programID,
		PollingInterval: 5 * time.Second,
		BatchSize:       100,
		MaxErrorCount:   5,
	}
}

// TransactionPoller walks a program's signature history on an interval,
// decodes events out of each confirmed transaction's logs and records both
// the signature and its events in storage. Decoded events are handed to the
// distribute callback after the transaction is committed.
type TransactionPoller struct {
	client          solana.Client
	store           storage.WatcherStore
	logParser       *programLogParser.ProgramLogParser
	distributeEvent DistributeEventFunc
	config          *TransactionPollerConfig
	logger          *zap.Logger
	ctx             context.Context
	cancel          context.CancelFunc
}

func NewTransactionPoller(
	client solana.Client,
	store storage.WatcherStore,
	logParser *programLogParser.ProgramLogParser,
	def DistributeEventFunc,
	config *TransactionPollerConfig,
	logger *zap.Logger,
) *TransactionPoller {
	return &TransactionPoller{
		client:          client,
		store:           store,
		logParser:       logParser,
		distributeEvent: def,
		config:          config,
		logger:          logger,
	}
}

func (tp *TransactionPoller) Start(ctx context.Context) error {
	tp.logger.Sugar().Infow("Starting transaction poller",
		zap.String("programId", tp.config.ProgramID),
		zap.Duration("pollingInterval", tp.config.PollingInterval),
		zap.Int("batchSize", tp.config.BatchSize),
	)
	tp.ctx, tp.cancel = context.WithCancel(ctx)

	go tp.pollForTransactions()
	return nil
}

func (tp *TransactionPoller) Close() error {
	tp.logger.Info("Stopping transaction poller")
	if tp.cancel != nil {
		tp.cancel()
	}
	return nil
}

func (tp *TransactionPoller) pollForTransactions() {
	ticker := time.NewTicker(tp.config.PollingInterval)
	defer ticker.Stop()

	errorCount := 0
	for {
		select {
		case <-tp.ctx.Done():
			tp.logger.Info("Transaction poller context cancelled, exiting poll loop")
			return
		case <-ticker.C:
			if err := tp.processNextBatch(tp.ctx); err != nil {
				tp.logger.Sugar().Errorw("Failed to process signature batch", zap.Error(err))
				errorCount++
				if errorCount > tp.config.MaxErrorCount {
					tp.logger.Error("Too many consecutive errors, stopping poll loop")
					return
				}
				continue
			}
			errorCount = 0
		}
	}
}

func (tp *TransactionPoller) processNextBatch(ctx context.Context) error {
	signatures, err := tp.fetchNewSignatures(ctx)
	if err != nil {
		return err
	}
	if len(signatures) == 0 {
		tp.logger.Sugar().Debugw("No new signatures", zap.String("programId", tp.config.ProgramID))
		return nil
	}

	tp.logger.Sugar().Infow("New program signatures:",
		zap.String("programId", tp.config.ProgramID),
		zap.Int("count", len(signatures)),
	)

	// signatures come back newest first; replay them in on-chain order
	for i := len(signatures) - 1; i >= 0; i-- {
		if err := tp.processSignature(ctx, signatures[i]); err != nil {
			return err
		}
	}
	return nil
}

// fetchNewSignatures returns every signature newer than the stored
// checkpoint, newest first. On a fresh store only the latest page is taken
// so startup does not replay the program's entire history.
func (tp *TransactionPoller) fetchNewSignatures(ctx context.Context) ([]*solana.SignatureInfo, error) {
	checkpoint, err := tp.store.GetLastProcessedSignature(ctx, tp.config.ProgramID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to load signature checkpoint")
	}

	opts := &solana.SignaturesForAddressOpts{
		Limit: tp.config.BatchSize,
	}
	if checkpoint == nil {
		return tp.client.GetSignaturesForAddress(ctx, tp.config.ProgramID, opts)
	}
	opts.Until = checkpoint.Signature

	var signatures []*solana.SignatureInfo
	for {
		page, err := tp.client.GetSignaturesForAddress(ctx, tp.config.ProgramID, opts)
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, page...)
		if tp.config.BatchSize == 0 || len(page) < tp.config.BatchSize {
			return signatures, nil
		}
		opts.Before = page[len(page)-1].Signature
	}
}

func (tp *TransactionPoller) processSignature(ctx context.Context, info *solana.SignatureInfo) error {
	sugar := tp.logger.Sugar()

	if info.Err != nil {
		return tp.markSkipped(ctx, info, "transaction failed on chain")
	}

	txLogs, err := tp.client.GetTransactionLogs(ctx, info.Signature)
	if err != nil {
		if errors.Is(err, solana.ErrTransactionNotFound) {
			return tp.markSkipped(ctx, info, "transaction not found")
		}
		return err
	}
	if txLogs.Failed {
		return tp.markSkipped(ctx, info, "transaction failed on chain")
	}

	parsed, err := tp.logParser.ParseLogs(txLogs.LogMessages)
	if err != nil {
		sugar.Warnw("Failed to parse transaction logs",
			zap.String("signature", info.Signature),
			zap.Error(err),
		)
		return tp.markSkipped(ctx, info, "unparseable log stream")
	}

	records := make([]*types.EventRecord, 0, len(parsed))
	for i, raw := range parsed {
		named, ok := raw.(*eventDecoder.NamedEvent)
		if !ok {
			sugar.Warnw("Skipping event without a registered name",
				zap.String("signature", info.Signature),
			)
			continue
		}
		record, err := types.NewEventRecord(named.Name, named.Data, tp.config.ProgramID, info.Signature, info.Slot)
		if err != nil {
			sugar.Warnw("Skipping invalid event record",
				zap.String("signature", info.Signature),
				zap.Error(err),
			)
			continue
		}
		record.BlockTime = txLogs.BlockTime
		record.LogIndex = i
		records = append(records, record)
	}

	if len(records) > 0 {
		if err := tp.store.SaveEvents(ctx, tp.config.ProgramID, records); err != nil {
			return errors.Wrap(err, "failed to save events")
		}
	}
	if err := tp.store.SaveSignature(ctx, tp.config.ProgramID, &storage.SignatureRecord{
		Signature:  info.Signature,
		Slot:       info.Slot,
		BlockTime:  txLogs.BlockTime,
		Status:     storage.SignatureStatusProcessed,
		EventCount: len(records),
	}); err != nil {
		return errors.Wrap(err, "failed to record signature")
	}

	for _, record := range records {
		tp.distribute(record)
	}
	return nil
}

func (tp *TransactionPoller) markSkipped(ctx context.Context, info *solana.SignatureInfo, reason string) error {
	tp.logger.Sugar().Debugw("Skipping transaction",
		zap.String("signature", info.Signature),
		zap.String("reason", reason),
	)
	if err := tp.store.SaveSignature(ctx, tp.config.ProgramID, &storage.SignatureRecord{
		Signature: info.Signature,
		Slot:      info.Slot,
		BlockTime: info.BlockTime,
		Status:    storage.SignatureStatusSkipped,
	}); err != nil {
		return errors.Wrap(err, "failed to record skipped signature")
	}
	return nil
}

// distribute hands a committed event to the callback. The transaction is
// already checkpointed at this point, so a failing consumer is logged rather
// than allowed to wedge the poll loop.
func (tp *TransactionPoller) distribute(record *types.EventRecord) {
	if tp.distributeEvent == nil {
		return
	}
	if err := tp.distributeEvent(record); err != nil {
		tp.logger.Sugar().Warnw("Failed to distribute event",
			zap.String("eventName", record.Name),
			zap.String("signature", record.Signature),
			zap.Int("logIndex", record.LogIndex),
			zap.Error(err),
		)
		return
	}
	tp.logger.Sugar().Debugw("Distributed event",
		zap.String("eventName", record.Name),
		zap.String("signature", record.Signature),
		zap.Int("logIndex", record.LogIndex),
	)
}
