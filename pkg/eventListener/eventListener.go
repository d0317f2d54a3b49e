package eventListener

import (
	"context"
	"sync"

	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/eventDecoder"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventCallback receives each decoded event matching a subscription.
type EventCallback func(event *types.EventRecord)

type subscription struct {
	id        string
	eventName string
	callback  EventCallback
}

// EventListener turns live log notifications into decoded events and fans
// them out to callbacks registered by event name. Registering with an empty
// event name subscribes to every event the target program emits.
type EventListener struct {
	logger        *zap.Logger
	programID     string
	logParser     *programLogParser.ProgramLogParser
	notifications <-chan solana.LogNotification

	mu            sync.RWMutex
	subscriptions map[string]*subscription

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEventListener(
	programID string,
	logParser *programLogParser.ProgramLogParser,
	notifications <-chan solana.LogNotification,
	logger *zap.Logger,
) *EventListener {
	return &EventListener{
		logger:        logger,
		programID:     programID,
		logParser:     logParser,
		notifications: notifications,
		subscriptions: make(map[string]*subscription),
	}
}

// AddEventListener registers a callback for events with the given name and
// returns the subscription id used to remove it again.
func (el *EventListener) AddEventListener(eventName string, callback EventCallback) string {
	id := uuid.New().String()

	el.mu.Lock()
	el.subscriptions[id] = &subscription{
		id:        id,
		eventName: eventName,
		callback:  callback,
	}
	el.mu.Unlock()

	el.logger.Sugar().Infow("Registered event listener",
		zap.String("listenerId", id),
		zap.String("eventName", eventName),
	)
	return id
}

// RemoveEventListener drops the subscription with the given id. It reports
// whether a subscription was actually removed.
func (el *EventListener) RemoveEventListener(id string) bool {
	el.mu.Lock()
	_, found := el.subscriptions[id]
	delete(el.subscriptions, id)
	el.mu.Unlock()

	if found {
		el.logger.Sugar().Infow("Removed event listener", zap.String("listenerId", id))
	}
	return found
}

func (el *EventListener) Start(ctx context.Context) error {
	el.logger.Sugar().Infow("Starting event listener",
		zap.String("programId", el.programID),
	)
	el.ctx, el.cancel = context.WithCancel(ctx)

	go el.processNotifications()
	return nil
}

func (el *EventListener) Close() error {
	el.logger.Info("Stopping event listener")
	if el.cancel != nil {
		el.cancel()
	}
	return nil
}

func (el *EventListener) processNotifications() {
	for {
		select {
		case <-el.ctx.Done():
			el.logger.Info("Event listener context cancelled, exiting dispatch loop")
			return
		case notification, ok := <-el.notifications:
			if !ok {
				el.logger.Info("Notification channel closed, exiting dispatch loop")
				return
			}
			el.processNotification(&notification)
		}
	}
}

// processNotification extracts events from one transaction's logs and
// dispatches them. A notification that fails extraction is logged and
// skipped so the stream keeps flowing.
func (el *EventListener) processNotification(notification *solana.LogNotification) {
	sugar := el.logger.Sugar()

	if notification.Err != nil {
		sugar.Debugw("Skipping failed transaction",
			zap.String("signature", notification.Signature),
		)
		return
	}

	parsed, err := el.logParser.ParseLogs(notification.Logs)
	if err != nil {
		sugar.Warnw("Failed to parse notification logs",
			zap.String("signature", notification.Signature),
			zap.Error(err),
		)
		return
	}

	for i, raw := range parsed {
		named, ok := raw.(*eventDecoder.NamedEvent)
		if !ok {
			sugar.Warnw("Skipping event without a registered name",
				zap.String("signature", notification.Signature),
			)
			continue
		}
		record, err := types.NewEventRecord(named.Name, named.Data, el.programID, notification.Signature, notification.Slot)
		if err != nil {
			sugar.Warnw("Skipping invalid event record",
				zap.String("signature", notification.Signature),
				zap.Error(err),
			)
			continue
		}
		record.LogIndex = i
		el.Dispatch(record)
	}
}

// Dispatch hands an event record to every matching subscription. Callbacks
// run on the caller's goroutine, so they are expected to return quickly.
func (el *EventListener) Dispatch(event *types.EventRecord) {
	el.mu.RLock()
	matched := make([]*subscription, 0, len(el.subscriptions))
	for _, sub := range el.subscriptions {
		if sub.eventName == "" || sub.eventName == event.Name {
			matched = append(matched, sub)
		}
	}
	el.mu.RUnlock()

	for _, sub := range matched {
		sub.callback(event)
	}

	el.logger.Sugar().Debugw("Dispatched event",
		zap.String("eventName", event.Name),
		zap.String("signature", event.Signature),
		zap.Int("listeners", len(matched)),
	)
}
