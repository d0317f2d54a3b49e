package watcher

import (
	"context"

	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// logBridge owns one live log subscription and pumps its notifications into
// the listener's queue. Keeping the subscription out of the listener leaves
// the listener a plain channel consumer that tests can feed directly.
type logBridge struct {
	logger   *zap.Logger
	wsClient *solana.WebsocketClient
	filter   solana.LogsFilter
	queue    chan solana.LogNotification

	ctx    context.Context
	cancel context.CancelFunc
}

func newLogBridge(
	wsClient *solana.WebsocketClient,
	filter solana.LogsFilter,
	queue chan solana.LogNotification,
	logger *zap.Logger,
) *logBridge {
	return &logBridge{
		logger:   logger,
		wsClient: wsClient,
		filter:   filter,
		queue:    queue,
	}
}

func (lb *logBridge) Start(ctx context.Context) error {
	lb.ctx, lb.cancel = context.WithCancel(ctx)

	notifications, err := lb.wsClient.SubscribeLogs(lb.ctx, lb.filter)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to program logs")
	}

	go lb.pump(notifications)
	return nil
}

func (lb *logBridge) Close() error {
	if lb.cancel != nil {
		lb.cancel()
	}
	return lb.wsClient.Close()
}

// pump forwards notifications until the subscription or the context ends,
// then closes the queue so the listener drains and exits.
func (lb *logBridge) pump(notifications <-chan solana.LogNotification) {
	defer close(lb.queue)

	for {
		select {
		case <-lb.ctx.Done():
			lb.logger.Info("Log bridge context cancelled, exiting pump loop")
			return
		case notification, ok := <-notifications:
			if !ok {
				lb.logger.Info("Log subscription closed, exiting pump loop")
				return
			}
			select {
			case lb.queue <- notification:
			case <-lb.ctx.Done():
				lb.logger.Info("Log bridge context cancelled, exiting pump loop")
				return
			}
		}
	}
}
