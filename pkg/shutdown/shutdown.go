package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CreateGracefulShutdownChannel returns a channel that receives SIGINT and
// SIGTERM.
func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdownNotifier := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdownNotifier, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdownNotifier
}

// ListenForShutdown blocks until a shutdown signal arrives, runs handler, and
// then waits for done (or the timeout) before returning so in-flight work can
// drain.
func ListenForShutdown(
	gracefulShutdownNotifier chan os.Signal,
	done chan bool,
	handler func(),
	timeout time.Duration,
	logger *zap.Logger,
) {
	sig := <-gracefulShutdownNotifier
	logger.Sugar().Infow("Received shutdown signal", "signal", sig.String())

	handler()

	select {
	case <-done:
		logger.Sugar().Infow("Shutdown completed cleanly")
	case <-time.After(timeout):
		logger.Sugar().Infow("Shutdown grace period elapsed, exiting")
	}
}
