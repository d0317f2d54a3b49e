package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func StopAll(components []Lifecycle, logger *zap.Logger, name string) {
	for _, c := range components {
		if err := c.Close(); err != nil {
			// TODO: emit metric
			logger.Sugar().Warnw(
				"Failed to stop component",
				"group",
				name, "type",
				fmt.Sprintf("%T", c),
				"error",
				err,
			)
		}
	}
}

func StartAll(components []Lifecycle, ctx context.Context, logger *zap.Logger, name string) error {
	for _, c := range components {
		logger.Sugar().Infow("Starting component", "group", name, "type", fmt.Sprintf("%T", c))
		if err := c.Start(ctx); err != nil {
			// TODO: emit metric
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
	}
	return nil
}
