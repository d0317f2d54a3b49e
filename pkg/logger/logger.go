package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger builds the process-wide zap logger. Debug switches the level and
// enables development niceties; everything else follows zap's production
// defaults so output stays machine-parseable JSON.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	if cfg.Debug {
		c.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		c.Development = true
	}
	return c.Build()
}
