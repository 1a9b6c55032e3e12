package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to a slog logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, message, title string, opts Options) error {
	opts = opts.withDefaults()
	level := slog.LevelWarn
	if opts.Level == LEVEL_INFO {
		level = slog.LevelInfo
	}
	l.logger.Log(ctx, level, title,
		"message", message,
		"alertId", opts.AlertID,
		"module", opts.Module,
		"count", opts.Count,
	)
	return nil
}
