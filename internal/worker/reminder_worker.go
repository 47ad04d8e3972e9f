package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReminderScanner runs one reminder pass and reports how many were sent.
type ReminderScanner interface {
	ScanAndSend(ctx context.Context) (int, error)
}

// ReminderWorker runs the reminder scan on a fixed interval.
type ReminderWorker struct {
	scanner  ReminderScanner
	interval time.Duration
	logger   *zap.Logger
}

// NewReminderWorker builds a worker. A non-positive interval defaults to five minutes.
func NewReminderWorker(scanner ReminderScanner, interval time.Duration, logger *zap.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderWorker{scanner: scanner, interval: interval, logger: logger}
}

// Run scans immediately and then on every tick until ctx is done.
func (w *ReminderWorker) Run(ctx context.Context) {
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	sent, err := w.scanner.ScanAndSend(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("reminder scan failed", zap.Int("sent", sent), zap.Error(err))
		return
	}
	if sent > 0 {
		w.logger.Info("reminders sent", zap.Int("count", sent))
	}
}
