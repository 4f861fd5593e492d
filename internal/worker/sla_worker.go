package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-desk/internal/service"
)

// SLAWorker runs the periodic breach sweep.
type SLAWorker struct {
	sla      *service.SLAService
	interval time.Duration
	logger   *zap.Logger
}

// NewSLAWorker constructs the worker.
func NewSLAWorker(sla *service.SLAService, interval time.Duration, logger *zap.Logger) *SLAWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SLAWorker{sla: sla, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled.
func (w *SLAWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return
		case <-ticker.C:
			escalated, err := w.sla.Sweep(ctx, time.Now())
			if err != nil {
				w.logger.Warn("sla sweep failed", zap.Error(err))
				continue
			}
			if escalated > 0 {
				w.logger.Info("sla sweep escalated tickets", zap.Int("count", escalated))
			}
		}
	}
}
