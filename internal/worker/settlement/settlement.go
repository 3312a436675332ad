package settlement

import (
	"context"
	"time"

	"jvc-ledger/config"
	"jvc-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Worker drains the approved-withdrawal queue on a fixed interval.
// Manual batches via the admin endpoint run through the same service,
// so concurrent runs are safe: each item is gated by its conditional
// status update.
type Worker struct {
	settlementSvc ports.SettlementService
	batchLimit    int
	interval      time.Duration
	log           zerolog.Logger
}

// New creates a settlement worker.
func New(settlementSvc ports.SettlementService, cfg config.SettlementConfig, log zerolog.Logger) *Worker {
	return &Worker{
		settlementSvc: settlementSvc,
		batchLimit:    cfg.BatchLimit,
		interval:      cfg.Interval,
		log:           log.With().Str("worker", "settlement").Logger(),
	}
}

// Run loops until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Int("batch_limit", w.batchLimit).
		Dur("interval", w.interval).
		Msg("settlement worker start")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("settlement worker stop")
			return ctx.Err()
		case <-time.After(w.interval):
		}

		w.runOnce(ctx)
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	summary, err := w.settlementSvc.RunBatch(ctx, w.batchLimit, false)
	if err != nil {
		w.log.Error().Err(err).Msg("settlement batch failed")
		return
	}

	if summary.Processed == 0 && summary.Failed == 0 {
		return
	}

	w.log.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Str("total_paid", summary.TotalPaid.String()).
		Str("total_fees", summary.TotalFees.String()).
		Msg("settlement batch done")
}
