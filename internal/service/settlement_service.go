package service

import (
	"context"
	"fmt"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementServiceImpl implements ports.SettlementService. It drains the
// approved-withdrawal queue oldest-first, settling each item in its own
// transaction so one bad item never blocks the rest of the batch.
type SettlementServiceImpl struct {
	withdrawals ports.WithdrawalRepository
	payouts     *WithdrawalServiceImpl
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	withdrawals ports.WithdrawalRepository,
	payouts *WithdrawalServiceImpl,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		withdrawals: withdrawals,
		payouts:     payouts,
		log:         log,
	}
}

// RunBatch settles up to limit approved withdrawals. With dryRun set it
// reports the same totals over the same candidate set without touching any
// record or balance.
func (s *SettlementServiceImpl) RunBatch(ctx context.Context, limit int, dryRun bool) (*ports.SettlementSummary, error) {
	if limit <= 0 {
		return nil, apperror.Validation("batch limit must be positive")
	}

	items, err := s.withdrawals.ListApproved(ctx, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list approved withdrawals: %w", err))
	}

	summary := &ports.SettlementSummary{
		TotalPaid:   decimal.Zero,
		TotalFees:   decimal.Zero,
		TotalBurned: decimal.Zero,
		DryRun:      dryRun,
	}

	for i := range items {
		rec := &items[i]
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if dryRun {
			summary.Processed++
			summary.TotalPaid = summary.TotalPaid.Add(rec.NetPayout)
			summary.TotalFees = summary.TotalFees.Add(rec.Fee)
			summary.TotalBurned = summary.TotalBurned.Add(rec.Amount)
			continue
		}

		if _, err := s.payouts.markPaid(ctx, rec.ID, domain.AuditOpBatchPayout); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ports.SettlementItemError{
				WithdrawalID: rec.ID,
				Reason:       err.Error(),
			})
			s.log.Error().Err(err).
				Str("withdrawal_id", rec.ID.String()).
				Msg("settlement item failed")
			if ferr := s.payouts.fail(ctx, rec.ID, err.Error()); ferr != nil {
				s.log.Error().Err(ferr).
					Str("withdrawal_id", rec.ID.String()).
					Msg("could not mark settlement item failed")
			}
			continue
		}

		summary.Processed++
		summary.TotalPaid = summary.TotalPaid.Add(rec.NetPayout)
		summary.TotalFees = summary.TotalFees.Add(rec.Fee)
		summary.TotalBurned = summary.TotalBurned.Add(rec.Amount)
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Str("total_paid", summary.TotalPaid.String()).
		Bool("dry_run", summary.DryRun).
		Msg("settlement batch finished")

	return summary, nil
}
