package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `id, wallet_id, owner_id, owner_type, amount::text, fee::text, net_payout::text,
	method, destination, status, reject_reason, failure_reason, transaction_id, approved_by,
	requested_at, approved_at, completed_at, rejected_at`

// WithdrawalRepo implements ports.WithdrawalRepository. Status transitions
// are conditional UPDATEs gated on the source status; the rows-affected
// count tells the caller whether the transition actually happened. That
// makes concurrent admin actions and settlement runs race-safe.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRecord, error) {
	rec := &domain.WithdrawalRecord{}
	var amount, fee, net string
	err := row.Scan(
		&rec.ID, &rec.WalletID, &rec.OwnerID, &rec.OwnerType, &amount, &fee, &net,
		&rec.Method, &rec.Destination, &rec.Status, &rec.RejectReason, &rec.FailureReason,
		&rec.TransactionID, &rec.ApprovedBy,
		&rec.RequestedAt, &rec.ApprovedAt, &rec.CompletedAt, &rec.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if rec.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	if rec.NetPayout, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("parse net_payout: %w", err)
	}
	return rec, nil
}

// Create inserts a new withdrawal record within a transaction.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.WithdrawalRecord) error {
	query := `INSERT INTO withdrawals (id, wallet_id, owner_id, owner_type, amount, fee, net_payout,
		method, destination, status, transaction_id, requested_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.WalletID, rec.OwnerID, rec.OwnerType,
		rec.Amount.String(), rec.Fee.String(), rec.NetPayout.String(),
		rec.Method, rec.Destination, rec.Status, rec.TransactionID, rec.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal record by its UUID.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRecord, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	rec, err := scanWithdrawal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal by id: %w", err)
	}
	return rec, nil
}

// MarkApproved flips pending -> approved. Returns false when the record
// was not pending.
func (r *WithdrawalRepo) MarkApproved(ctx context.Context, tx pgx.Tx, id uuid.UUID, actor string, at time.Time) (bool, error) {
	query := `UPDATE withdrawals SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStatusApproved, actor, at, id, domain.WithdrawalStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal approved: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRejected flips pending|approved -> rejected.
func (r *WithdrawalRepo) MarkRejected(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	query := `UPDATE withdrawals SET status = $1, reject_reason = $2, rejected_at = $3
		WHERE id = $4 AND status IN ($5, $6)`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStatusRejected, reason, at, id,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal rejected: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted flips approved -> completed. The false return is the
// settlement idempotency gate.
func (r *WithdrawalRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE withdrawals SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStatusCompleted, at, id, domain.WithdrawalStatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed flips approved -> failed, recording the settlement error.
func (r *WithdrawalRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	query := `UPDATE withdrawals SET status = $1, failure_reason = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStatusFailed, reason, id, domain.WithdrawalStatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListApproved returns approved withdrawals oldest-first for batch
// settlement.
func (r *WithdrawalRepo) ListApproved(ctx context.Context, limit int) ([]domain.WithdrawalRecord, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
		WHERE status = $1 ORDER BY requested_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.WithdrawalStatusApproved, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved withdrawals: %w", err)
	}
	defer rows.Close()

	var out []domain.WithdrawalRecord
	for rows.Next() {
		rec, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
