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

// DepositRepo implements ports.DepositRepository. payment_intent_id carries
// a unique index: one processor intent maps to exactly one deposit.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// Create inserts a new deposit record within a transaction.
func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.DepositRecord) error {
	query := `INSERT INTO deposits (id, payment_intent_id, owner_id, owner_type, amount, currency,
		method, status, redirect_url, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.PaymentIntentID, rec.OwnerID, rec.OwnerType,
		rec.Amount.String(), rec.Currency, rec.Method, rec.Status, rec.RedirectURL, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// GetByIntentID fetches a deposit by the processor's payment intent id.
func (r *DepositRepo) GetByIntentID(ctx context.Context, paymentIntentID string) (*domain.DepositRecord, error) {
	query := `SELECT id, payment_intent_id, owner_id, owner_type, amount::text, currency,
		method, status, redirect_url, created_at, completed_at
		FROM deposits WHERE payment_intent_id = $1`

	rec := &domain.DepositRecord{}
	var amount string
	err := r.pool.QueryRow(ctx, query, paymentIntentID).Scan(
		&rec.ID, &rec.PaymentIntentID, &rec.OwnerID, &rec.OwnerType, &amount, &rec.Currency,
		&rec.Method, &rec.Status, &rec.RedirectURL, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit by intent id: %w", err)
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return rec, nil
}

// MarkCompleted flips pending -> completed. False means another delivery of
// the same intent won the race and the caller must not credit again.
func (r *DepositRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE deposits SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query,
		domain.DepositStatusCompleted, at, id, domain.DepositStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark deposit completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
