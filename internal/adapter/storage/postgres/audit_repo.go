package postgres

import (
	"context"
	"fmt"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AuditRepo implements ports.AuditRepository. The table is append-only;
// there is deliberately no update or delete here.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends a mint/burn audit row within a transaction.
func (r *AuditRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.MintBurnAudit) error {
	query := `INSERT INTO mint_burn_audits (id, wallet_id, operation, amount, balance_before, balance_after,
		total_supply_before, total_supply_after, reference, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.WalletID, a.Operation, a.Amount.String(),
		a.BalanceBefore.String(), a.BalanceAfter.String(),
		a.TotalSupplyBefore.String(), a.TotalSupplyAfter.String(),
		a.Reference, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListByWallet returns the newest audit rows for a wallet.
func (r *AuditRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.MintBurnAudit, error) {
	query := `SELECT id, wallet_id, operation, amount::text, balance_before::text, balance_after::text,
		total_supply_before::text, total_supply_after::text, reference, created_at
		FROM mint_burn_audits WHERE wallet_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []domain.MintBurnAudit
	for rows.Next() {
		var a domain.MintBurnAudit
		var amount, before, after, supplyBefore, supplyAfter string
		if err := rows.Scan(
			&a.ID, &a.WalletID, &a.Operation, &amount, &before, &after,
			&supplyBefore, &supplyAfter, &a.Reference, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		if a.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("parse balance_before: %w", err)
		}
		if a.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("parse balance_after: %w", err)
		}
		if a.TotalSupplyBefore, err = decimal.NewFromString(supplyBefore); err != nil {
			return nil, fmt.Errorf("parse total_supply_before: %w", err)
		}
		if a.TotalSupplyAfter, err = decimal.NewFromString(supplyAfter); err != nil {
			return nil, fmt.Errorf("parse total_supply_after: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
