package postgres

import (
	"context"
	"fmt"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// treasuryColumns selects the singleton row, balances as text.
const treasuryColumns = `total_supply::text, total_usd_backing::text, collected_fees::text,
	pending_deposits::text, pending_withdrawals::text, updated_at`

// TreasuryRepo implements ports.TreasuryRepository over the single-row
// treasury table. Columns only ever move by relative increments, so
// concurrent transactions serialize on the row without lost updates.
type TreasuryRepo struct {
	pool Pool
}

// NewTreasuryRepo creates a new TreasuryRepo.
func NewTreasuryRepo(pool Pool) *TreasuryRepo {
	return &TreasuryRepo{pool: pool}
}

func scanTreasury(row pgx.Row) (*domain.Treasury, error) {
	t := &domain.Treasury{}
	var supply, backing, fees, deposits, withdrawals string
	if err := row.Scan(&supply, &backing, &fees, &deposits, &withdrawals, &t.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.TotalSupply, err = decimal.NewFromString(supply); err != nil {
		return nil, fmt.Errorf("parse total_supply: %w", err)
	}
	if t.TotalUSDBacking, err = decimal.NewFromString(backing); err != nil {
		return nil, fmt.Errorf("parse total_usd_backing: %w", err)
	}
	if t.CollectedFees, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("parse collected_fees: %w", err)
	}
	if t.PendingDeposits, err = decimal.NewFromString(deposits); err != nil {
		return nil, fmt.Errorf("parse pending_deposits: %w", err)
	}
	if t.PendingWithdrawals, err = decimal.NewFromString(withdrawals); err != nil {
		return nil, fmt.Errorf("parse pending_withdrawals: %w", err)
	}
	return t, nil
}

// Get reads the treasury snapshot without a transaction.
func (r *TreasuryRepo) Get(ctx context.Context) (*domain.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury WHERE id = 1`

	t, err := scanTreasury(r.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("get treasury: %w", err)
	}
	return t, nil
}

// GetTx reads the treasury snapshot inside a transaction.
func (r *TreasuryRepo) GetTx(ctx context.Context, tx pgx.Tx) (*domain.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury WHERE id = 1`

	t, err := scanTreasury(tx.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("get treasury in tx: %w", err)
	}
	return t, nil
}

// ApplyDelta increments the treasury columns and returns the post-update
// snapshot. Never read-modify-write: the arithmetic happens in SQL.
func (r *TreasuryRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, delta ports.TreasuryDelta) (*domain.Treasury, error) {
	query := `UPDATE treasury SET
		total_supply = total_supply + $1::numeric,
		total_usd_backing = total_usd_backing + $2::numeric,
		collected_fees = collected_fees + $3::numeric,
		pending_deposits = pending_deposits + $4::numeric,
		pending_withdrawals = pending_withdrawals + $5::numeric,
		updated_at = NOW()
		WHERE id = 1
		RETURNING ` + treasuryColumns

	t, err := scanTreasury(tx.QueryRow(ctx, query,
		delta.TotalSupply.String(), delta.TotalUSDBacking.String(), delta.CollectedFees.String(),
		delta.PendingDeposits.String(), delta.PendingWithdrawals.String(),
	))
	if err != nil {
		return nil, fmt.Errorf("apply treasury delta: %w", err)
	}
	return t, nil
}
