package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditOperation tags the operation that caused a supply or balance change.
type AuditOperation string

const (
	AuditOpDeposit     AuditOperation = "deposit"
	AuditOpWithdrawal  AuditOperation = "withdrawal"
	AuditOpTransfer    AuditOperation = "transfer"
	AuditOpLock        AuditOperation = "lock"
	AuditOpUnlock      AuditOperation = "unlock"
	AuditOpSettle      AuditOperation = "settle"
	AuditOpBatchPayout AuditOperation = "batch_payout"
)

// MintBurnAudit is the append-only reconciliation trail: one row per
// balance or supply change, with before/after snapshots of the affected
// wallet and the treasury. Rows are never updated or deleted.
type MintBurnAudit struct {
	ID                uuid.UUID       `json:"id"`
	WalletID          uuid.UUID       `json:"wallet_id"`
	Operation         AuditOperation  `json:"operation"`
	Amount            decimal.Decimal `json:"amount"`
	BalanceBefore     decimal.Decimal `json:"balance_before"` // wallet total (available + locked)
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	TotalSupplyBefore decimal.Decimal `json:"total_supply_before"`
	TotalSupplyAfter  decimal.Decimal `json:"total_supply_after"`
	Reference         *uuid.UUID      `json:"reference,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
