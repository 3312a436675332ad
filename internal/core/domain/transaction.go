package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypePayment    TransactionType = "PAYMENT"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRejected  TransactionStatus = "REJECTED"
)

// Transaction records one economic event. Immutable once completed.
// Reference links to the Withdrawal or Deposit record that drove it.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	FromWalletID *uuid.UUID        `json:"from_wallet_id,omitempty"` // nil for deposits (mint)
	ToWalletID   *uuid.UUID        `json:"to_wallet_id,omitempty"`   // nil for withdrawals (burn)
	Amount       decimal.Decimal   `json:"amount"`
	Fee          decimal.Decimal   `json:"fee"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	Reference    *uuid.UUID        `json:"reference,omitempty"`
	OrderID      *string           `json:"order_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ProcessedAt  *time.Time        `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusRejected
}

// LedgerDirection marks a ledger entry as a debit or credit.
type LedgerDirection string

const (
	LedgerDebit  LedgerDirection = "DEBIT"
	LedgerCredit LedgerDirection = "CREDIT"
)

// LedgerEntry is one side of a transaction. A transfer writes a debit and a
// credit row referencing the same transaction, keeping the audit symmetric.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Direction     LedgerDirection `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
