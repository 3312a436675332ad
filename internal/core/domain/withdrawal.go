package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the state machine for a withdrawal request.
//
//	pending -> approved -> completed
//	pending | approved -> rejected
//	approved -> failed (batch settlement error)
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)

// CanTransitionTo reports whether moving to the target status is legal.
func (s WithdrawalStatus) CanTransitionTo(to WithdrawalStatus) bool {
	switch to {
	case WithdrawalStatusApproved:
		return s == WithdrawalStatusPending
	case WithdrawalStatusCompleted:
		return s == WithdrawalStatusApproved
	case WithdrawalStatusRejected:
		return s == WithdrawalStatusPending || s == WithdrawalStatusApproved
	case WithdrawalStatusFailed:
		return s == WithdrawalStatusApproved
	default:
		return false
	}
}

// IsTerminal returns true once no further transition is legal.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted ||
		s == WithdrawalStatusRejected ||
		s == WithdrawalStatusFailed
}

// WithdrawalMethod is the payout rail.
type WithdrawalMethod string

const (
	WithdrawalMethodBank   WithdrawalMethod = "bank"
	WithdrawalMethodCrypto WithdrawalMethod = "crypto"
)

// Valid reports whether the method is a known payout rail.
func (m WithdrawalMethod) Valid() bool {
	return m == WithdrawalMethodBank || m == WithdrawalMethodCrypto
}

// WithdrawalRecord tracks one withdrawal request through the state machine.
// Created once; mutated only through defined transitions, each stamped.
type WithdrawalRecord struct {
	ID            uuid.UUID        `json:"id"`
	WalletID      uuid.UUID        `json:"wallet_id"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	OwnerType     OwnerType        `json:"owner_type"`
	Amount        decimal.Decimal  `json:"amount"`
	Fee           decimal.Decimal  `json:"fee"`
	NetPayout     decimal.Decimal  `json:"net_payout"`
	Method        WithdrawalMethod `json:"method"`
	Destination   string           `json:"destination"` // bank details or crypto address
	Status        WithdrawalStatus `json:"status"`
	RejectReason  *string          `json:"reject_reason,omitempty"`
	FailureReason *string          `json:"failure_reason,omitempty"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	ApprovedBy    *string          `json:"approved_by,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	RejectedAt    *time.Time       `json:"rejected_at,omitempty"`
}
