package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositStatus tracks an external payment from initiation to settlement.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusFailed    DepositStatus = "failed"
)

// DepositMethod is the funding rail offered by the external processor.
type DepositMethod string

const (
	DepositMethodCard DepositMethod = "card"
	DepositMethodBank DepositMethod = "bank"
)

// Valid reports whether m is a known deposit method.
func (m DepositMethod) Valid() bool {
	return m == DepositMethodCard || m == DepositMethodBank
}

// DepositRecord tracks one external payment. PaymentIntentID is the
// processor's idempotency key: duplicate confirmation events for the same
// intent must credit the wallet exactly once.
type DepositRecord struct {
	ID              uuid.UUID       `json:"id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	OwnerType       OwnerType       `json:"owner_type"`
	Amount          decimal.Decimal `json:"amount"` // intended wallet credit, net of processor fees
	Currency        string          `json:"currency"`
	Method          DepositMethod   `json:"method"`
	Status          DepositStatus   `json:"status"`
	RedirectURL     *string         `json:"redirect_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
