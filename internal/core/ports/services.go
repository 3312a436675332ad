package ports

import (
	"context"
	"time"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// PaymentProcessor is the external payment provider integration.
type PaymentProcessor interface {
	// CreateIntent registers a payment with the processor and returns its
	// intent id plus either a redirect URL or textual instructions.
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
}

// IntentRequest holds input for creating a processor payment intent.
type IntentRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
	Currency    string
	Method      domain.DepositMethod
}

// IntentResult is the processor's answer to an intent creation.
type IntentResult struct {
	IntentID     string
	RedirectURL  string
	Instructions string
}

// OrderCallback notifies the external venue/POS system that an order was
// paid by a transfer. The ledger treats it as a best-effort side effect.
type OrderCallback interface {
	MarkOrderPaid(ctx context.Context, orderID string, transactionID uuid.UUID) error
}

// EventDedupe is the fast-path replay filter for webhook events. The DB
// conditional status update remains the authoritative idempotency gate, so
// callers record an event only after its effects are durably committed.
type EventDedupe interface {
	// Seen reports whether the event id was already recorded.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records the event id for ttl.
	Mark(ctx context.Context, eventID string, ttl time.Duration) error
}

// SignatureService handles HMAC-SHA256 signing and verification of
// processor webhook payloads.
type SignatureService interface {
	Sign(secret string, payload string) string
	Verify(secret string, payload string, signature string) bool
}

// TokenService handles JWT token operations for admin access.
type TokenService interface {
	Generate(actor string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Actor string
}

// --- Service Ports (Business Logic) ---

// DepositService turns external payments into mints.
type DepositService interface {
	RequestDeposit(ctx context.Context, req DepositRequest) (*DepositInitiation, error)
	// ConfirmPayment is the webhook entry point. Safe to call any number of
	// times for the same event: replays are no-ops.
	ConfirmPayment(ctx context.Context, eventID, paymentIntentID string) error
}

// DepositRequest holds validated input for deposit initiation.
type DepositRequest struct {
	OwnerID   uuid.UUID
	OwnerType domain.OwnerType
	Method    domain.DepositMethod
	Amount    decimal.Decimal
	Currency  string
}

// DepositInitiation is returned to the caller to continue the payment flow.
type DepositInitiation struct {
	ReferenceID  uuid.UUID
	IntentID     string
	RedirectURL  string
	Instructions string
}

// TransferService moves funds between two wallets with a flat platform fee.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
type TransferRequest struct {
	SenderID      uuid.UUID
	RecipientID   uuid.UUID
	RecipientType domain.OwnerType
	Amount        decimal.Decimal
	OrderID       *string
}

// WithdrawalService runs the withdrawal state machine.
type WithdrawalService interface {
	Request(ctx context.Context, req WithdrawalRequest) (*domain.WithdrawalRecord, error)
	Approve(ctx context.Context, withdrawalID uuid.UUID, actor string) (*domain.WithdrawalRecord, error)
	Reject(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.WithdrawalRecord, error)
	// MarkPaid settles an approved withdrawal: locked funds leave the wallet,
	// supply burns, fee accrues. Replays on a completed record are no-ops.
	MarkPaid(ctx context.Context, withdrawalID uuid.UUID) (*domain.WithdrawalRecord, error)
}

// WithdrawalRequest holds validated input for a withdrawal request.
type WithdrawalRequest struct {
	OwnerID     uuid.UUID
	OwnerType   domain.OwnerType
	Amount      decimal.Decimal
	Method      domain.WithdrawalMethod
	Destination string
}

// SettlementService drains the approved-withdrawal queue.
type SettlementService interface {
	RunBatch(ctx context.Context, limit int, dryRun bool) (*SettlementSummary, error)
}

// SettlementItemError reports one failed batch item.
type SettlementItemError struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Reason       string    `json:"reason"`
}

// SettlementSummary reports batch results; identical shape for dry runs.
type SettlementSummary struct {
	Processed   int                   `json:"processed"`
	Failed      int                   `json:"failed"`
	TotalPaid   decimal.Decimal       `json:"total_paid"`
	TotalFees   decimal.Decimal       `json:"total_fees"`
	TotalBurned decimal.Decimal       `json:"total_burned"`
	DryRun      bool                  `json:"dry_run"`
	Errors      []SettlementItemError `json:"errors,omitempty"`
}
