package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType distinguishes user wallets from venue wallets.
type OwnerType string

const (
	OwnerTypeUser  OwnerType = "user"
	OwnerTypeVenue OwnerType = "venue"
)

// Valid reports whether the owner type is one of the known kinds.
func (o OwnerType) Valid() bool {
	return o == OwnerTypeUser || o == OwnerTypeVenue
}

// Wallet holds one owner's JVC balances. Funds are split between an
// available portion (spendable) and a locked portion (reserved against a
// pending withdrawal). Neither side may ever go negative, and
// available+locked always equals the wallet's recorded credits minus debits.
type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	OwnerType        OwnerType       `json:"owner_type"`
	BalanceAvailable decimal.Decimal `json:"balance_available"`
	BalanceLocked    decimal.Decimal `json:"balance_locked"`
	IsFrozen         bool            `json:"is_frozen"`
	FirstActivityAt  *time.Time      `json:"first_activity_at,omitempty"`
	LastDepositAt    *time.Time      `json:"last_deposit_at,omitempty"`
	LastSpendAt      *time.Time      `json:"last_spend_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TotalBalance returns available + locked.
func (w *Wallet) TotalBalance() decimal.Decimal {
	return w.BalanceAvailable.Add(w.BalanceLocked)
}

// CanDebit reports whether amount can be taken from the available balance.
// Frozen wallets accept no debits; deposits remain allowed.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return !w.IsFrozen && w.BalanceAvailable.GreaterThanOrEqual(amount)
}

// HasSpentSinceDeposit reports whether the owner completed an in-venue
// purchase after the most recent deposit. A genuine spend unlocks
// withdrawal immediately, bypassing the holding window.
func (w *Wallet) HasSpentSinceDeposit() bool {
	if w.LastSpendAt == nil {
		return false
	}
	if w.LastDepositAt == nil {
		return true
	}
	return w.LastSpendAt.After(*w.LastDepositAt)
}

// NewWallet constructs a zero-balance wallet for an owner.
// Wallets are created lazily on first activity and never deleted.
func NewWallet(ownerID uuid.UUID, ownerType OwnerType) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		OwnerType:        ownerType,
		BalanceAvailable: decimal.Zero,
		BalanceLocked:    decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
