package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWithdrawalStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from WithdrawalStatus
		to   WithdrawalStatus
		want bool
	}{
		{"pending to approved", WithdrawalStatusPending, WithdrawalStatusApproved, true},
		{"pending to rejected", WithdrawalStatusPending, WithdrawalStatusRejected, true},
		{"pending to completed", WithdrawalStatusPending, WithdrawalStatusCompleted, false},
		{"approved to completed", WithdrawalStatusApproved, WithdrawalStatusCompleted, true},
		{"approved to rejected", WithdrawalStatusApproved, WithdrawalStatusRejected, true},
		{"approved to failed", WithdrawalStatusApproved, WithdrawalStatusFailed, true},
		{"pending to failed", WithdrawalStatusPending, WithdrawalStatusFailed, false},
		{"completed to rejected", WithdrawalStatusCompleted, WithdrawalStatusRejected, false},
		{"completed to completed", WithdrawalStatusCompleted, WithdrawalStatusCompleted, false},
		{"rejected to approved", WithdrawalStatusRejected, WithdrawalStatusApproved, false},
		{"failed to completed", WithdrawalStatusFailed, WithdrawalStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestWithdrawalStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status WithdrawalStatus
		want   bool
	}{
		{WithdrawalStatusPending, false},
		{WithdrawalStatusApproved, false},
		{WithdrawalStatusCompleted, true},
		{WithdrawalStatusRejected, true},
		{WithdrawalStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestWallet_TotalBalance(t *testing.T) {
	w := &Wallet{
		BalanceAvailable: decimal.RequireFromString("50.00"),
		BalanceLocked:    decimal.RequireFromString("25.50"),
	}
	assert.True(t, w.TotalBalance().Equal(decimal.RequireFromString("75.50")))
}

func TestWallet_CanDebit(t *testing.T) {
	tests := []struct {
		name      string
		available string
		frozen    bool
		amount    string
		want      bool
	}{
		{"sufficient", "100", false, "50", true},
		{"exact", "100", false, "100", true},
		{"insufficient", "100", false, "100.01", false},
		{"frozen", "100", true, "50", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{
				BalanceAvailable: decimal.RequireFromString(tt.available),
				IsFrozen:         tt.frozen,
			}
			assert.Equal(t, tt.want, w.CanDebit(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestWallet_HasSpentSinceDeposit(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		spend   *time.Time
		deposit *time.Time
		want    bool
	}{
		{"never spent", nil, &now, false},
		{"spent, never deposited", &now, nil, true},
		{"spent after deposit", &now, &earlier, true},
		{"spent before deposit", &earlier, &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{LastSpendAt: tt.spend, LastDepositAt: tt.deposit}
			assert.Equal(t, tt.want, w.HasSpentSinceDeposit())
		})
	}
}

func TestNewWallet(t *testing.T) {
	ownerID := uuid.New()
	w := NewWallet(ownerID, OwnerTypeVenue)

	assert.Equal(t, ownerID, w.OwnerID)
	assert.Equal(t, OwnerTypeVenue, w.OwnerType)
	assert.True(t, w.BalanceAvailable.IsZero())
	assert.True(t, w.BalanceLocked.IsZero())
	assert.False(t, w.IsFrozen)
	assert.Nil(t, w.FirstActivityAt)
}

func TestOwnerType_Valid(t *testing.T) {
	assert.True(t, OwnerTypeUser.Valid())
	assert.True(t, OwnerTypeVenue.Valid())
	assert.False(t, OwnerType("merchant").Valid())
}

func TestWithdrawalMethod_Valid(t *testing.T) {
	assert.True(t, WithdrawalMethodBank.Valid())
	assert.True(t, WithdrawalMethodCrypto.Valid())
	assert.False(t, WithdrawalMethod("paypal").Valid())
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusCompleted, true},
		{TransactionStatusFailed, true},
		{TransactionStatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}
