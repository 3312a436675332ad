package service

import (
	"context"
	"testing"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedgerService_Credit(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")
	ref := uuid.New()

	err := e.ledger.Credit(context.Background(), w.ID, dec("5.50"), domain.AuditOpDeposit, &ref)
	require.NoError(t, err)

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("15.50")))
	assert.True(t, got.BalanceLocked.IsZero())

	audits, _ := e.audits.ListByWallet(context.Background(), w.ID, 10)
	require.Len(t, audits, 1)
	assert.Equal(t, domain.AuditOpDeposit, audits[0].Operation)
	assert.True(t, audits[0].Amount.Equal(dec("5.50")))
	assert.True(t, audits[0].BalanceBefore.Equal(dec("10.00")))
	assert.True(t, audits[0].BalanceAfter.Equal(dec("15.50")))
	require.NotNil(t, audits[0].Reference)
	assert.Equal(t, ref, *audits[0].Reference)
}

func TestLedgerService_Credit_InvalidAmount(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")

	for _, amount := range []string{"0", "-1.00"} {
		err := e.ledger.Credit(context.Background(), w.ID, dec(amount), domain.AuditOpDeposit, nil)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "LED_003", appErr.Code)
	}
}

func TestLedgerService_Debit_InsufficientFunds(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "3.00")

	err := e.ledger.Debit(context.Background(), w.ID, dec("3.01"), domain.AuditOpTransfer, nil)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("3.00")), "failed debit must not change the balance")

	audits, _ := e.audits.ListByWallet(context.Background(), w.ID, 10)
	assert.Empty(t, audits, "failed debit must not leave an audit row")
}

func TestLedgerService_Debit_FrozenWallet(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")
	e.store.wallets[w.ID].IsFrozen = true

	err := e.ledger.Debit(context.Background(), w.ID, dec("1.00"), domain.AuditOpTransfer, nil)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}

func TestLedgerService_Credit_FrozenWalletAccepted(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")
	e.store.wallets[w.ID].IsFrozen = true

	err := e.ledger.Credit(context.Background(), w.ID, dec("2.00"), domain.AuditOpDeposit, nil)
	require.NoError(t, err, "frozen blocks debits, not credits")

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("12.00")))
}

func TestLedgerService_LockUnlock_Symmetry(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "20.00")
	ref := uuid.New()

	require.NoError(t, e.ledger.Lock(context.Background(), w.ID, dec("8.00"), &ref))

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("12.00")))
	assert.True(t, got.BalanceLocked.Equal(dec("8.00")))
	assert.True(t, got.TotalBalance().Equal(dec("20.00")), "lock must not change the total")

	require.NoError(t, e.ledger.Unlock(context.Background(), w.ID, dec("8.00"), &ref))

	got, _ = e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("20.00")))
	assert.True(t, got.BalanceLocked.IsZero())

	audits, _ := e.audits.ListByWallet(context.Background(), w.ID, 10)
	assert.Len(t, audits, 2)
}

func TestLedgerService_Lock_InsufficientAvailable(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "5.00")

	err := e.ledger.Lock(context.Background(), w.ID, dec("5.01"), nil)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)
}

func TestLedgerService_Settle_RemovesLockedOnly(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "20.00")

	require.NoError(t, e.ledger.Lock(context.Background(), w.ID, dec("8.00"), nil))
	require.NoError(t, e.ledger.Settle(context.Background(), w.ID, dec("8.00"), nil))

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("12.00")), "settle must not touch available")
	assert.True(t, got.BalanceLocked.IsZero())
}

func TestLedgerService_Unlock_ClampsToLockedBalance(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")
	e.store.wallets[w.ID].BalanceLocked = dec("2.00")

	// Requesting more than is locked releases what is there and stops.
	err := e.ledger.Unlock(context.Background(), w.ID, dec("5.00"), nil)
	require.NoError(t, err)

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("12.00")))
	assert.True(t, got.BalanceLocked.IsZero(), "locked balance never goes negative")
}

func TestLedgerService_WalletNotFound(t *testing.T) {
	e := newEnv()

	err := e.ledger.Credit(context.Background(), uuid.New(), dec("1.00"), domain.AuditOpDeposit, nil)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_004", appErr.Code)
}

func TestLedgerService_StorageErrorRollsBack(t *testing.T) {
	e := newEnv()
	w := e.store.addWallet(domain.OwnerTypeUser, "10.00")
	e.store.failUpdateBalances[w.ID] = assert.AnError

	err := e.ledger.Credit(context.Background(), w.ID, dec("1.00"), domain.AuditOpDeposit, nil)
	require.Error(t, err)

	got, _ := e.wallets.GetByID(context.Background(), w.ID)
	assert.True(t, got.BalanceAvailable.Equal(dec("10.00")))
	audits, _ := e.audits.ListByWallet(context.Background(), w.ID, 10)
	assert.Empty(t, audits)
}
