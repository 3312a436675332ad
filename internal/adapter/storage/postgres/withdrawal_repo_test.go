package postgres

import (
	"context"
	"testing"
	"time"

	"jvc-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWithdrawal() *domain.WithdrawalRecord {
	return &domain.WithdrawalRecord{
		ID:            uuid.New(),
		WalletID:      uuid.New(),
		OwnerID:       uuid.New(),
		OwnerType:     domain.OwnerTypeUser,
		Amount:        decimal.RequireFromString("100.00"),
		Fee:           decimal.RequireFromString("1.00"),
		NetPayout:     decimal.RequireFromString("99.00"),
		Method:        domain.WithdrawalMethodBank,
		Destination:   "NL91ABNA0417164300",
		Status:        domain.WithdrawalStatusPending,
		TransactionID: uuid.New(),
		RequestedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func withdrawalTestColumns() []string {
	return []string{
		"id", "wallet_id", "owner_id", "owner_type", "amount", "fee", "net_payout",
		"method", "destination", "status", "reject_reason", "failure_reason",
		"transaction_id", "approved_by", "requested_at", "approved_at", "completed_at", "rejected_at",
	}
}

func withdrawalRow(rec *domain.WithdrawalRecord) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalTestColumns()).AddRow(
		rec.ID, rec.WalletID, rec.OwnerID, rec.OwnerType,
		rec.Amount.String(), rec.Fee.String(), rec.NetPayout.String(),
		rec.Method, rec.Destination, rec.Status, rec.RejectReason, rec.FailureReason,
		rec.TransactionID, rec.ApprovedBy, rec.RequestedAt, rec.ApprovedAt, rec.CompletedAt, rec.RejectedAt,
	)
}

func TestWithdrawalRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	rec := newTestWithdrawal()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO withdrawals").
		WithArgs(rec.ID, rec.WalletID, rec.OwnerID, rec.OwnerType,
			rec.Amount.String(), rec.Fee.String(), rec.NetPayout.String(),
			rec.Method, rec.Destination, rec.Status, rec.TransactionID, rec.RequestedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	rec := newTestWithdrawal()

	mock.ExpectQuery("SELECT .+ FROM withdrawals WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(withdrawalRow(rec))

	result, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, rec.ID, result.ID)
	assert.True(t, result.NetPayout.Equal(rec.NetPayout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM withdrawals WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(withdrawalTestColumns()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkApproved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()
	at := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals SET status").
		WithArgs(domain.WithdrawalStatusApproved, "ops@example.com", at, id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkApproved(context.Background(), tx, id, "ops@example.com", at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkApproved_WrongSourceState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	// No row matches the status guard: the conditional update reports it.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals SET status").
		WithArgs(domain.WithdrawalStatusApproved, "ops@example.com", at, id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkApproved(context.Background(), tx, id, "ops@example.com", at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkCompleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	id := uuid.New()
	at := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals SET status").
		WithArgs(domain.WithdrawalStatusCompleted, at, id, domain.WithdrawalStatusApproved).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkCompleted(context.Background(), tx, id, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_ListApproved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	first := newTestWithdrawal()
	first.Status = domain.WithdrawalStatusApproved
	second := newTestWithdrawal()
	second.Status = domain.WithdrawalStatusApproved

	rows := withdrawalRow(first).AddRow(
		second.ID, second.WalletID, second.OwnerID, second.OwnerType,
		second.Amount.String(), second.Fee.String(), second.NetPayout.String(),
		second.Method, second.Destination, second.Status, second.RejectReason, second.FailureReason,
		second.TransactionID, second.ApprovedBy, second.RequestedAt, second.ApprovedAt, second.CompletedAt, second.RejectedAt,
	)

	mock.ExpectQuery("SELECT .+ FROM withdrawals").
		WithArgs(domain.WithdrawalStatusApproved, 10).
		WillReturnRows(rows)

	result, err := repo.ListApproved(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, first.ID, result[0].ID)
	assert.Equal(t, second.ID, result[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
