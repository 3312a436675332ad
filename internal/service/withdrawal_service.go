package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WithdrawalServiceImpl implements ports.WithdrawalService. Requesting a
// withdrawal locks funds; approval is a pure status change; payout burns the
// locked funds and rejection or failure returns them.
type WithdrawalServiceImpl struct {
	ledger      *LedgerService
	wallets     ports.WalletRepository
	withdrawals ports.WithdrawalRepository
	treasury    ports.TreasuryRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	fee         decimal.Decimal
	window      time.Duration // user eligibility window since first activity
	venueMin    decimal.Decimal
	log         zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	ledger *LedgerService,
	wallets ports.WalletRepository,
	withdrawals ports.WithdrawalRepository,
	treasury ports.TreasuryRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	fee decimal.Decimal,
	window time.Duration,
	venueMin decimal.Decimal,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		ledger:      ledger,
		wallets:     wallets,
		withdrawals: withdrawals,
		treasury:    treasury,
		txRepo:      txRepo,
		transactor:  transactor,
		fee:         fee,
		window:      window,
		venueMin:    venueMin,
		log:         log,
	}
}

// Request validates eligibility, locks the requested amount and creates a
// pending withdrawal. Lock and record creation share one transaction so a
// crash can never leave funds locked without a matching record.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, req ports.WithdrawalRequest) (*domain.WithdrawalRecord, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.OwnerType.Valid() {
		return nil, apperror.Validation("unknown owner type")
	}
	if !req.Method.Valid() {
		return nil, apperror.Validation("unknown withdrawal method")
	}
	if req.Destination == "" {
		return nil, apperror.Validation("destination is required")
	}
	if req.Amount.LessThanOrEqual(s.fee) {
		return nil, apperror.ErrAmountBelowFee(s.fee.String())
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, dbTx, req.OwnerID, req.OwnerType)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if wallet.IsFrozen {
		return nil, apperror.ErrWalletFrozen()
	}

	now := time.Now().UTC()
	if err := s.checkEligibility(wallet, now); err != nil {
		return nil, err
	}
	if !wallet.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds(wallet.BalanceAvailable.String(), req.Amount.String())
	}

	rec := &domain.WithdrawalRecord{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		OwnerID:     req.OwnerID,
		OwnerType:   req.OwnerType,
		Amount:      req.Amount,
		Fee:         s.fee,
		NetPayout:   req.Amount.Sub(s.fee),
		Method:      req.Method,
		Destination: req.Destination,
		Status:      domain.WithdrawalStatusPending,
		RequestedAt: now,
	}
	txn := &domain.Transaction{
		ID:           uuid.New(),
		FromWalletID: &wallet.ID,
		Amount:       req.Amount,
		Fee:          s.fee,
		Type:         domain.TransactionTypeWithdrawal,
		Status:       domain.TransactionStatusPending,
		Reference:    &rec.ID,
		CreatedAt:    now,
	}
	rec.TransactionID = txn.ID

	if err := s.ledger.LockTx(ctx, dbTx, wallet, req.Amount, &rec.ID); err != nil {
		return nil, err
	}
	if _, err := s.treasury.ApplyDelta(ctx, dbTx, ports.TreasuryDelta{PendingWithdrawals: req.Amount}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply pending delta: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if err := s.withdrawals.Create(ctx, dbTx, rec); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", rec.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", req.Amount.String()).
		Str("net_payout", rec.NetPayout.String()).
		Msg("withdrawal requested")

	return rec, nil
}

// checkEligibility applies the owner-type specific withdrawal guard to a
// locked wallet row.
func (s *WithdrawalServiceImpl) checkEligibility(w *domain.Wallet, now time.Time) error {
	switch w.OwnerType {
	case domain.OwnerTypeUser:
		if w.HasSpentSinceDeposit() {
			return nil
		}
		if w.FirstActivityAt != nil {
			elapsed := now.Sub(*w.FirstActivityAt)
			if elapsed >= s.window {
				return nil
			}
			days := int(math.Ceil((s.window - elapsed).Hours() / 24))
			return apperror.ErrNotEligible(days)
		}
		return apperror.ErrNotEligible(int(math.Ceil(s.window.Hours() / 24)))
	case domain.OwnerTypeVenue:
		if w.TotalBalance().LessThan(s.venueMin) {
			return apperror.ErrBelowMinimumBalance(s.venueMin.String(), w.TotalBalance().String())
		}
		return nil
	default:
		return apperror.Validation("unknown owner type")
	}
}

// Approve moves a pending withdrawal to approved, recording the actor.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, withdrawalID uuid.UUID, actor string) (*domain.WithdrawalRecord, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	ok, err := s.withdrawals.MarkApproved(ctx, dbTx, withdrawalID, actor, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark approved: %w", err))
	}
	if !ok {
		return nil, s.transitionError(ctx, withdrawalID, "approve")
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Str("actor", actor).
		Msg("withdrawal approved")

	return s.withdrawals.GetByID(ctx, withdrawalID)
}

// Reject cancels a pending or approved withdrawal and returns the locked
// funds to the available balance.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.WithdrawalRecord, error) {
	rec, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find withdrawal: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	ok, err := s.withdrawals.MarkRejected(ctx, dbTx, withdrawalID, reason, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark rejected: %w", err))
	}
	if !ok {
		return nil, s.transitionError(ctx, withdrawalID, "reject")
	}

	if err := s.releaseLock(ctx, dbTx, rec, domain.TransactionStatusRejected, now); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Str("reason", reason).
		Msg("withdrawal rejected, funds unlocked")

	return s.withdrawals.GetByID(ctx, withdrawalID)
}

// MarkPaid settles an approved withdrawal after the external payout went
// through. Replaying on an already completed record returns it unchanged.
func (s *WithdrawalServiceImpl) MarkPaid(ctx context.Context, withdrawalID uuid.UUID) (*domain.WithdrawalRecord, error) {
	return s.markPaid(ctx, withdrawalID, domain.AuditOpWithdrawal)
}

func (s *WithdrawalServiceImpl) markPaid(ctx context.Context, withdrawalID uuid.UUID, op domain.AuditOperation) (*domain.WithdrawalRecord, error) {
	rec, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find withdrawal: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if rec.Status == domain.WithdrawalStatusCompleted {
		return rec, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	ok, err := s.withdrawals.MarkCompleted(ctx, dbTx, withdrawalID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark completed: %w", err))
	}
	if !ok {
		// Either a concurrent settlement completed it first, or the record
		// is not approved.
		fresh, ferr := s.withdrawals.GetByID(ctx, withdrawalID)
		if ferr == nil && fresh != nil && fresh.Status == domain.WithdrawalStatusCompleted {
			return fresh, nil
		}
		return nil, s.transitionError(ctx, withdrawalID, "mark_paid")
	}

	wallet, err := s.wallets.GetByIDForUpdate(ctx, dbTx, rec.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	burn := ports.TreasuryDelta{
		TotalSupply:        rec.Amount.Neg(),
		TotalUSDBacking:    rec.Amount.Neg(),
		CollectedFees:      rec.Fee,
		PendingWithdrawals: rec.Amount.Neg(),
	}
	if err := s.ledger.SettleTx(ctx, dbTx, wallet, rec.Amount, burn, op, &rec.ID); err != nil {
		return nil, err
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, rec.TransactionID, domain.TransactionStatusCompleted, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", rec.ID.String()).
		Str("wallet_id", rec.WalletID.String()).
		Str("net_payout", rec.NetPayout.String()).
		Msg("withdrawal paid, units burned")

	return s.withdrawals.GetByID(ctx, withdrawalID)
}

// fail marks an approved withdrawal failed and returns the locked funds.
// Used by batch settlement when a payout attempt errors.
func (s *WithdrawalServiceImpl) fail(ctx context.Context, withdrawalID uuid.UUID, reason string) error {
	rec, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find withdrawal: %w", err))
	}
	if rec == nil {
		return apperror.ErrNotFound("withdrawal")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	ok, err := s.withdrawals.MarkFailed(ctx, dbTx, withdrawalID, reason, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("mark failed: %w", err))
	}
	if !ok {
		return s.transitionError(ctx, withdrawalID, "fail")
	}
	if err := s.releaseLock(ctx, dbTx, rec, domain.TransactionStatusFailed, now); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Warn().
		Str("withdrawal_id", withdrawalID.String()).
		Str("reason", reason).
		Msg("withdrawal failed, funds unlocked")

	return nil
}

// releaseLock returns the locked amount to available and closes out the
// pending transaction.
func (s *WithdrawalServiceImpl) releaseLock(ctx context.Context, dbTx pgx.Tx, rec *domain.WithdrawalRecord, status domain.TransactionStatus, now time.Time) error {
	wallet, err := s.wallets.GetByIDForUpdate(ctx, dbTx, rec.WalletID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	if err := s.ledger.UnlockTx(ctx, dbTx, wallet, rec.Amount, &rec.ID); err != nil {
		return err
	}
	if _, err := s.treasury.ApplyDelta(ctx, dbTx, ports.TreasuryDelta{PendingWithdrawals: rec.Amount.Neg()}); err != nil {
		return apperror.InternalError(fmt.Errorf("apply pending delta: %w", err))
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, rec.TransactionID, status, now); err != nil {
		return apperror.InternalError(fmt.Errorf("update transaction: %w", err))
	}
	return nil
}

// transitionError turns a failed conditional update into a descriptive error.
func (s *WithdrawalServiceImpl) transitionError(ctx context.Context, withdrawalID uuid.UUID, action string) error {
	rec, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil || rec == nil {
		return apperror.ErrNotFound("withdrawal")
	}
	return apperror.ErrInvalidState(string(rec.Status), action)
}
