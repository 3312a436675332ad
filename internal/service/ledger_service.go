package service

import (
	"context"
	"fmt"
	"time"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService is the balance mutator: the four-and-a-half primitive
// operations every higher component builds on. Each mutation writes a
// MintBurnAudit row in the same database transaction as the balance
// change — no mutation without an audit row, no audit row without a
// committed mutation.
type LedgerService struct {
	wallets    ports.WalletRepository
	treasury   ports.TreasuryRepository
	audits     ports.AuditRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	wallets ports.WalletRepository,
	treasury ports.TreasuryRepository,
	audits ports.AuditRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		wallets:    wallets,
		treasury:   treasury,
		audits:     audits,
		transactor: transactor,
		log:        log,
	}
}

// CreditTx adds amount to the wallet's available balance inside tx.
// The wallet must have been fetched FOR UPDATE by the caller.
// delta carries any treasury change that belongs to the same mutation
// (e.g. a mint on deposit); pass a zero delta when supply is untouched.
func (s *LedgerService) CreditTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal, delta ports.TreasuryDelta, op domain.AuditOperation, ref *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	return s.apply(ctx, tx, w, w.BalanceAvailable.Add(amount), w.BalanceLocked, amount, delta, op, ref)
}

// DebitTx removes amount from the wallet's available balance inside tx.
// Frozen wallets accept no debits.
func (s *LedgerService) DebitTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal, delta ports.TreasuryDelta, op domain.AuditOperation, ref *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	if w.IsFrozen {
		return apperror.ErrWalletFrozen()
	}
	if w.BalanceAvailable.LessThan(amount) {
		return apperror.ErrInsufficientFunds(w.BalanceAvailable.String(), amount.String())
	}
	return s.apply(ctx, tx, w, w.BalanceAvailable.Sub(amount), w.BalanceLocked, amount, delta, op, ref)
}

// LockTx moves amount from available to locked inside tx. Locked funds are
// reserved against a pending withdrawal and unavailable for spend.
func (s *LedgerService) LockTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	if w.BalanceAvailable.LessThan(amount) {
		return apperror.ErrInsufficientFunds(w.BalanceAvailable.String(), amount.String())
	}
	return s.apply(ctx, tx, w,
		w.BalanceAvailable.Sub(amount), w.BalanceLocked.Add(amount),
		amount, ports.TreasuryDelta{}, domain.AuditOpLock, ref)
}

// UnlockTx moves amount from locked back to available (rejection path).
// A locked balance smaller than amount is clamped to zero and logged as an
// inconsistency instead of failing: an external race (admin re-processing)
// must not corrupt state irrecoverably.
func (s *LedgerService) UnlockTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal, ref *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	moved := s.clampToLocked(w, amount, "unlock", ref)
	return s.apply(ctx, tx, w,
		w.BalanceAvailable.Add(moved), w.BalanceLocked.Sub(moved),
		moved, ports.TreasuryDelta{}, domain.AuditOpUnlock, ref)
}

// SettleTx removes amount from locked entirely (approved payout path).
// delta carries the burn. Clamps like UnlockTx.
func (s *LedgerService) SettleTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet, amount decimal.Decimal, delta ports.TreasuryDelta, op domain.AuditOperation, ref *uuid.UUID) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.ErrInvalidAmount()
	}
	moved := s.clampToLocked(w, amount, "settle", ref)
	return s.apply(ctx, tx, w,
		w.BalanceAvailable, w.BalanceLocked.Sub(moved),
		moved, delta, op, ref)
}

// Credit runs CreditTx as its own atomic transaction against walletID.
func (s *LedgerService) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, op domain.AuditOperation, ref *uuid.UUID) error {
	return s.standalone(ctx, walletID, func(tx pgx.Tx, w *domain.Wallet) error {
		return s.CreditTx(ctx, tx, w, amount, ports.TreasuryDelta{}, op, ref)
	})
}

// Debit runs DebitTx as its own atomic transaction against walletID.
func (s *LedgerService) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, op domain.AuditOperation, ref *uuid.UUID) error {
	return s.standalone(ctx, walletID, func(tx pgx.Tx, w *domain.Wallet) error {
		return s.DebitTx(ctx, tx, w, amount, ports.TreasuryDelta{}, op, ref)
	})
}

// Lock runs LockTx as its own atomic transaction against walletID.
func (s *LedgerService) Lock(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.standalone(ctx, walletID, func(tx pgx.Tx, w *domain.Wallet) error {
		return s.LockTx(ctx, tx, w, amount, ref)
	})
}

// Unlock runs UnlockTx as its own atomic transaction against walletID.
func (s *LedgerService) Unlock(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.standalone(ctx, walletID, func(tx pgx.Tx, w *domain.Wallet) error {
		return s.UnlockTx(ctx, tx, w, amount, ref)
	})
}

// Settle runs SettleTx as its own atomic transaction against walletID.
func (s *LedgerService) Settle(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, ref *uuid.UUID) error {
	return s.standalone(ctx, walletID, func(tx pgx.Tx, w *domain.Wallet) error {
		return s.SettleTx(ctx, tx, w, amount, ports.TreasuryDelta{}, domain.AuditOpSettle, ref)
	})
}

// clampToLocked caps amount at the wallet's locked balance, logging when
// the cap fires.
func (s *LedgerService) clampToLocked(w *domain.Wallet, amount decimal.Decimal, op string, ref *uuid.UUID) decimal.Decimal {
	if w.BalanceLocked.GreaterThanOrEqual(amount) {
		return amount
	}
	evt := s.log.Error().
		Str("wallet_id", w.ID.String()).
		Str("op", op).
		Str("locked", w.BalanceLocked.String()).
		Str("amount", amount.String())
	if ref != nil {
		evt = evt.Str("reference", ref.String())
	}
	evt.Msg("locked balance below requested amount, clamping to zero")
	return w.BalanceLocked
}

// apply writes the new balances, the treasury delta, and the paired audit
// row inside tx, then refreshes the caller's wallet copy.
func (s *LedgerService) apply(ctx context.Context, tx pgx.Tx, w *domain.Wallet, newAvailable, newLocked, amount decimal.Decimal, delta ports.TreasuryDelta, op domain.AuditOperation, ref *uuid.UUID) error {
	if newAvailable.IsNegative() || newLocked.IsNegative() {
		return apperror.InternalError(fmt.Errorf("balance invariant violated: available=%s locked=%s", newAvailable, newLocked))
	}

	if err := s.wallets.UpdateBalances(ctx, tx, w.ID, newAvailable, newLocked); err != nil {
		return apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	var supplyBefore, supplyAfter decimal.Decimal
	if delta.IsZero() {
		t, err := s.treasury.GetTx(ctx, tx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("read treasury: %w", err))
		}
		supplyBefore, supplyAfter = t.TotalSupply, t.TotalSupply
	} else {
		t, err := s.treasury.ApplyDelta(ctx, tx, delta)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("apply treasury delta: %w", err))
		}
		supplyAfter = t.TotalSupply
		supplyBefore = supplyAfter.Sub(delta.TotalSupply)
	}

	audit := &domain.MintBurnAudit{
		ID:                uuid.New(),
		WalletID:          w.ID,
		Operation:         op,
		Amount:            amount,
		BalanceBefore:     w.TotalBalance(),
		BalanceAfter:      newAvailable.Add(newLocked),
		TotalSupplyBefore: supplyBefore,
		TotalSupplyAfter:  supplyAfter,
		Reference:         ref,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.audits.Create(ctx, tx, audit); err != nil {
		return apperror.InternalError(fmt.Errorf("write audit: %w", err))
	}

	w.BalanceAvailable = newAvailable
	w.BalanceLocked = newLocked
	return nil
}

// standalone wraps a primitive in its own begin/lock/commit cycle.
func (s *LedgerService) standalone(ctx context.Context, walletID uuid.UUID, fn func(tx pgx.Tx, w *domain.Wallet) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	w, err := s.wallets.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if w == nil {
		return apperror.ErrNotFound("wallet")
	}

	if err := fn(tx, w); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
