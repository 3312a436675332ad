package service

import (
	"bytes"
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

// TransferServiceImpl implements ports.TransferService. A transfer debits
// the sender amount+fee, credits the recipient amount, and moves the fee
// from circulating supply into the treasury fee pool — all in one database
// transaction, so any failure restores the exact pre-transfer state.
type TransferServiceImpl struct {
	ledger     *LedgerService
	wallets    ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	orders     ports.OrderCallback // nil = no POS callback
	fee        decimal.Decimal
	log        zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	ledger *LedgerService,
	wallets ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	orders ports.OrderCallback,
	fee decimal.Decimal,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		ledger:     ledger,
		wallets:    wallets,
		txRepo:     txRepo,
		transactor: transactor,
		orders:     orders,
		fee:        fee,
		log:        log,
	}
}

// Transfer moves funds from a user wallet to a user or venue wallet.
// Venue recipient wallets are created on first payment.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.RecipientType.Valid() {
		return nil, apperror.Validation("unknown recipient type")
	}
	if req.RecipientType == domain.OwnerTypeUser && req.SenderID == req.RecipientID {
		return nil, apperror.Validation("cannot transfer to own wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sender, recipient, err := s.lockPair(ctx, dbTx, req)
	if err != nil {
		return nil, err
	}

	if sender.IsFrozen || recipient.IsFrozen {
		return nil, apperror.ErrWalletFrozen()
	}

	total := req.Amount.Add(s.fee)
	if sender.BalanceAvailable.LessThan(total) {
		return nil, apperror.ErrInsufficientFunds(sender.BalanceAvailable.String(), total.String())
	}

	now := time.Now().UTC()
	txnType := domain.TransactionTypeTransfer
	if req.OrderID != nil {
		txnType = domain.TransactionTypePayment
	}
	txn := &domain.Transaction{
		ID:           uuid.New(),
		FromWalletID: &sender.ID,
		ToWalletID:   &recipient.ID,
		Amount:       req.Amount,
		Fee:          s.fee,
		Type:         txnType,
		Status:       domain.TransactionStatusCompleted,
		OrderID:      req.OrderID,
		CreatedAt:    now,
		ProcessedAt:  &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	// The fee leaves circulating supply and accrues to the fee pool, so
	// total_supply keeps matching the sum of wallet balances.
	feeDelta := ports.TreasuryDelta{
		TotalSupply:   s.fee.Neg(),
		CollectedFees: s.fee,
	}
	if err := s.ledger.DebitTx(ctx, dbTx, sender, total, feeDelta, domain.AuditOpTransfer, &txn.ID); err != nil {
		return nil, err
	}
	if err := s.ledger.CreditTx(ctx, dbTx, recipient, req.Amount, ports.TreasuryDelta{}, domain.AuditOpTransfer, &txn.ID); err != nil {
		return nil, err
	}

	// A completed purchase after the latest deposit unlocks withdrawal
	// eligibility for the sender.
	if err := s.wallets.StampSpend(ctx, dbTx, sender.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("stamp spend: %w", err))
	}

	entries := []domain.LedgerEntry{
		{ID: uuid.New(), TransactionID: txn.ID, WalletID: sender.ID, Direction: domain.LedgerDebit, Amount: total, CreatedAt: now},
		{ID: uuid.New(), TransactionID: txn.ID, WalletID: recipient.ID, Direction: domain.LedgerCredit, Amount: req.Amount, CreatedAt: now},
	}
	if err := s.txRepo.CreateEntries(ctx, dbTx, entries); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entries: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if req.OrderID != nil && s.orders != nil {
		if err := s.orders.MarkOrderPaid(ctx, *req.OrderID, txn.ID); err != nil {
			s.log.Warn().Err(err).Str("order_id", *req.OrderID).Msg("order paid callback failed")
		}
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("sender_wallet", sender.ID.String()).
		Str("recipient_wallet", recipient.ID.String()).
		Str("amount", req.Amount.String()).
		Str("fee", s.fee.String()).
		Msg("transfer completed")

	return txn, nil
}

// lockPair resolves both wallets and locks their rows in ascending wallet-id
// order, so two transfers touching the same pair cannot deadlock.
func (s *TransferServiceImpl) lockPair(ctx context.Context, dbTx pgx.Tx, req ports.TransferRequest) (sender, recipient *domain.Wallet, err error) {
	sender, err = s.wallets.GetByOwner(ctx, req.SenderID, domain.OwnerTypeUser)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("find sender wallet: %w", err))
	}
	if sender == nil {
		return nil, nil, apperror.ErrNotFound("sender wallet")
	}

	recipient, err = s.wallets.GetByOwner(ctx, req.RecipientID, req.RecipientType)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("find recipient wallet: %w", err))
	}
	if recipient == nil {
		if req.RecipientType != domain.OwnerTypeVenue {
			return nil, nil, apperror.ErrNotFound("recipient wallet")
		}
		// Venue wallets spring into existence on first payment. The insert
		// is conflict-tolerant, so two first payments to the same venue
		// both succeed; the re-fetch resolves which row won.
		if err := s.wallets.Create(ctx, dbTx, domain.NewWallet(req.RecipientID, domain.OwnerTypeVenue)); err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("create venue wallet: %w", err))
		}
		recipient, err = s.wallets.GetByOwnerForUpdate(ctx, dbTx, req.RecipientID, domain.OwnerTypeVenue)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock venue wallet: %w", err))
		}
		if recipient == nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("venue wallet vanished after create: owner %s", req.RecipientID))
		}
	}

	firstID, secondID := sender.ID, recipient.ID
	if bytes.Compare(secondID[:], firstID[:]) < 0 {
		firstID, secondID = secondID, firstID
	}

	byID := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range []uuid.UUID{firstID, secondID} {
		w, err := s.wallets.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			return nil, nil, apperror.ErrNotFound("wallet")
		}
		byID[id] = w
	}

	return byID[sender.ID], byID[recipient.ID], nil
}
