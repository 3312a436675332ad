package service

import (
	"context"
	"fmt"
	"time"

	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// eventDedupeTTL bounds how long a processed webhook event id stays in the
// dedupe store. Processors retry for at most a few days.
const eventDedupeTTL = 72 * time.Hour

// DepositServiceImpl implements ports.DepositService. Deposits mint units:
// an external USD payment confirmed by the processor credits the owner's
// wallet and grows total supply by the same amount.
type DepositServiceImpl struct {
	ledger     *LedgerService
	deposits   ports.DepositRepository
	wallets    ports.WalletRepository
	treasury   ports.TreasuryRepository
	txRepo     ports.TransactionRepository
	dedupe     ports.EventDedupe
	processor  ports.PaymentProcessor
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	ledger *LedgerService,
	deposits ports.DepositRepository,
	wallets ports.WalletRepository,
	treasury ports.TreasuryRepository,
	txRepo ports.TransactionRepository,
	dedupe ports.EventDedupe,
	processor ports.PaymentProcessor,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		ledger:     ledger,
		deposits:   deposits,
		wallets:    wallets,
		treasury:   treasury,
		txRepo:     txRepo,
		dedupe:     dedupe,
		processor:  processor,
		transactor: transactor,
		log:        log,
	}
}

// RequestDeposit creates a payment intent with the external processor and
// records a pending deposit keyed by the intent id. No units are minted
// until the processor confirms payment via webhook.
func (s *DepositServiceImpl) RequestDeposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositInitiation, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.OwnerType.Valid() {
		return nil, apperror.Validation("unknown owner type")
	}
	if req.Currency != "USD" {
		return nil, apperror.Validation("only USD deposits are supported")
	}
	if !req.Method.Valid() {
		return nil, apperror.Validation("unknown deposit method")
	}

	rec := &domain.DepositRecord{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		OwnerType: req.OwnerType,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Method:    req.Method,
		Status:    domain.DepositStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	intent, err := s.processor.CreateIntent(ctx, ports.IntentRequest{
		ReferenceID: rec.ID.String(),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      req.Method,
	})
	if err != nil {
		return nil, apperror.ErrExternalProcessor(err)
	}
	rec.PaymentIntentID = intent.IntentID
	if intent.RedirectURL != "" {
		rec.RedirectURL = &intent.RedirectURL
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.deposits.Create(ctx, dbTx, rec); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}
	if _, err := s.treasury.ApplyDelta(ctx, dbTx, ports.TreasuryDelta{PendingDeposits: req.Amount}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply pending delta: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("deposit_id", rec.ID.String()).
		Str("payment_intent_id", rec.PaymentIntentID).
		Str("amount", req.Amount.String()).
		Msg("deposit initiated")

	return &ports.DepositInitiation{
		ReferenceID:  rec.ID,
		IntentID:     rec.PaymentIntentID,
		RedirectURL:  intent.RedirectURL,
		Instructions: intent.Instructions,
	}, nil
}

// ConfirmPayment processes a payment-succeeded webhook event. It is safe to
// call any number of times for the same event or intent: replays and unknown
// intents are acknowledged without minting.
func (s *DepositServiceImpl) ConfirmPayment(ctx context.Context, eventID, paymentIntentID string) error {
	if eventID != "" && s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, eventID)
		if err != nil {
			// Dedupe store down: fall through, the status gate below
			// still prevents double credit.
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("event dedupe unavailable")
		} else if seen {
			s.log.Info().Str("event_id", eventID).Msg("duplicate webhook event ignored")
			return nil
		}
	}

	rec, err := s.deposits.GetByIntentID(ctx, paymentIntentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find deposit: %w", err))
	}
	if rec == nil {
		s.log.Info().Str("payment_intent_id", paymentIntentID).Msg("webhook for unknown intent ignored")
		return nil
	}
	if rec.Status != domain.DepositStatusPending {
		s.markEvent(ctx, eventID)
		return nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	fresh, err := s.deposits.MarkCompleted(ctx, dbTx, rec.ID, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("mark deposit completed: %w", err))
	}
	if !fresh {
		// Lost the race to a concurrent delivery of the same intent.
		s.markEvent(ctx, eventID)
		return nil
	}

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, dbTx, rec.OwnerID, rec.OwnerType)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		// First deposit for this owner. The insert is conflict-tolerant, so
		// a concurrent confirmation creating the same wallet cannot fail
		// either delivery; locking the row again picks up whichever won.
		if err := s.wallets.Create(ctx, dbTx, domain.NewWallet(rec.OwnerID, rec.OwnerType)); err != nil {
			return apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		wallet, err = s.wallets.GetByOwnerForUpdate(ctx, dbTx, rec.OwnerID, rec.OwnerType)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.InternalError(fmt.Errorf("wallet vanished after create: owner %s", rec.OwnerID))
		}
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		ToWalletID:  &wallet.ID,
		Amount:      rec.Amount,
		Fee:         decimal.Zero,
		Type:        domain.TransactionTypeDeposit,
		Status:      domain.TransactionStatusCompleted,
		Reference:   &rec.ID,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	mint := ports.TreasuryDelta{
		TotalSupply:     rec.Amount,
		TotalUSDBacking: rec.Amount,
		PendingDeposits: rec.Amount.Neg(),
	}
	if err := s.ledger.CreditTx(ctx, dbTx, wallet, rec.Amount, mint, domain.AuditOpDeposit, &txn.ID); err != nil {
		return err
	}
	if err := s.wallets.StampDeposit(ctx, dbTx, wallet.ID, now); err != nil {
		return apperror.InternalError(fmt.Errorf("stamp deposit: %w", err))
	}

	entries := []domain.LedgerEntry{
		{ID: uuid.New(), TransactionID: txn.ID, WalletID: wallet.ID, Direction: domain.LedgerCredit, Amount: rec.Amount, CreatedAt: now},
	}
	if err := s.txRepo.CreateEntries(ctx, dbTx, entries); err != nil {
		return apperror.InternalError(fmt.Errorf("create ledger entries: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Only a committed event is recorded: a delivery that failed mid-flight
	// stays unmarked so the processor's retry can finish the job.
	s.markEvent(ctx, eventID)

	s.log.Info().
		Str("deposit_id", rec.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", rec.Amount.String()).
		Msg("deposit confirmed, units minted")

	return nil
}

func (s *DepositServiceImpl) markEvent(ctx context.Context, eventID string) {
	if eventID == "" || s.dedupe == nil {
		return
	}
	if err := s.dedupe.Mark(ctx, eventID, eventDedupeTTL); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("event dedupe mark failed")
	}
}
