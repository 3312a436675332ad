package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jvc-ledger/config"
	httpHandler "jvc-ledger/internal/adapter/http/handler"
	"jvc-ledger/internal/adapter/processor"
	pgStorage "jvc-ledger/internal/adapter/storage/postgres"
	redisStorage "jvc-ledger/internal/adapter/storage/redis"
	"jvc-ledger/internal/adapter/venue"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/internal/service"
	settlementWorker "jvc-ledger/internal/worker/settlement"
	"jvc-ledger/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting JVC Ledger")

	transferFee, err := cfg.Ledger.TransferFeeAmount()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid transfer fee")
	}
	withdrawalFee, err := cfg.Ledger.WithdrawalFeeAmount()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid withdrawal fee")
	}
	venueMin, err := cfg.Ledger.VenueMinBalanceAmount()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid venue minimum balance")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	treasuryRepo := pgStorage.NewTreasuryRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	depositRepo := pgStorage.NewDepositRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	eventDedupe := redisStorage.NewEventDedupe(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// External integrations
	processorClient := processor.NewClient(cfg.Processor, log)
	var orderCallback ports.OrderCallback
	if cfg.Venue.CallbackBaseURL != "" {
		orderCallback = venue.NewClient(cfg.Venue, log)
	}

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, treasuryRepo, auditRepo, transactor, log)
	depositSvc := service.NewDepositService(ledgerSvc, depositRepo, walletRepo, treasuryRepo, txRepo, eventDedupe, processorClient, transactor, log)
	transferSvc := service.NewTransferService(ledgerSvc, walletRepo, txRepo, transactor, orderCallback, transferFee, log)
	withdrawalSvc := service.NewWithdrawalService(ledgerSvc, walletRepo, withdrawalRepo, treasuryRepo, txRepo, transactor, withdrawalFee, cfg.Ledger.EligibilityWindow, venueMin, log)
	settlementSvc := service.NewSettlementService(withdrawalRepo, withdrawalSvc, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DepositSvc:     depositSvc,
		TransferSvc:    transferSvc,
		WithdrawalSvc:  withdrawalSvc,
		SettlementSvc:  settlementSvc,
		WalletRepo:     walletRepo,
		TreasuryRepo:   treasuryRepo,
		SigSvc:         sigSvc,
		WebhookSecret:  cfg.Processor.WebhookSecret,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	// HTTP server
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Settlement worker
	if cfg.Settlement.Enabled {
		worker := settlementWorker.New(settlementSvc, cfg.Settlement, log)
		g.Go(func() error {
			if err := worker.Run(gCtx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	// Graceful shutdown on signal or component failure
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Server stopped")
}
