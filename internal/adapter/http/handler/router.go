package handler

import (
	"jvc-ledger/internal/adapter/http/middleware"
	redisStore "jvc-ledger/internal/adapter/storage/redis"
	"jvc-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DepositSvc     ports.DepositService
	TransferSvc    ports.TransferService
	WithdrawalSvc  ports.WithdrawalService
	SettlementSvc  ports.SettlementService
	WalletRepo     ports.WalletRepository
	TreasuryRepo   ports.TreasuryRepository
	SigSvc         ports.SignatureService
	WebhookSecret  string
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Internal service routes ---
	depositHandler := NewDepositHandler(deps.DepositSvc)
	transferHandler := NewTransferHandler(deps.TransferSvc)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	walletHandler := NewWalletHandler(deps.WalletRepo)

	v1.POST("/deposits", rl("deposits"), depositHandler.RequestDeposit)
	v1.POST("/transfers", rl("transfers"), transferHandler.Transfer)
	v1.POST("/withdrawals", rl("withdrawals"), withdrawalHandler.Request)
	v1.GET("/wallets/:owner_type/:owner_id", rl("wallets"), walletHandler.GetByOwner)

	// --- Processor webhook (HMAC-verified) ---
	webhookHandler := NewWebhookHandler(deps.DepositSvc)
	webhookAuth := middleware.WebhookAuth(deps.SigSvc, deps.WebhookSecret, deps.Logger)
	v1.POST("/webhooks/payments", rl("webhooks"), webhookAuth, webhookHandler.PaymentEvent)

	// --- Admin routes (JWT-authenticated) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminHandler := NewAdminHandler(deps.SettlementSvc, deps.TreasuryRepo, deps.WalletRepo)

	admin := v1.Group("/admin", jwtAuth)
	{
		admin.POST("/withdrawals/:id/transition", rl("admin"), withdrawalHandler.Transition)
		admin.GET("/treasury", rl("admin"), adminHandler.GetTreasury)
		admin.POST("/settlements/run", rl("admin"), adminHandler.RunSettlement)
	}

	return r
}
