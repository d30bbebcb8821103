package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	ReportingSvc   ports.ReportingService
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
	r.Use(middleware.RequestID())
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

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	reportingHandler := NewReportingHandler(deps.ReportingSvc)

	// API v1 routes
	v1 := r.Group("/api/v1")

	v1.POST("/transfers", rl("transfers"), ledgerHandler.Transfer)

	wallets := v1.Group("/wallets")
	{
		wallets.GET("", rl("reports"), reportingHandler.Overview)
		wallets.GET("/latest-transactions", rl("reports"), reportingHandler.LatestTransactions)
		wallets.GET("/:id/balance", rl("reports"), reportingHandler.GetBalance)
		wallets.POST("/:id/deposit", rl("deposits"), ledgerHandler.Deposit)
		wallets.POST("/:id/withdraw", rl("withdrawals"), ledgerHandler.Withdraw)
	}

	return r
}
