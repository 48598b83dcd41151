package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kobo-pay/kobo_pay/internal/auth"
	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/middleware"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/payout"
	"github.com/kobo-pay/kobo_pay/internal/paystack"
	"github.com/kobo-pay/kobo_pay/internal/storage"
	"github.com/kobo-pay/kobo_pay/internal/transfer"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Outside of dev the
// database and Redis are mandatory; in dev missing backends fall back to
// in-memory implementations.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		txManager  storage.TxManager
		walletRepo wallet.Repository
		trxRepo    ledger.Repository
		userRepo   identity.Repository
	)
	if d.DB != nil {
		txManager = storage.NewPgxManager(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		trxRepo = ledger.NewPostgresRepository(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		txManager = storage.NewMemoryManager()
		walletRepo = wallet.NewMemoryRepository()
		trxRepo = ledger.NewMemoryRepository()
		userRepo = identity.NewMemoryRepository()
	}

	var gateway payout.Gateway
	if d.Cfg.PaystackSecretKey != "" {
		gateway = paystack.NewClient(d.Cfg.PaystackBaseURL, d.Cfg.PaystackSecretKey, d.Cfg.GatewayTimeout)
	} else {
		gateway = payout.Static{}
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(userRepo)
	authSvc := auth.NewService(d.Cfg, userRepo)
	walletSvc := wallet.NewService(walletRepo, trxRepo, gateway)
	transferSvc := transfer.NewService(txManager, walletRepo, trxRepo, gateway, notifier)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc, walletSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	transferHandler := transfer.NewHandler(transferSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterWebhookRoutes(api, transferHandler)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(d.Cfg, userRepo))
	protected.Get("/me", identityHandler.Me)
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterWalletRoutes(protected, walletHandler)

	// Mutating routes replay stored responses when a request is retried with
	// the same Idempotency-Key. The webhook stays outside this group: provider
	// retries carry no key and are deduplicated by settlement status instead.
	mutating := protected
	if d.Cache != nil {
		mutating = protected.Group("", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	mutating.Post("/wallet", walletHandler.Create)
	RegisterTransferRoutes(mutating, transferHandler)

	return nil
}
