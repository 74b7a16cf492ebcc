package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/cache"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	middleware "github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/middlewares"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/configs"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/handlers"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	leaseKeyPrefix      = "checkout:reconcile:"
	statusCheckLimitKey = "checkout:status_check_rate"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	var signingKey []byte
	if !utils.IsEmpty(cfg.ReturnSigningKey) {
		if signingKey, err = utils.DecodeKey(cfg.ReturnSigningKey); err != nil {
			return nil, nil, err
		}
	}

	db, disconnect, err := database.New(ctx, logger, database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		ReadDSNs:   []string{cfg.ReadDbAddr},
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	})
	if err != nil {
		return nil, nil, err
	}
	if err = database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	closers := []func(){disconnect}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		redisClient *redis.Client
		locker      cache.Locker
	)
	if utils.IsEmpty(cfg.RedisAddr) {
		logger.Warn("redis_not_configured_using_local_leases")
		locker = cache.NewLocalLocker(cfg.ReconcileLockWait)
	} else {
		client, closeRedis, err := cache.New(ctx, logger, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeRedis)
		redisClient = client
		locker = cache.NewRedisLocker(client, leaseKeyPrefix, cfg.ReconcileLockTTL, cfg.ReconcileLockWait, logger)
	}
	limiter := pkg.NewDistributedLimiter(redisClient, statusCheckLimitKey, cfg.StatusCheckRateLimit, cfg.StatusCheckBurst, time.Second, logger)

	publisher, err := services.NewPaymentEventPublisher(ctx, logger, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, publisher.Close)

	settings := services.PaymentMethodSettings{
		Handle:      cfg.MerchantHandle,
		Title:       cfg.PaymentMethodTitle,
		Description: cfg.PaymentMethodDescription,
		Enabled:     cfg.PaymentMethodEnabled,
	}
	orderRepo := repositories.NewOrderRepository()
	auditRepo := repositories.NewAuditRepository()

	statusClient := services.NewPaymentStatusClient(logger, services.StatusClientConfig{
		BaseURL:     cfg.ProviderAPIBaseURL,
		Timeout:     cfg.StatusCheckTimeout,
		MaxAttempts: cfg.StatusCheckMaxAttempts,
		BaseBackoff: cfg.StatusCheckBaseBackoff,
		MaxBackoff:  cfg.StatusCheckMaxBackoff,
	})
	reconciler := services.NewReconciliationService(services.ReconciliationConfig{
		Logger:          logger,
		Store:           db,
		OrderRepo:       orderRepo,
		AuditRepo:       auditRepo,
		StatusClient:    statusClient,
		Locker:          locker,
		Limiter:         limiter,
		Publisher:       publisher,
		Settings:        settings,
		ConfirmationURL: cfg.ConfirmationURL,
		SigningKey:      signingKey,
		Timeout:         cfg.ReconcileTimeout,
	})
	checkoutService := services.NewCheckoutService(logger, db, orderRepo, settings, services.LinkOptions{
		CheckoutBaseURL: cfg.CheckoutBaseURL,
		QRCodeBaseURL:   cfg.QRCodeBaseURL,
		ReturnBaseURL:   cfg.PublicBaseURL,
		SigningKey:      signingKey,
	})
	auditService := services.NewAuditService(logger, db, auditRepo)

	baseHandler := handlers.NewBaseHandler(logger, db)
	returnHandler := handlers.NewPaymentReturnHandler(logger, reconciler)
	checkoutHandler := handlers.NewCheckoutHandler(logger, checkoutService)
	auditHandler := handlers.NewAuditHandler(logger, auditService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.Metrics())

	returnHandler.RegisterRoutes(r)
	api := r.Group("/api/v1")
	checkoutHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, cleanup, nil
}
