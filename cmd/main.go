package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/RaikyD/storefront-orders/internal/application"
	"github.com/RaikyD/storefront-orders/internal/cache"
	"github.com/RaikyD/storefront-orders/internal/config"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/kafka"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/migrate"
	"github.com/RaikyD/storefront-orders/internal/notify"
	"github.com/RaikyD/storefront-orders/internal/presentation"
	"github.com/RaikyD/storefront-orders/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Init()
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if cfg.LOG_FORMAT == "json" {
		logger.InitProduction()
	} else {
		logger.Init()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("service stopped", "err", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Storage: postgres when DB_STRING is set, in-process otherwise
	var repo repository.Store
	if cfg.DB_STRING != "" {
		if err := migrate.Up(cfg.DB_STRING); err != nil {
			return err
		}
		pool, err := pgxpool.New(ctx, cfg.DB_STRING)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		logger.Info("db connected")
		repo = repository.NewOrderRepository(pool)
	} else {
		logger.Warn("DB_STRING not set, orders are kept in memory")
		repo = repository.NewMemoryRepository()
	}

	var orderCache cache.OrderCache
	if cfg.REDIS_ADDR != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.REDIS_ADDR, Password: cfg.REDIS_PASSWORD})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		logger.Info("redis connected", "addr", cfg.REDIS_ADDR)
		orderCache = cache.NewRedisCache(rdb, cfg.CACHE_TTL)
	} else {
		orderCache = cache.NewMemoryCache()
	}

	var gw interface {
		application.Gateway
		application.Refunder
	}
	if cfg.SandboxPayments() {
		logger.Warn("razorpay keys not set, using sandbox gateway")
		gw = gateway.NewSandbox(cfg.SANDBOX_SECRET)
	} else {
		gw = gateway.NewRazorpay(cfg.RAZORPAY_KEY_ID, cfg.RAZORPAY_KEY_SECRET)
	}

	notifier, err := notify.NewNotifier(
		notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP_HOST,
			Port:     cfg.SMTP_PORT,
			User:     cfg.SMTP_USER,
			Password: cfg.SMTP_PASS,
			FromName: cfg.EMAIL_FROM_NAME,
		}),
		notify.Brand{Name: cfg.BRAND_NAME, Website: cfg.BRAND_WEBSITE},
	)
	if err != nil {
		return err
	}

	// Status events go through kafka when brokers are configured
	var publisher application.EventPublisher
	var direct *application.DirectPublisher
	if cfg.KAFKA_BROKERS != "" {
		prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
		defer prod.Close()
		publisher = prod

		if _, err := kafka.StartConsumer(ctx, notifier, kafka.ConsumerConfig{
			Brokers: cfg.KAFKA_BROKERS,
			Topic:   cfg.KAFKA_TOPIC,
			GroupID: cfg.KAFKA_GROUP_ID,
		}); err != nil {
			return err
		}
	} else {
		direct = application.NewDirectPublisher(notifier, time.Minute)
		publisher = direct
	}

	policy, err := application.ParsePolicy(cfg.ORDER_STATUS_POLICY)
	if err != nil {
		return err
	}
	svc := application.NewOrdersService(repo, gw, orderCache, publisher, application.Options{
		PlatformFee: cfg.PLATFORM_FEE,
		Currency:    cfg.CURRENCY,
		Policy:      policy,
	})

	if err := svc.RestoreCache(ctx, application.MaxListLimit); err != nil {
		logger.Warn("restore cache failed", "err", err)
	}

	returns := application.NewReturnsService(repo, repo, gw)

	h := presentation.NewOrdersHandler(svc, cfg.ADMIN_JWT_SECRET)
	rh := presentation.NewReturnsHandler(returns, cfg.ADMIN_JWT_SECRET)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP_PORT,
		Handler:           presentation.NewRouter(h, cfg.REQUEST_TIMEOUT, rh),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http", "addr", srv.Addr, "policy", policy, "sandbox", cfg.SandboxPayments())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if direct != nil {
		direct.Wait()
	}
	return err
}
