package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldbooking/internal/config"
	"fieldbooking/internal/database"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/middleware"
	"fieldbooking/internal/modules/availability"
	"fieldbooking/internal/modules/booking"
	"fieldbooking/internal/modules/payment"
	"fieldbooking/internal/pkg/jwt"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/pkg/vnpay"
	"fieldbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	os.Exit(start())
}

// start returns the process exit code so deferred cleanup runs before os.Exit.
func start() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("database migrated", zap.String("dialect", database.Dialect(db)))
	}

	locker, closeLocker, err := newLocker(cfg, db, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	if cfg.VNPayTmnCode == "" {
		log.Warn("VNPAY_TMN_CODE is empty; paid bookings will fail until the gateway is configured")
	}
	gateway := vnpay.New(vnpay.Config{
		TmnCode:     cfg.VNPayTmnCode,
		HashSecret:  cfg.VNPayHashSecret,
		BaseURL:     cfg.VNPayURL,
		ReturnURL:   cfg.VNPayReturnURL,
		ExpireAfter: cfg.VNPayExpireTTL,
	})

	store := repository.NewStore(db)
	tokens := jwt.New(cfg.JWTSecret, cfg.JWTTTL)
	hub := availability.NewHub(log)
	defer hub.Close()

	bookingService := booking.NewService(store, locker, gateway, hub, log, booking.Config{
		Location:       loc,
		PaymentTimeout: cfg.PaymentTimeout,
		PaymentHoldTTL: cfg.PaymentHoldTTL,
	})
	paymentService := payment.NewService(store, gateway, log)

	bookingHandler := booking.NewHandler(bookingService, log)
	paymentHandler := payment.NewHandler(paymentService, log)
	availabilityHandler := availability.NewHandler(hub, bookingService, tokens, cfg.Origins(), log)

	if logger.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.Origins()),
		middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WriteOnly(),
	)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	protected := v1.Group("/")
	protected.Use(middleware.JWTAuth(tokens))

	bookingHandler.RegisterRoutes(v1, protected)
	paymentHandler.RegisterPublicRoutes(v1)
	paymentHandler.RegisterProtectedRoutes(protected)
	availabilityHandler.RegisterRoutes(v1)

	scheduler, err := booking.StartExpiryJob(bookingService, cfg.ExpiryInterval)
	if err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
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

	log.Info("shutting down")
	// Close websocket subscriptions first so hijacked connections do not hold Shutdown open.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLocker resolves LOCK_BACKEND. "auto" prefers postgres advisory locks, then redis, then the in-process locker.
func newLocker(cfg *config.Config, db *gorm.DB, log *zap.Logger) (lock.Locker, func(), error) {
	backend := cfg.LockBackend
	if backend == "auto" {
		switch {
		case database.Dialect(db) == "postgres":
			backend = "postgres"
		case cfg.RedisAddr != "":
			backend = "redis"
		default:
			backend = "memory"
		}
	}
	log.Info("slot locker selected", zap.String("backend", backend))

	switch backend {
	case "postgres":
		return lock.NewPostgresLocker(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return lock.NewRedisLocker(client, cfg.LockTTL), func() { _ = client.Close() }, nil
	default:
		return lock.NewMemoryLocker(), func() {}, nil
	}
}
