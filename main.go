package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-coupons/internal/analytics"
	analytics_api "ms-coupons/internal/analytics/api"
	"ms-coupons/internal/auth"
	"ms-coupons/internal/cleanup"
	"ms-coupons/internal/config"
	"ms-coupons/internal/database/migrations"
	"ms-coupons/internal/kafka"
	"ms-coupons/internal/logger"
	"ms-coupons/internal/ratelimit"
	"ms-coupons/internal/redemption"
	redemption_db "ms-coupons/internal/redemption/db"
	"ms-coupons/internal/redemption/redemption_api"
	"ms-coupons/internal/share"
	share_db "ms-coupons/internal/share/db"
	"ms-coupons/internal/share/share_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Coupon Redemption Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("DATABASE", "Running database migrations")
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: "./migrations",
			AutoMigrate:   true,
		})
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
		defer producer.Close()
	} else {
		logger.Info("KAFKA", "Kafka publishing disabled, analytics events stay in the database only")
	}

	redemptionStore := &redemption_db.DB{Bun: bunDB}
	shareStore := &share_db.DB{Bun: bunDB}

	// kafka.Producer is *T; passing a typed nil interface would defeat the
	// nil checks inside the services.
	var redemptionPublisher redemption.EventPublisher
	var sharePublisher share.EventPublisher
	if producer != nil {
		redemptionPublisher = producer
		sharePublisher = producer
	}

	redemptionService := redemption.NewService(redemptionStore, redemptionPublisher, logger)
	shareService := share.NewService(shareStore, sharePublisher, logger, cfg.Redemption.TokenTTL)
	analyticsService := analytics.NewService(bunDB)

	redemptionHandler := redemption_api.NewHandler(redemptionService, logger)
	shareHandler := share_api.NewHandler(shareService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, bunDB, logger)

	limiter := ratelimit.NewLimiter(redisClient, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// --- Public Routes ---
	r.Group(func(r chi.Router) {
		r.Use(limiter.Limit("issue", cfg.RateLimit.IssueMax, cfg.RateLimit.Window))
		r.Get("/redeem/{shareId}", shareHandler.Redeem)
	})
	r.Group(func(r chi.Router) {
		r.Use(limiter.Limit("validate", cfg.RateLimit.ValidateMax, cfg.RateLimit.Window))
		r.Post("/redemption/validate", redemptionHandler.Validate)
	})
	r.Group(func(r chi.Router) {
		r.Use(limiter.Limit("confirm", cfg.RateLimit.ConfirmMax, cfg.RateLimit.Window))
		r.Post("/redemption/confirm", redemptionHandler.Confirm)
	})
	r.Post("/shares/{shareId}/track", shareHandler.Track)
	r.Get("/shares/{shareId}/qr", shareHandler.QR)
	logger.Info("ROUTER", "Public redemption endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			// Staff confirm shares the handler; the missing shareId routes it
			// down the ownership-checked path.
			r.Post("/redemption/confirm", redemptionHandler.Confirm)
			analyticsHandler.RegisterRoutes(r)
		})
		logger.Info("ROUTER", "Staff routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweeper := cleanup.NewSweeper(redemptionStore, logger, cfg.Redemption.CleanupInterval)
	go sweeper.Run(sweepCtx)
	logger.Info("CLEANUP", fmt.Sprintf("Token sweeper started with interval %s", cfg.Redemption.CleanupInterval))

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Coupon Redemption Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancelSweep()
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Coupon Redemption Service shutdown complete")
	}
}
