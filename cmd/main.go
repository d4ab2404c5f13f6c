package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/config"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/db/migrate"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/cookie"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/middleware"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository/memory"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository/postgres"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/service"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/jwt"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/logger"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/throttle"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/validator"
)

func main() {
	// Missing signing secrets abort here, before anything listens.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Server.LogLevel, cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	userRepo, sessionRepo, closeStore, err := initStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	var loginThrottle service.LoginThrottle
	if cfg.Redis.Enabled {
		redisClient, err := initRedis(cfg)
		if err != nil {
			zapLogger.Fatal("failed to initialize redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("error closing redis connection", zap.Error(err))
			}
		}()
		loginThrottle = throttle.NewLoginThrottle(redisClient, cfg.Auth.MaxFailedLogins, cfg.Auth.LockDuration)
		zapLogger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr()))
	} else {
		zapLogger.Info("redis disabled; login throttling is off")
	}

	tokenService, err := jwt.NewTokenService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.Issuer)
	if err != nil {
		zapLogger.Fatal("failed to initialize token service", zap.Error(err))
	}

	validate := validator.NewValidator()
	jar := cookie.NewJar(cfg.Server.IsProduction())

	// Initialize services
	authService := service.NewAuthService(userRepo, sessionRepo, tokenService, loginThrottle, cfg,
		logger.WithComponent(zapLogger, "auth"))
	sessionService := service.NewSessionService(userRepo, sessionRepo, tokenService, cfg,
		logger.WithComponent(zapLogger, "session"))
	userService := service.NewUserService(userRepo, logger.WithComponent(zapLogger, "user"))

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, sessionService, validate, jar,
		logger.WithComponent(zapLogger, "auth_handler"))
	userHandler := handler.NewUserHandler(userService, validate)
	healthHandler := handler.NewHealthHandler(userRepo)

	app := fiber.New(fiber.Config{
		AppName:               "j-pani-paicha auth",
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler(zapLogger, cfg.Server.IsProduction()),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	app.Use(middleware.LoggerMiddleware(logger.WithComponent(zapLogger, "http")))
	app.Use(middleware.RecoveryMiddleware(zapLogger))
	app.Use(middleware.CORSMiddleware(cfg))

	handler.SetupRoutes(
		app,
		authHandler,
		userHandler,
		healthHandler,
		middleware.Protect(sessionService, jar),
		middleware.SecurityHeaders(),
		adaptor.HTTPHandler(promhttp.Handler()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		zapLogger.Info("server starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := app.Listen(addr); err != nil {
			zapLogger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("server stopped")
}

// initStore opens the configured user store and returns a close function.
func initStore(cfg *config.Config, zapLogger *zap.Logger) (repository.UserRepository, repository.SessionRepository, func(), error) {
	if cfg.Database.Driver == config.StoreDriverMemory {
		zapLogger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return store, store, func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrate.Up(cfg.Database.URL()); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		zapLogger.Info("database migrations applied")
	}

	db, err := initDB(cfg, zapLogger)
	if err != nil {
		return nil, nil, nil, err
	}
	zapLogger.Info("database connection established")

	closeDB := func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("error closing database connection", zap.Error(err))
		}
	}

	return postgres.NewUserRepository(db), postgres.NewSessionRepository(db), closeDB, nil
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config, zapLogger *zap.Logger) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		zapLogger.Warn("failed to connect to database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
