package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"nanum/docs"
	"nanum/internal/auth"
	"nanum/internal/cache"
	"nanum/internal/config"
	"nanum/internal/db"
	"nanum/internal/handler"
	"nanum/internal/logging"
	"nanum/internal/mail"
	"nanum/internal/provider"
	"nanum/internal/repository"
	"nanum/internal/router"
	"nanum/internal/service"
)

// @title Nanum Auth API
// @version 1.0
// @description Signup, email verification, sessions and role-based approval for the nonprofit community site.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the webhook JWT.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	local := cfg.CredentialBackend != config.ProviderSupabase
	if cfg.ResetDB {
		logger.Warn(ctx, "RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB, local); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	verificationRepo := repository.NewVerificationRepository(gormDB)
	categoryRepo := repository.NewCategoryRepository(gormDB)

	// Credential store
	var store provider.CredentialStore
	if local {
		store = provider.NewLocal(
			repository.NewCredentialRepository(gormDB),
			auth.NewJWTService(cfg.TokenSecret, cfg.VerificationTTL),
			mail.NewPublisher(cfg.AMQPURL, cfg.MailQueue),
			provider.LocalOptions{
				RedirectURL:    cfg.EmailRedirectURL,
				BcryptCost:     cfg.BcryptCost,
				AllowPlaintext: cfg.PlaintextLoginAllowed(),
			},
		)
	} else {
		store = provider.NewSupabase(provider.SupabaseConfig{
			URL:         cfg.SupabaseURL,
			AnonKey:     cfg.SupabaseAnonKey,
			ServiceKey:  cfg.SupabaseServiceKey,
			RedirectURL: cfg.EmailRedirectURL,
		})
	}
	if cfg.PlaintextLoginAllowed() {
		logger.Warn(ctx, "plaintext password login is enabled for development seeds")
	}
	logger.Info(ctx, "credential store selected", "backend", cfg.CredentialBackend)

	// Initialize services
	sessions := auth.NewSessionStore(cacheClient, cfg.SessionTTL)
	userService := service.NewUserService(userRepo, cacheClient, logger)
	signupService := service.NewSignupService(
		userRepo,
		verificationRepo,
		store,
		cache.NewVerificationNotifier(cacheClient),
		logger,
		cfg.VerificationTTL,
	)
	authService := service.NewAuthService(userRepo, userService, store, sessions, logger)
	adminService := service.NewAdminService(userRepo, userService, logger)
	boardService := service.NewBoardService(categoryRepo)

	go service.RunSweeper(ctx, signupService, cfg.SweepInterval, logger)

	// Initialize handlers
	cookies := auth.CookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: cfg.IsProduction(),
		TTL:    cfg.SessionTTL,
	}
	authHandler := handler.NewAuthHandler(signupService, authService, cookies, cfg.LongPollTimeout, logger)
	adminHandler := handler.NewAdminHandler(adminService, logger)
	boardHandler := handler.NewBoardHandler(boardService, logger)

	checks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": cacheClient.Ping,
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, authService, cacheClient.Redis(), authHandler, adminHandler, boardHandler, checks)

	logger.Info(ctx, "swagger documentation available", "url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html")

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
