// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"go-books-api/config"
	"go-books-api/db"
	"go-books-api/handler"
	"go-books-api/logger"
	"go-books-api/mail"
	"go-books-api/repository"
	"go-books-api/router"
	"go-books-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// App holds the wired layers. Run builds one from config; tests build one
// around their own database and cache.
type App struct {
	DB         *sql.DB
	Router     http.Handler
	Auth       *service.AuthService
	Tokens     *service.TokenService
	Dispatcher *mail.Dispatcher
}

// New wires repositories, services and handlers together.
func New(cfg *config.Config, database *sql.DB, cache repository.ICacheClient, sender mail.Sender) (*App, error) {
	userRepo := repository.NewUserRepository(database)
	blacklistRepo := repository.NewBlacklistRepository(database)
	consumedRepo := repository.NewConsumedTokenRepository(cache)

	tokens, err := service.NewTokenService(cfg.JWT, blacklistRepo, consumedRepo)
	if err != nil {
		return nil, err
	}

	dispatcher := mail.NewDispatcher(sender)

	authService := service.NewAuthService(userRepo, tokens, dispatcher, service.AuthConfig{
		Domain:       cfg.App.Domain,
		BcryptCost:   cfg.Password.BcryptCost,
		MinEntropy:   cfg.Password.MinEntropy,
		VerifyMaxAge: cfg.JWT.VerifyMaxAge(),
		ResetMaxAge:  cfg.JWT.ResetMaxAge(),
	})
	userService := service.NewUserService(userRepo)

	authMiddleware := handler.NewAuthMiddleware(service.NewAuthGate(tokens, userRepo))
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	return &App{
		DB:         database,
		Router:     router.NewRouter(authHandler, userHandler, authMiddleware),
		Auth:       authService,
		Tokens:     tokens,
		Dispatcher: dispatcher,
	}, nil
}

// EnsureAdmin creates the configured bootstrap administrator. It does nothing
// when no admin email is configured.
func (a *App) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}
	_, err := a.Auth.EnsureAdmin(ctx, cfg.Email, cfg.Username, cfg.Password)
	return err
}

func Run() {
	logger.Init()
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath, cfg.Database.URL()); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	application, err := New(cfg, database, redisClient, mail.NewSMTPSender(cfg.Mail))
	if err != nil {
		logger.Log.Fatalf("Error wiring application: %v", err)
	}
	if err := application.EnsureAdmin(context.Background(), cfg.Admin); err != nil {
		logger.Log.Fatalf("Error creating bootstrap admin: %v", err)
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	if cfg.Blacklist.PurgeIntervalMinutes > 0 {
		go application.Tokens.RunBlacklistJanitor(janitorCtx, time.Duration(cfg.Blacklist.PurgeIntervalMinutes)*time.Minute)
	}

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
	stopJanitor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := application.Dispatcher.Wait(ctx); err != nil {
		logger.Log.WithError(err).Warn("Pending emails were not all sent before shutdown")
	}

	logger.Log.Info("Server exited properly")
}
