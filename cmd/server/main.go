package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Jatyon/bid-battle/internal/cleanup"
	"github.com/Jatyon/bid-battle/internal/config"
	"github.com/Jatyon/bid-battle/internal/httpserver"
	"github.com/Jatyon/bid-battle/internal/i18n"
	"github.com/Jatyon/bid-battle/internal/infrastructure/mailer"
	"github.com/Jatyon/bid-battle/internal/infrastructure/postgres"
	"github.com/Jatyon/bid-battle/internal/infrastructure/token"
	authusecase "github.com/Jatyon/bid-battle/internal/usecase/auth"
	resettokenusecase "github.com/Jatyon/bid-battle/internal/usecase/resettoken"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rootCtx := context.Background()
	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		logger.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}

	translator, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		logger.Error("failed to load locale catalogs", "error", err)
		os.Exit(1)
	}

	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.JWTIssuer)
	hasher := authusecase.NewBcryptHasher(cfg.BcryptCost)
	ledger := resettokenusecase.NewService(postgres.NewResetTokenRepository(db.Pool))
	mail := mailer.New(mailer.Config{
		APIKey:      cfg.MailAPIKey,
		From:        cfg.MailFrom,
		BaseURL:     cfg.MailBaseURL,
		FrontendURL: cfg.FrontendURL,
	}, translator, logger)

	authService := authusecase.NewService(
		postgres.NewUserRepository(db.Pool),
		tokenManager,
		hasher,
		ledger,
		mail,
		logger,
		cfg.ResetTokenTTL,
	)

	server := httpserver.NewServer(cfg, authService, translator)
	logger.Info("HTTP server listening", "addr", server.Addr())

	workerCtx, stopWorkers := context.WithCancel(rootCtx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		mail.Run(workerCtx)
	}()

	sweeper := cleanup.NewScheduler(ledger, cfg.CleanupInterval, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(workerCtx)
	}()

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("HTTP server closed")
				return
			}
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("graceful shutdown completed")
	}

	stopWorkers()
	wg.Wait()
}
