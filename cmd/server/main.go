package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convo/api"
	"convo/auth"
	"convo/contract"
	"convo/internal"
	"convo/moderation"
	"convo/observability"
	"convo/repositories"
	"convo/services"
	"convo/storage"

	env "github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the server lifecycle. Keeping the
// logic out of main ensures deferred cleanup (database close, index close)
// executes on every exit path.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.LoggerLevel(),
	}))

	// 2. Storage: BadgerDB for records, Bluge for full-text search
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	blobs, err := storage.NewDiskStore(config.BlobRoot, logger)
	if err != nil {
		return exitRuntime, err
	}

	// 3. Repositories & services
	users := repositories.NewUserRepository(db)
	conversations := repositories.NewConversationRepository(db, logger)
	messages := repositories.NewMessageRepository(db, logger)
	unread := repositories.NewUnreadRepository(db, logger)
	index := repositories.NewMessageIndex(blugeWriter, logger)

	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret), config.AuthTokenDuration)
	accounts := services.NewAuthService(users, tokens)

	var censor *moderation.Moderator
	if words := config.BannedWords(); len(words) > 0 {
		censor, err = moderation.NewModerator(words, replacement)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
	}

	stats := observability.NewDeliveryStats(logger)
	delivery := services.NewDeliveryService(
		conversations, messages, unread, index, accounts, censorOrNil(censor), stats, logger)

	// 4. HTTP adapter
	server := api.NewServer(delivery, accounts, accounts, blobs, stats, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitRuntime, err
		}
	}
	return exitOK, nil
}

// censorOrNil avoids handing the service a typed nil behind the interface.
func censorOrNil(m *moderation.Moderator) contract.Censor {
	if m == nil {
		return nil
	}
	return m
}
