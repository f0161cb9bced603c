package main

import (
	"batepapo-uol-api/infrastructure/grpc/server"
	httpserver "batepapo-uol-api/infrastructure/http/server"
	"batepapo-uol-api/infrastructure/storage/sqlite"
	"batepapo-uol-api/internal"
	"batepapo-uol-api/moderation"
	"batepapo-uol-api/observability"
	"batepapo-uol-api/projection"
	"batepapo-uol-api/repositories"
	"batepapo-uol-api/runtime"
	"batepapo-uol-api/runtime/workers"
	"batepapo-uol-api/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the server lifecycle so deferred
// cleanups execute before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage
	st, err := openStores(config, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing storage...", "driver", config.StoreDriver)
		if err := st.close(); err != nil {
			log.Error("Storage close failed", "error", err)
		}
	}()

	// 3. Chat components
	moderator, err := newModerator(config, log)
	if err != nil {
		return err
	}
	monitoring := observability.NewMonitoringManager(log, config.MetricInterval)
	registry := runtime.NewRegistry(log, st.participants)
	messageLog := runtime.NewMessageLog(log, st.messages, time.Now)
	visibility := projection.NewVisibilityFilter(messageLog)
	chatService := services.NewChatService(log, registry, messageLog, visibility, moderator, monitoring)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers
	sweeper := workers.NewPresenceSweeper(log, registry, messageLog, monitoring,
		config.SweepInterval, config.InactivityTimeout)
	sup := workers.NewSupervisor(log, config.RestartInterval, monitoring)
	sup.Add(sweeper, monitoring)

	var health *server.HealthServer
	if config.GrpcHealthPort > 0 {
		health = server.NewHealthServer(log, func(ctx context.Context) error {
			_, err := chatService.Participants(ctx)
			return err
		}, config.MetricInterval)
		sup.Add(health)
	}

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. Servers
	errChan := make(chan error, 2)

	if health != nil {
		address := fmt.Sprintf("%s:%d", config.Host, config.GrpcHealthPort)
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", address, err)
		}
		go func() {
			if err := health.Serve(listener); err != nil {
				errChan <- fmt.Errorf("gRPC health server error: %w", err)
			}
		}()
	}

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	chatServer := httpserver.NewChatServer(log, chatService, messageLog, monitoring, config.StorageTimeout)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           chatServer.Router(),
		ReadHeaderTimeout: config.StorageTimeout,
	}
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if health != nil {
		health.GracefulStop()
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return runErr
}

type stores struct {
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	close        func() error
}

func openStores(config internal.Config, log *slog.Logger) (stores, error) {
	switch config.StoreDriver {
	case internal.StoreSqlite:
		store, err := sqlite.Open(config.SqliteFilepath, log)
		if err != nil {
			return stores{}, fmt.Errorf("database opening failed: %w", err)
		}
		return stores{participants: store, messages: store, close: store.Close}, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return stores{}, fmt.Errorf("database opening failed: %w", err)
		}
		messages, err := repositories.NewMessageRepository(db, log)
		if err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("message sequence failed: %w", err)
		}
		return stores{
			participants: repositories.NewParticipantRepository(db, log),
			messages:     messages,
			close: func() error {
				// The sequence lease must be released before the DB closes.
				return errors.Join(messages.Close(), db.Close())
			},
		}, nil
	}
}

func newModerator(config internal.Config, log *slog.Logger) (*moderation.Moderator, error) {
	char, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(config.CensoredWords(), char, log)
	if err != nil {
		return nil, fmt.Errorf("moderation setup failed: %w", err)
	}
	return moderator, nil
}
