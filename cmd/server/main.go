package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dinkup/dinkup-backend/internal/adapter/httpapi"
	"github.com/dinkup/dinkup-backend/internal/adapter/repository/postgres"
	"github.com/dinkup/dinkup-backend/internal/logger"
	"github.com/dinkup/dinkup-backend/internal/usecase/ingest"
	"github.com/dinkup/dinkup-backend/internal/usecase/reconciler"
	"github.com/dinkup/dinkup-backend/internal/usecase/summary"
)

const defaultHTTPPort = "8080"

func main() {
	log := logger.New()

	// 1. Setup Database
	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost" // Default for local run without docker
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "dinkup"
		}

		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	db, err := postgres.NewDB(dbConnStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	transactionRepo := postgres.NewTransactionRepository(db)
	obligationRepo := postgres.NewObligationRepository(db)

	// 3. Initialize Services (Use Cases)
	reconcilerService := reconciler.NewService(transactionRepo, obligationRepo)
	ingestService := ingest.NewService(transactionRepo, reconcilerService)
	summaryService := summary.NewService(transactionRepo)

	// 4. Start HTTP Server
	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Warn().Msg("WEBHOOK_SECRET not set - webhook endpoint is unauthenticated")
	}

	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = defaultHTTPPort
	}

	router := httpapi.NewRouter(ingestService, transactionRepo, summaryService, webhookSecret, log)

	server := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", httpPort).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	waitForShutdown(server, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
		return
	}
	log.Info().Msg("HTTP server stopped")
}
