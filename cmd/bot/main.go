// The bot binary serves the Telegram/WhatsApp channel bridges: a webhook API
// that runs the extraction pipeline per conversation and appends accepted
// transactions to BigQuery. When BigQuery cannot be reached at startup the
// bot degrades to simulation mode and keeps answering without persisting.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/rmendes/finance-pro/internal/api/handlers"
	"github.com/rmendes/finance-pro/internal/api/middleware"
	"github.com/rmendes/finance-pro/internal/archive"
	"github.com/rmendes/finance-pro/internal/assistant"
	"github.com/rmendes/finance-pro/internal/config"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/logger"
	"github.com/rmendes/finance-pro/internal/prompt"
	"github.com/rmendes/finance-pro/internal/store"
	storebq "github.com/rmendes/finance-pro/internal/store/bigquery"
	"github.com/rmendes/finance-pro/internal/turns"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	gen := extract.NewClient(genaiClient, extract.Options{
		Model:             cfg.Gemini.Model,
		Temperature:       genai.Ptr(extract.BotTemperature),
		SystemInstruction: prompt.SystemInstructionBot,
	})

	recorder, bqStore := openRecorder(ctx, cfg, log)
	if bqStore != nil {
		defer bqStore.Close()
	}

	var archiver *archive.Archiver
	if cfg.GCS.Bucket != "" {
		archiver, err = archive.New(ctx, cfg.GCS.Bucket, log)
		if err != nil {
			log.Warn().Err(err).Msg("Voice note archiving disabled")
			archiver = nil
		} else {
			defer archiver.Close()
		}
	}

	svc := assistant.New(gen, assistant.ApologyBot, log)

	dispatcher := turns.NewDispatcher(cfg.Server.Workers, 100)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	dispatcher.Start(workerCtx)

	webhook := handlers.NewWebhookHandler(svc, recorder, archiver, dispatcher, cfg.Channel.Token, cfg.Channel.Source, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/webhook/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			webhook.HandleMessage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(mux),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("source", cfg.Channel.Source).Msg("Starting bot server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping turn dispatcher")
	}

	log.Info().Msg("Server exited")
}

// openRecorder connects to BigQuery with a bounded retry. When the project is
// unset or the connection keeps failing, the bot falls back to simulation
// mode instead of refusing to start: replies still flow, appends are dropped
// and logged.
func openRecorder(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Recorder, *storebq.Store) {
	if cfg.BigQuery.ProjectID == "" {
		log.Warn().Msg("BQ_PROJECT_ID not set, running in simulation mode")
		return store.NewSimulated(log), nil
	}

	var st *storebq.Store
	operation := func() error {
		var err error
		st, err = storebq.New(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		log.Error().
			Err(err).
			Str("project_id", cfg.BigQuery.ProjectID).
			Msg("BigQuery unavailable, running in simulation mode")
		return store.NewSimulated(log), nil
	}

	log.Info().
		Str("project_id", cfg.BigQuery.ProjectID).
		Str("dataset", cfg.BigQuery.Dataset).
		Msg("Connected to BigQuery")
	return st, st
}
