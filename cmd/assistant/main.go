// The assistant binary serves the web channel: a chat API backed by the
// extraction pipeline, with transactions and history stored in local JSON
// files under the state directory.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/rmendes/finance-pro/internal/api/handlers"
	"github.com/rmendes/finance-pro/internal/api/middleware"
	"github.com/rmendes/finance-pro/internal/assistant"
	"github.com/rmendes/finance-pro/internal/config"
	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/logger"
	"github.com/rmendes/finance-pro/internal/prompt"
	"github.com/rmendes/finance-pro/internal/store/filestore"
	"github.com/rmendes/finance-pro/internal/turns"
)

const welcomeMessage = "Bem-vindo ao centro de comando Finance Pro. Como posso otimizar seu patrimônio hoje? ✨"

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.ValidateAssistant(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	gen := extract.NewClient(genaiClient, extract.Options{
		Model:             cfg.Gemini.Model,
		Temperature:       genai.Ptr(extract.DefaultTemperature),
		SystemInstruction: prompt.SystemInstruction,
	})

	st, err := filestore.Open(cfg.State.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("state_dir", cfg.State.Dir).Msg("Failed to open store")
	}

	// First run: greet before the user types anything.
	if len(st.Messages()) == 0 {
		err := st.AppendMessage(domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Content:   welcomeMessage,
			Timestamp: time.Now(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to seed welcome message")
		}
	}

	svc := assistant.New(gen, assistant.ApologyWeb, log)

	dispatcher := turns.NewDispatcher(cfg.Server.Workers, 100)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	dispatcher.Start(workerCtx)

	chatHandler := handlers.NewChatHandler(svc, st, dispatcher, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.HandleChat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandler.ListTransactions(w, r)
		case http.MethodDelete:
			chatHandler.ClearTransactions(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/chat/history", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandler.History(w, r)
		case http.MethodDelete:
			chatHandler.ClearHistory(w, r)
		default:
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
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("state_dir", cfg.State.Dir).Msg("Starting assistant server")
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
