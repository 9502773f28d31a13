package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmendes/finance-pro/internal/api/middleware"
	"github.com/rmendes/finance-pro/internal/assistant"
	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/stats"
	"github.com/rmendes/finance-pro/internal/store/filestore"
	"github.com/rmendes/finance-pro/internal/turns"
)

// webConversationID keys the web channel's single conversation in the turn
// dispatcher, so simultaneous browser requests stay sequential.
const webConversationID = "web"

// ChatHandler serves the web channel: chat turns, the transaction list, the
// aggregated summary and the conversation log.
type ChatHandler struct {
	svc        *assistant.Service
	store      *filestore.Store
	dispatcher *turns.Dispatcher
	log        zerolog.Logger
}

// NewChatHandler creates the web-channel handler set.
func NewChatHandler(svc *assistant.Service, st *filestore.Store, d *turns.Dispatcher, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, store: st, dispatcher: d, log: log}
}

// HandleChat handles POST /api/chat: one full turn of the pipeline.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	resultCh := make(chan domain.ExtractionResult, 1)
	err := h.dispatcher.Enqueue(r.Context(), webConversationID, func(ctx context.Context) {
		resultCh <- h.runTurn(ctx, req.Message)
	})
	if err != nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is shutting down")
		return
	}

	res := <-resultCh
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply":       res.Reply,
		"transaction": res.Candidate,
	})
}

// runTurn executes the pipeline inside the dispatcher: the extraction sees
// the history as of its turn, and an accepted candidate lands at the head of
// the store before the next turn starts. The user message is persisted here
// rather than in the handler, so a rejected Enqueue leaves the log without a
// user turn that never got its assistant reply.
func (h *ChatHandler) runTurn(ctx context.Context, message string) domain.ExtractionResult {
	if err := h.store.AppendMessage(domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   message,
		Timestamp: time.Now(),
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to persist user message")
	}

	history := h.store.List()
	res := h.svc.ProcessTurn(ctx, extract.Input{Text: message}, history)

	if res.Candidate != nil {
		if err := h.store.Append(*res.Candidate); err != nil {
			// Degraded persistence must not block the reply, but an
			// unrecorded transaction must not be presented as recorded.
			h.log.Error().Err(err).Str("transaction_id", res.Candidate.ID).Msg("Failed to persist transaction")
			res.Candidate = nil
		}
	}

	if err := h.store.AppendMessage(domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   res.Reply,
		Timestamp: time.Now(),
		Metadata:  res.Candidate,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to persist assistant message")
	}

	return res
}

// ListTransactions handles GET /api/transactions.
func (h *ChatHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.store.List()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ClearTransactions handles DELETE /api/transactions: the bulk clear, the
// only removal path for stored records.
func (h *ChatHandler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Summary handles GET /api/summary?period=today|week|month|all.
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	period := stats.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = stats.PeriodMonth
	}
	middleware.WriteJSON(w, http.StatusOK, stats.Summarize(h.store.List(), period, time.Now()))
}

// History handles GET /api/chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	msgs := h.store.Messages()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// ClearHistory handles DELETE /api/chat/history.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearChat(); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear chat history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
