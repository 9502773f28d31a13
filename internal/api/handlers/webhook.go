package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmendes/finance-pro/internal/api/middleware"
	"github.com/rmendes/finance-pro/internal/archive"
	"github.com/rmendes/finance-pro/internal/assistant"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/store"
	"github.com/rmendes/finance-pro/internal/turns"
)

// WebhookHandler serves the bot channels. The Telegram/WhatsApp session
// bridges deliver inbound messages here and relay the reply text back to the
// user; this process owns extraction, persistence and per-conversation
// ordering.
type WebhookHandler struct {
	svc        *assistant.Service
	recorder   store.Recorder
	archiver   *archive.Archiver
	dispatcher *turns.Dispatcher
	token      string
	source     string
	log        zerolog.Logger
}

// NewWebhookHandler creates the bot webhook handler. archiver may be nil.
func NewWebhookHandler(svc *assistant.Service, rec store.Recorder, arc *archive.Archiver, d *turns.Dispatcher, token, source string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:        svc,
		recorder:   rec,
		archiver:   arc,
		dispatcher: d,
		token:      token,
		source:     source,
		log:        log,
	}
}

type webhookRequest struct {
	ConversationID string `json:"conversation_id"`
	Source         string `json:"source,omitempty"`
	Text           string `json:"text,omitempty"`
	AudioBase64    string `json:"audio_base64,omitempty"`
	MIMEType       string `json:"mime_type,omitempty"`
}

// HandleMessage handles POST /webhook/message: one bot turn.
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid channel token")
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConversationID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	in, err := h.buildInput(req)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = h.source
	}
	receivedAt := time.Now()

	if in.IsAudio() && h.archiver != nil {
		// Best effort, off the turn's critical path.
		audio, mime := in.Audio, in.MIMEType
		go func() {
			if _, err := h.archiver.Store(context.Background(), source, audio, mime); err != nil {
				h.log.Warn().Err(err).Msg("Voice note not archived")
			}
		}()
	}

	replyCh := make(chan string, 1)
	err = h.dispatcher.Enqueue(r.Context(), req.ConversationID, func(ctx context.Context) {
		replyCh <- h.runTurn(ctx, in, source, receivedAt)
	})
	if err != nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Bot is shutting down")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"reply": <-replyCh})
}

// runTurn executes the bot pipeline. Bots are write-only against the store,
// so no history context is forwarded. A storage failure is logged and the
// reply still flows.
func (h *WebhookHandler) runTurn(ctx context.Context, in extract.Input, source string, receivedAt time.Time) string {
	res := h.svc.ProcessTurn(ctx, in, nil)

	if res.Candidate != nil {
		if err := h.recorder.Append(ctx, *res.Candidate, source, receivedAt); err != nil {
			h.log.Error().
				Err(err).
				Str("transaction_id", res.Candidate.ID).
				Str("source", source).
				Msg("Failed to persist transaction")
		}
	}

	return res.Reply
}

func (h *WebhookHandler) buildInput(req webhookRequest) (extract.Input, error) {
	if req.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return extract.Input{}, &badInputError{"audio_base64 is not valid base64"}
		}
		mime := req.MIMEType
		if mime == "" {
			mime = "audio/ogg"
		}
		return extract.Input{Audio: audio, MIMEType: mime}, nil
	}
	if req.Text == "" {
		return extract.Input{}, &badInputError{"either text or audio_base64 is required"}
	}
	return extract.Input{Text: req.Text}, nil
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(auth), []byte(h.token)) == 1
}

type badInputError struct {
	msg string
}

func (e *badInputError) Error() string { return e.msg }
