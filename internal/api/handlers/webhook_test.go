package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rmendes/finance-pro/internal/assistant"
	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/logger"
	"github.com/rmendes/finance-pro/internal/turns"
)

type fakeGenerator struct {
	response string
}

func (f *fakeGenerator) Generate(ctx context.Context, in extract.Input, history []domain.Transaction) (string, error) {
	return f.response, nil
}

type capturingRecorder struct {
	txs     []domain.Transaction
	sources []string
}

func (c *capturingRecorder) Append(ctx context.Context, tx domain.Transaction, source string, receivedAt time.Time) error {
	c.txs = append(c.txs, tx)
	c.sources = append(c.sources, source)
	return nil
}

func newWebhookFixture(t *testing.T, response string) (*WebhookHandler, *capturingRecorder, func()) {
	t.Helper()

	log := logger.NewWithWriter(&bytes.Buffer{})
	gen := &fakeGenerator{response: response}
	svc := assistant.New(gen, assistant.ApologyBot, log)
	rec := &capturingRecorder{}

	d := turns.NewDispatcher(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	h := NewWebhookHandler(svc, rec, nil, d, "secret-token", "telegram", log)

	cleanup := func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = d.Stop(stopCtx)
		cancel()
	}
	return h, rec, cleanup
}

func postMessage(h *WebhookHandler, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	return w
}

func TestHandleMessage_RecordsExtractedTransaction(t *testing.T) {
	response := "```json\n{\"valor\":150,\"categoria\":\"Gastronomia\",\"descricao\":\"Jantar\",\"tipo\":\"despesa\",\"timestamp\":\"2024-01-01T20:00:00Z\"}\n```\n✅ Registrado!"
	h, rec, cleanup := newWebhookFixture(t, response)
	defer cleanup()

	w := postMessage(h, "secret-token", `{"conversation_id":"chat-42","source":"whatsapp_text","text":"Gastei 150 no jantar"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp["reply"] != "✅ Registrado!" {
		t.Errorf("Reply = %q, want %q", resp["reply"], "✅ Registrado!")
	}

	if len(rec.txs) != 1 {
		t.Fatalf("Recorded %d transactions, want 1", len(rec.txs))
	}
	if rec.txs[0].Valor != 150 || rec.sources[0] != "whatsapp_text" {
		t.Errorf("Recorded %+v from %q", rec.txs[0], rec.sources[0])
	}
}

func TestHandleMessage_ProseRecordsNothing(t *testing.T) {
	h, rec, cleanup := newWebhookFixture(t, "Tudo tranquilo por aqui.")
	defer cleanup()

	w := postMessage(h, "secret-token", `{"conversation_id":"chat-42","text":"e aí?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if len(rec.txs) != 0 {
		t.Errorf("Prose turns must not record, got %d", len(rec.txs))
	}
}

func TestHandleMessage_DefaultsSourceFromConfig(t *testing.T) {
	response := "```json\n{\"valor\":10,\"categoria\":\"Outros\",\"descricao\":\"x\",\"tipo\":\"despesa\",\"timestamp\":\"2024-01-01T20:00:00Z\"}\n```\nok"
	h, rec, cleanup := newWebhookFixture(t, response)
	defer cleanup()

	postMessage(h, "secret-token", `{"conversation_id":"chat-1","text":"gastei 10"}`)

	if len(rec.sources) != 1 || rec.sources[0] != "telegram" {
		t.Errorf("Sources = %v, want the configured default", rec.sources)
	}
}

func TestHandleMessage_RejectsBadToken(t *testing.T) {
	h, rec, cleanup := newWebhookFixture(t, "irrelevante")
	defer cleanup()

	w := postMessage(h, "wrong-token", `{"conversation_id":"chat-42","text":"oi"}`)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
	if len(rec.txs) != 0 {
		t.Error("Unauthorized requests must not reach the pipeline")
	}
}

func TestHandleMessage_ValidatesRequest(t *testing.T) {
	h, _, cleanup := newWebhookFixture(t, "irrelevante")
	defer cleanup()

	tests := []struct {
		name string
		body string
	}{
		{"missing conversation_id", `{"text":"oi"}`},
		{"no text or audio", `{"conversation_id":"c"}`},
		{"bad base64", `{"conversation_id":"c","audio_base64":"not@base64!"}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postMessage(h, "secret-token", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", w.Code)
			}
		})
	}
}
