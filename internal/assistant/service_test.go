package assistant

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/extract"
	"github.com/rmendes/finance-pro/internal/logger"
)

// fakeGenerator returns a canned response or error and records the history
// it was handed.
type fakeGenerator struct {
	response string
	err      error

	gotInput   extract.Input
	gotHistory []domain.Transaction
}

func (f *fakeGenerator) Generate(ctx context.Context, in extract.Input, history []domain.Transaction) (string, error) {
	f.gotInput = in
	f.gotHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestProcessTurn_ExtractsCandidate(t *testing.T) {
	gen := &fakeGenerator{
		response: "```json\n{\"valor\":150,\"categoria\":\"Gastronomia\",\"descricao\":\"Jantar\",\"tipo\":\"despesa\",\"timestamp\":\"2024-01-01T20:00:00Z\"}\n```\n✅ Registrado!",
	}
	svc := New(gen, ApologyWeb, logger.NewWithWriter(&bytes.Buffer{}))

	res := svc.ProcessTurn(context.Background(), extract.Input{Text: "Gastei 150 reais no jantar"}, nil)

	if res.Candidate == nil {
		t.Fatal("Expected a candidate")
	}
	if res.Candidate.Valor != 150 || res.Candidate.Tipo != domain.KindExpense {
		t.Errorf("Unexpected candidate: %+v", res.Candidate)
	}
	if res.Reply != "✅ Registrado!" {
		t.Errorf("Reply = %q, want %q", res.Reply, "✅ Registrado!")
	}
}

func TestProcessTurn_ProsePassThrough(t *testing.T) {
	prose := "Seu mês está saudável. Receitas: R$ 3.000,00. 🥂"
	gen := &fakeGenerator{response: prose}
	svc := New(gen, ApologyWeb, logger.NewWithWriter(&bytes.Buffer{}))

	res := svc.ProcessTurn(context.Background(), extract.Input{Text: "Como estou esse mês?"}, nil)

	if res.Candidate != nil {
		t.Error("Prose turns must not record a transaction")
	}
	if res.Reply != prose {
		t.Errorf("Reply = %q, want the prose verbatim", res.Reply)
	}
}

func TestProcessTurn_ModelFailureIsApology(t *testing.T) {
	buf := &bytes.Buffer{}
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	svc := New(gen, ApologyBot, logger.NewWithWriter(buf))

	res := svc.ProcessTurn(context.Background(), extract.Input{Text: "gastei 10"}, nil)

	if res.Candidate != nil {
		t.Error("Failed turns must not produce a candidate")
	}
	if res.Reply != ApologyBot {
		t.Errorf("Reply = %q, want the fixed apology", res.Reply)
	}
	if !strings.Contains(buf.String(), "deadline exceeded") {
		t.Error("Transport failure must be logged")
	}
}

func TestProcessTurn_ParseFailurePolicy(t *testing.T) {
	// Pinned policy: malformed model output never leaks to the user; the
	// turn ends with the clean apology and the raw block goes to the log.
	raw := "```json\n{\"valor\":150,}\n```\nquase"
	buf := &bytes.Buffer{}
	gen := &fakeGenerator{response: raw}
	svc := New(gen, ApologyWeb, logger.NewWithWriter(buf))

	res := svc.ProcessTurn(context.Background(), extract.Input{Text: "x"}, nil)

	if res.Candidate != nil {
		t.Error("Malformed output must not produce a candidate")
	}
	if res.Reply != ApologyWeb {
		t.Errorf("Reply = %q, want the apology (no raw leak)", res.Reply)
	}
	if !strings.Contains(buf.String(), "malformed_json") {
		t.Error("Parse failure class must be observable in logs")
	}
}

func TestProcessTurn_SchemaViolationPolicy(t *testing.T) {
	raw := "```json\n{\"valor\":-1,\"categoria\":\"X\",\"descricao\":\"\",\"tipo\":\"despesa\",\"timestamp\":\"2024-01-01T20:00:00Z\"}\n```\nok"
	buf := &bytes.Buffer{}
	gen := &fakeGenerator{response: raw}
	svc := New(gen, ApologyWeb, logger.NewWithWriter(buf))

	res := svc.ProcessTurn(context.Background(), extract.Input{Text: "x"}, nil)

	if res.Candidate != nil {
		t.Error("Schema violations must not produce a candidate")
	}
	if res.Reply != ApologyWeb {
		t.Errorf("Reply = %q, want the apology", res.Reply)
	}
	if !strings.Contains(buf.String(), "schema_mismatch") {
		t.Error("Schema failure class must be observable in logs")
	}
}

func TestProcessTurn_ForwardsHistory(t *testing.T) {
	gen := &fakeGenerator{response: "tudo certo"}
	svc := New(gen, ApologyWeb, logger.NewWithWriter(&bytes.Buffer{}))

	history := []domain.Transaction{{ID: "a"}, {ID: "b"}}
	svc.ProcessTurn(context.Background(), extract.Input{Text: "resumo"}, history)

	if len(gen.gotHistory) != 2 || gen.gotHistory[0].ID != "a" {
		t.Errorf("History not forwarded to the model boundary: %+v", gen.gotHistory)
	}
}
