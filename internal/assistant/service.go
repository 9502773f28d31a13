// Package assistant orchestrates one chat turn: user input goes to the
// model, the raw response is split into reply and candidate transaction, and
// the error taxonomy is mapped to the fixed apology the channel shows. The
// user never sees technical errors; the taxonomy stays observable through
// structured logs.
package assistant

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/extract"
)

// Fixed apology strings, the sole error channel to the end user.
const (
	ApologyWeb = "💎 Tivemos um breve contratempo em nossos servidores de alta performance. Poderia repetir os detalhes?"
	ApologyBot = "💎 Falha momentânea na conexão neural. Tente novamente."
)

// Generator is the model boundary. Implemented by extract.Client; tests
// substitute a fake.
type Generator interface {
	Generate(ctx context.Context, in extract.Input, history []domain.Transaction) (string, error)
}

// Service runs the turn pipeline for one channel.
type Service struct {
	gen     Generator
	apology string
	log     zerolog.Logger
}

// New creates a Service. apology is the channel-appropriate fixed reply used
// for every failure class.
func New(gen Generator, apology string, log zerolog.Logger) *Service {
	return &Service{gen: gen, apology: apology, log: log}
}

// ProcessTurn executes the sequential pipeline for a single turn and always
// returns something to say. Failures are terminal for the turn - no retry:
//
//   - transport/model failure: apology, no candidate
//   - no fenced block: the model's prose verbatim, no candidate (Q&A turns)
//   - malformed JSON or schema violation: apology, no candidate; the raw
//     block is logged, never leaked to the user
func (s *Service) ProcessTurn(ctx context.Context, in extract.Input, history []domain.Transaction) domain.ExtractionResult {
	raw, err := s.gen.Generate(ctx, in, history)
	if err != nil {
		s.log.Error().Err(err).Msg("Model call failed")
		return domain.ExtractionResult{Reply: s.apology}
	}

	res, err := extract.Parse(raw)
	switch {
	case err == nil:
		return res

	case errors.Is(err, extract.ErrNoBlock):
		// Designed fallback: summaries and clarifying questions carry no
		// block and record nothing.
		return domain.ExtractionResult{Reply: res.Reply}

	default:
		var schemaErr *extract.SchemaError
		ev := s.log.Error().Err(err).Str("raw_output", raw)
		if errors.As(err, &schemaErr) {
			ev = ev.Str("parse_error", "schema_mismatch")
		} else {
			ev = ev.Str("parse_error", "malformed_json")
		}
		ev.Msg("Model output failed structured parsing")
		return domain.ExtractionResult{Reply: s.apology}
	}
}
