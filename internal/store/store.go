// Package store defines the persistence contracts for accepted transactions.
// Append is the only mutation; no per-record update or delete exists. The web
// channel uses the file-backed implementation in filestore, bot channels the
// BigQuery implementation in bigquery.
package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmendes/finance-pro/internal/domain"
)

// Recorder is the bot-channel write contract: each accepted transaction is
// appended as an independent document tagged with its originating channel and
// a server-assigned processing time. Bots never read back.
type Recorder interface {
	Append(ctx context.Context, tx domain.Transaction, source string, receivedAt time.Time) error
}

// Simulated is the degraded-mode Recorder used when the remote store could
// not be initialized: transactions are computed and replied to the user but
// never persisted. Every dropped append is logged so the degradation stays
// observable.
type Simulated struct {
	log zerolog.Logger
}

// NewSimulated creates a simulation-mode recorder.
func NewSimulated(log zerolog.Logger) *Simulated {
	return &Simulated{log: log}
}

// Append logs and drops the transaction.
func (s *Simulated) Append(ctx context.Context, tx domain.Transaction, source string, receivedAt time.Time) error {
	s.log.Warn().
		Str("transaction_id", tx.ID).
		Str("source", source).
		Float64("valor", tx.Valor).
		Str("tipo", string(tx.Tipo)).
		Msg("Simulation mode: transaction not persisted")
	return nil
}

var _ Recorder = (*Simulated)(nil)
