package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionKind is the direction of a transaction as the model reports it.
type TransactionKind string

const (
	KindIncome  TransactionKind = "receita"
	KindExpense TransactionKind = "despesa"
)

// Transaction is one extracted financial record. It is created only from a
// successfully parsed model response and never mutated afterwards; the only
// removal path is a bulk clear of the store.
//
// The JSON keys mirror the extraction contract the model is instructed to
// emit, so a stored record round-trips with the fenced block it came from.
type Transaction struct {
	ID        string          `json:"id"`
	Valor     float64         `json:"valor"`
	Categoria string          `json:"categoria"`
	Descricao string          `json:"descricao"`
	Tipo      TransactionKind `json:"tipo"`
	// Timestamp keeps the model's ISO-8601 string verbatim. It is validated
	// on acceptance but stored and reloaded as a string, not a time.Time.
	Timestamp string `json:"timestamp"`
}

// NewID returns a fresh transaction identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate enforces the acceptance invariants: positive amount, known kind,
// parseable timestamp. A candidate that fails here must never reach a store.
func (t *Transaction) Validate() error {
	if t.Valor <= 0 {
		return fmt.Errorf("transaction amount must be positive, got %v", t.Valor)
	}
	if t.Tipo != KindIncome && t.Tipo != KindExpense {
		return fmt.Errorf("transaction kind must be %q or %q, got %q", KindIncome, KindExpense, t.Tipo)
	}
	if _, err := time.Parse(time.RFC3339, t.Timestamp); err != nil {
		return fmt.Errorf("invalid transaction timestamp %q: %w", t.Timestamp, err)
	}
	return nil
}

// Time returns the parsed timestamp. Valid transactions always parse; the
// zero time is returned for records that bypassed validation.
func (t *Transaction) Time() time.Time {
	ts, err := time.Parse(time.RFC3339, t.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// ExtractionResult is the transient outcome of one chat turn: the text shown
// to the human and, when the model reported a transaction, the candidate.
type ExtractionResult struct {
	Reply     string
	Candidate *Transaction
}
