// Package bigquery is the bot channels' remote transaction store. Each
// accepted transaction becomes one independent row in the transactions
// table; bots are write-only, the read path exists for tooling (sync-notion)
// and completeness.
package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/rmendes/finance-pro/internal/domain"
)

const (
	// DefaultDatasetID is the dataset holding the transactions table.
	DefaultDatasetID = "finance"

	transactionsTable = "transactions"
)

// TransactionRow maps a transaction onto the finance.transactions schema.
// The extraction fields keep their contract names; source and the two
// timestamps are bookkeeping added at write time.
type TransactionRow struct {
	TransactionID string  `bigquery:"transaction_id"`
	Valor         float64 `bigquery:"valor"`
	Categoria     string  `bigquery:"categoria"`
	Descricao     string  `bigquery:"descricao"`
	Tipo          string  `bigquery:"tipo"`

	// EventTS is the instant the user reported, parsed from the model's
	// ISO timestamp.
	EventTS time.Time `bigquery:"event_ts"`

	// Source identifies the originating channel, e.g. "telegram",
	// "whatsapp_text", "whatsapp_audio".
	Source string `bigquery:"source"`

	// ReceivedTS is when the channel delivered the message; ProcessedTS is
	// assigned at write time.
	ReceivedTS  time.Time `bigquery:"received_ts"`
	ProcessedTS time.Time `bigquery:"processed_ts"`
}

// ToRow converts an accepted transaction into its table row.
func ToRow(tx domain.Transaction, source string, receivedAt time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID: tx.ID,
		Valor:         tx.Valor,
		Categoria:     tx.Categoria,
		Descricao:     tx.Descricao,
		Tipo:          string(tx.Tipo),
		EventTS:       tx.Time(),
		Source:        source,
		ReceivedTS:    receivedAt,
		ProcessedTS:   time.Now(),
	}
}

// Store writes transactions through the BigQuery streaming inserter.
type Store struct {
	client  *bq.Client
	dataset string
}

// New creates a Store for the given project and dataset.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	client, err := bq.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create client: %w", err)
	}
	return &Store{client: client, dataset: datasetID}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Append inserts one transaction row. Invalid transactions are rejected
// before anything is written.
func (s *Store) Append(ctx context.Context, tx domain.Transaction, source string, receivedAt time.Time) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("bigquery: rejecting transaction: %w", err)
	}

	inserter := s.client.Dataset(s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, ToRow(tx, source, receivedAt)); err != nil {
		return fmt.Errorf("bigquery: inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

// ListRecent returns the most recently processed transactions, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			valor,
			categoria,
			descricao,
			tipo,
			event_ts,
			source,
			received_ts,
			processed_ts
		FROM %s.%s
		ORDER BY processed_ts DESC
		LIMIT @limit
	`, s.dataset, transactionsTable))
	q.Parameters = []bq.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iterating rows: %w", err)
		}
		txs = append(txs, domain.Transaction{
			ID:        r.TransactionID,
			Valor:     r.Valor,
			Categoria: r.Categoria,
			Descricao: r.Descricao,
			Tipo:      domain.TransactionKind(r.Tipo),
			Timestamp: r.EventTS.Format(time.RFC3339),
		})
	}
	return txs, nil
}
