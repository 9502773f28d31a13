// Package filestore is the web channel's durable local storage: two
// independently keyed JSON files, one for the transaction list and one for
// the chat history. Each file is read once at startup and rewritten in full
// on every mutation, preserving stored timestamps verbatim across restarts.
//
// Writers are serialized in-process with a mutex; the store assumes a single
// writing process. Two processes sharing a state dir can lose each other's
// appends, the same way two browser tabs sharing local storage would.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rmendes/finance-pro/internal/domain"
)

const (
	txsFilename  = "finance_pro_txs.json"
	chatFilename = "finance_pro_chat.json"
)

// Store owns the canonical transaction list and the conversation log.
type Store struct {
	mu       sync.Mutex
	txPath   string
	chatPath string

	txs  []domain.Transaction // head is most recent
	msgs []domain.ChatMessage // append order
}

// Open loads (or initializes) the store under the given state directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create state dir %q: %w", dir, err)
	}

	s := &Store{
		txPath:   filepath.Join(dir, txsFilename),
		chatPath: filepath.Join(dir, chatFilename),
	}

	if err := loadJSON(s.txPath, &s.txs); err != nil {
		return nil, err
	}
	if err := loadJSON(s.chatPath, &s.msgs); err != nil {
		return nil, err
	}
	return s, nil
}

// Append accepts a validated transaction and makes it the head of List().
// Invalid transactions (non-positive amount, unknown kind, bad timestamp)
// are rejected and never written.
func (s *Store) Append(tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("filestore: rejecting transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = append([]domain.Transaction{tx}, s.txs...)
	if err := writeJSON(s.txPath, s.txs); err != nil {
		s.txs = s.txs[1:]
		return err
	}
	return nil
}

// List returns the transactions, most recent first.
func (s *Store) List() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Clear removes all transactions. This is the only removal path.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = nil
	return writeJSON(s.txPath, []domain.Transaction{})
}

// AppendMessage appends one turn to the conversation log.
func (s *Store) AppendMessage(msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = append(s.msgs, msg)
	if err := writeJSON(s.chatPath, s.msgs); err != nil {
		s.msgs = s.msgs[:len(s.msgs)-1]
		return err
	}
	return nil
}

// Messages returns the conversation log in append order.
func (s *Store) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ChatMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// ClearChat wipes the conversation log wholesale.
func (s *Store) ClearChat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = nil
	return writeJSON(s.chatPath, []domain.ChatMessage{})
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filestore: read %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("filestore: decode %q: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("filestore: encode %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("filestore: write %q: %w", path, err)
	}
	return nil
}
