package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rmendes/finance-pro/internal/domain"
)

// The model is instructed to open its response with a fenced JSON block.
// Only the FIRST fenced block is consumed; any later blocks stay in the
// reply text untouched.
var fencedJSON = regexp.MustCompile("(?s)```json\n(.*?)\n```")

// ErrNoBlock means the response carries no fenced JSON block. This is the
// designed fallback for clarifying questions and summary answers: the whole
// response is the reply and no transaction is recorded.
var ErrNoBlock = errors.New("no fenced JSON block in model output")

// ErrMalformedJSON means a fenced block was found but its contents do not
// parse as JSON. The caller decides what reaches the user; Result.Reply still
// carries the full raw text.
var ErrMalformedJSON = errors.New("fenced block is not valid JSON")

// SchemaError means the JSON parsed but violates the extraction contract
// (missing key, wrong type, non-positive amount, unknown kind, bad
// timestamp). Candidates failing schema validation never reach a store.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "model output violates extraction schema: " + e.Reason
}

// Parse splits raw model output into a human-facing reply and, when present,
// a validated candidate transaction with a freshly assigned identifier.
//
// On success the reply is the input with exactly the first fenced block
// removed and surrounding whitespace trimmed. On any error the reply is the
// full input verbatim so the caller can choose its failure policy.
func Parse(raw string) (domain.ExtractionResult, error) {
	inner, start, end, ok := firstBlock(raw)
	if !ok {
		return domain.ExtractionResult{Reply: raw}, ErrNoBlock
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(inner), &obj); err != nil {
		return domain.ExtractionResult{Reply: raw}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	tx, err := transactionFromObject(obj)
	if err != nil {
		return domain.ExtractionResult{Reply: raw}, err
	}
	tx.ID = domain.NewID()

	reply := strings.TrimSpace(raw[:start] + raw[end:])
	return domain.ExtractionResult{Reply: reply, Candidate: tx}, nil
}

// firstBlock locates the first fenced JSON block. It returns the inner
// payload, the byte offsets of the whole fenced segment and whether a block
// was found.
func firstBlock(raw string) (inner string, start, end int, ok bool) {
	loc := fencedJSON.FindStringSubmatchIndex(raw)
	if loc == nil {
		return "", 0, 0, false
	}
	return raw[loc[2]:loc[3]], loc[0], loc[1], true
}

// transactionFromObject maps the four contract keys onto a Transaction and
// enforces the acceptance invariants. Field access mirrors the generic JSON
// object the model returns; encoding/json gives every number as float64.
func transactionFromObject(obj map[string]interface{}) (*domain.Transaction, error) {
	valor, err := numberField(obj, "valor")
	if err != nil {
		return nil, err
	}
	categoria, err := stringField(obj, "categoria")
	if err != nil {
		return nil, err
	}
	descricao, err := stringField(obj, "descricao")
	if err != nil {
		return nil, err
	}
	tipo, err := stringField(obj, "tipo")
	if err != nil {
		return nil, err
	}
	timestamp, err := stringField(obj, "timestamp")
	if err != nil {
		return nil, err
	}

	if valor <= 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("field \"valor\" must be positive, got %v", valor)}
	}
	kind := domain.TransactionKind(tipo)
	if kind != domain.KindIncome && kind != domain.KindExpense {
		return nil, &SchemaError{Reason: fmt.Sprintf("field \"tipo\" must be %q or %q, got %q", domain.KindIncome, domain.KindExpense, tipo)}
	}
	if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("field \"timestamp\" is not a valid instant: %q", timestamp)}
	}

	return &domain.Transaction{
		Valor:     valor,
		Categoria: categoria,
		Descricao: descricao,
		Tipo:      kind,
		Timestamp: timestamp,
	}, nil
}

func stringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &SchemaError{Reason: fmt.Sprintf("missing required field %q", key)}
	}
	s, ok := v.(string)
	if !ok {
		return "", &SchemaError{Reason: fmt.Sprintf("field %q has type %T, want string", key, v)}
	}
	return s, nil
}

func numberField(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &SchemaError{Reason: fmt.Sprintf("missing required field %q", key)}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &SchemaError{Reason: fmt.Sprintf("field %q has type %T, want number", key, v)}
	}
	return f, nil
}
