// Package archive keeps the raw voice notes the bot channels receive.
// Archiving is best-effort bookkeeping: failures are logged and never block
// or fail the turn.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Archiver writes audio payloads to a GCS bucket. A nil Archiver is valid
// and archives nothing, for deployments without a bucket.
type Archiver struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// New creates an Archiver for the given bucket. Assumes Application Default
// Credentials.
func New(ctx context.Context, bucket string, log zerolog.Logger) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket, log: log}, nil
}

// Close releases the underlying client.
func (a *Archiver) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}

// Store uploads one audio payload under voice-notes/<date>/<uuid> and
// returns its gs:// URI. Callers run this alongside extraction; an error
// here only means the note was not archived.
func (a *Archiver) Store(ctx context.Context, source string, data []byte, mimeType string) (string, error) {
	if a == nil {
		return "", nil
	}

	objectName := fmt.Sprintf("voice-notes/%s/%s-%s", time.Now().Format("2006/01/02"), source, uuid.NewString())
	gcsURI := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: write %s: %w", gcsURI, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize %s: %w", gcsURI, err)
	}

	a.log.Info().Str("gcs_uri", gcsURI).Int("bytes", len(data)).Msg("Voice note archived")
	return gcsURI, nil
}
