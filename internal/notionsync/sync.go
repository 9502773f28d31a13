package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/logger"
)

// SyncTransactions pushes the given transactions into the Notion database.
// Pages already carrying a matching Transaction ID are skipped, so the sync
// is safe to re-run over overlapping windows. A failed page create is logged
// and the rest of the batch continues.
func SyncTransactions(ctx context.Context, client NotionService, databaseID string, txs []domain.Transaction, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("transaction_count", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	existing, err := existingTransactionIDs(ctx, client, databaseID)
	if err != nil {
		return fmt.Errorf("sync transactions: %w", err)
	}

	var created, skipped, failed int
	for _, tx := range txs {
		if existing[tx.ID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", tx.ID).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		page, err := client.CreatePage(ctx, databaseID, TransactionToNotionProperties(tx))
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.ID).
				Msg("Failed to create Notion page")
			failed++
			continue
		}

		log.Info().
			Str("transaction_id", tx.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("total", len(txs)).
		Msg("Transaction sync completed")

	if failed > 0 {
		return fmt.Errorf("sync transactions: %d of %d pages failed", failed, len(txs))
	}
	return nil
}

// existingTransactionIDs pages through the Notion database and collects the
// Transaction ID of every page already there.
func existingTransactionIDs(ctx context.Context, client NotionService, databaseID string) (map[string]bool, error) {
	ids := make(map[string]bool)
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("existingTransactionIDs: %w", err)
		}

		for _, page := range resp.Results {
			if id := extractTransactionID(page); id != "" {
				ids[id] = true
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return ids, nil
}

// extractTransactionID reads the Transaction ID rich text off a Notion page.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
