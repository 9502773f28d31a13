// The sync-notion binary is a one-shot tool that mirrors the most recent
// BigQuery transactions into a Notion database.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/rmendes/finance-pro/internal/config"
	"github.com/rmendes/finance-pro/internal/logger"
	"github.com/rmendes/finance-pro/internal/notionsync"
	storebq "github.com/rmendes/finance-pro/internal/store/bigquery"
)

func main() {
	log := logger.New()

	notionToken := flag.String("notion-token", "", "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	limit := flag.Int("limit", 500, "Maximum number of transactions to sync, newest first")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to Notion")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("Error: BQ_PROJECT_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := storebq.New(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery store")
	}
	defer st.Close()

	txs, err := st.ListRecent(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}

	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncTransactions(ctx, notionClient, *notionDBID, txs, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	log.Info().Msg("Notion sync finished")
}
