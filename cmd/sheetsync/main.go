package main

import (
	"context"
	"flag"
	"os"

	"sheetstore/pkg/config"
	"sheetstore/pkg/memstore"
	"sheetstore/pkg/sheets"
	"sheetstore/pkg/table"

	log "github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configPath := flag.String("config", "sheetstore.toml", "Path to the TOML config file")
	document := flag.String("document", os.Getenv(config.EnvSpreadsheetID), "Spreadsheet ID to write to")
	tab := flag.String("tab", "IntegrationTest", "Tab to write to")
	n := flag.Int("n", 50, "Number of sample objects")
	memory := flag.Bool("memory", false, "Run against an in-memory store")
	tokenCache := flag.String("token-cache", "", "Path to cache access tokens in")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	ctx := context.Background()
	rng := table.Range{Document: *document, Name: *tab}
	var store table.GridStore = memstore.New()

	if !*memory {
		if *document == "" {
			log.Error("You must specify a spreadsheet with -document or SPREADSHEET_ID")
			flag.Usage()
			os.Exit(1)
		}
		cfg, err := config.New(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts := cfg.SheetsOptions()
		if *tokenCache != "" {
			opts.TokenCachePath = *tokenCache
		}
		client, err := sheets.NewClient(ctx, opts)
		if err != nil {
			log.Fatalf("Failed to create Sheets client: %v", err)
		}
		if err := client.EnsureTab(ctx, rng.Document, rng.Name); err != nil {
			log.Fatalf("Failed to ensure tab %s exists: %v", rng.Name, err)
		}
		store = client
	}

	if err := runSync(ctx, store, rng, *n, table.InputUserEntered); err != nil {
		log.Fatalf("Sync check failed: %v", err)
	}
}
