package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheetstore/pkg/api"
	"sheetstore/pkg/config"
	"sheetstore/pkg/memstore"
	"sheetstore/pkg/sheets"
	"sheetstore/pkg/table"

	log "github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configPath := flag.String("config", "sheetstore.toml", "Path to the TOML config file")
	memory := flag.Bool("memory", false, "Serve tables from memory instead of Google Sheets")

	flag.Parse()
	if *verbose {
		// Set the log level to debug
		log.SetLevel(log.DebugLevel)
	}
	// Set the log format to include a leading timestamp in ISO8601 format
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.New(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var store table.GridStore = memstore.New()
	if !*memory {
		store, err = sheets.NewClient(context.Background(), cfg.SheetsOptions())
		if err != nil {
			log.Fatalf("Failed to create Sheets client: %v", err)
		}
	}

	srv, err := api.NewServer(store, cfg.Tables(), cfg.InputMode())
	if err != nil {
		log.Fatalf("Failed to build API: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           api.GetRouter(srv),
		ReadHeaderTimeout: 2 * time.Second,
	}
	go startServer(server)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	log.Info("Signalled, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Shutdown: %v", err)
	}
}

func startServer(server *http.Server) {
	log.Infof("listening for HTTP on: %s", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("ListenAndServeError: ", err)
	}
}
