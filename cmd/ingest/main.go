// Package main loads bar history from a CSV file into the configured
// database backend.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/dataset"
	"crypto-backtest-lab/internal/storage"
	chstore "crypto-backtest-lab/internal/storage/clickhouse"
	pgstore "crypto-backtest-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	csvPath := flag.String("csv", "", "CSV file with bars to ingest (required)")
	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *csvPath == "" {
		logger.Fatal("--csv is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var store storage.BarStore
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		store = pgstore.NewBarStore(pool)

	case config.BackendClickHouse:
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("connect clickhouse: %v", err)
		}
		defer conn.Close()
		store = chstore.NewBarStore(conn)

	default:
		logger.Fatalf("ingest requires a database backend, got %q", cfg.Storage.Backend)
	}

	bars, err := dataset.ReadBarsFile(*csvPath)
	if err != nil {
		logger.Fatalf("read bars: %v", err)
	}
	if len(bars) == 0 {
		logger.Fatal("no bars found in file")
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		logger.Fatalf("insert bars: %v", err)
	}

	logger.Printf("ingested %d bars from %s into %s", len(bars), *csvPath, cfg.Storage.Backend)
}
