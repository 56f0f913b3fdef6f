// Package main runs a single backtest from the command line, streaming
// progress events as NDJSON to stdout.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/dataset"
	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/policy"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/simenv"
	"crypto-backtest-lab/internal/storage"
	chstore "crypto-backtest-lab/internal/storage/clickhouse"
	"crypto-backtest-lab/internal/storage/memory"
	pgstore "crypto-backtest-lab/internal/storage/postgres"
	"crypto-backtest-lab/internal/stream"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	symbol := flag.String("symbol", "", "Symbol to backtest, e.g. BTC/USD (required)")
	startStr := flag.String("start", "", "Window start, e.g. 2024-01-01 00:00:00 (required)")
	endStr := flag.String("end", "", "Window end (required)")
	outputDir := flag.String("output-dir", "", "Export directory override")
	seed := flag.Int64("seed", 0, "Policy random seed")
	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	start, err := time.ParseInLocation(timeLayout, *startStr, time.UTC)
	if err != nil {
		logger.Fatalf("--start: %v", err)
	}
	end, err := time.ParseInLocation(timeLayout, *endStr, time.UTC)
	if err != nil {
		logger.Fatalf("--end: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Backtest.OutputDir = *outputDir
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

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("build store: %v", err)
	}
	defer closeStore()

	svc := backtest.NewService(
		store,
		func(bars []domain.Bar, initialBalance float64) backtest.Environment {
			return simenv.New(bars, simenv.Config{
				InitialBalance: initialBalance,
				StopLossPct:    cfg.Backtest.StopLossPct,
				TakeProfitPct:  cfg.Backtest.TakeProfitPct,
			})
		},
		func(bars []domain.Bar) backtest.Policy {
			return policy.NewIndicatorPolicy(bars, policy.Config{Seed: *seed})
		},
		reporting.NewWriter(cfg.Backtest.OutputDir),
		logger,
		backtest.Config{
			InitialBalance: cfg.Backtest.InitialBalance,
			StreamInterval: cfg.Backtest.StreamInterval,
			MinRows:        cfg.Backtest.MinRows,
		},
	)

	emitter := stream.NewWriterEmitter(os.Stdout)
	results, err := svc.Run(ctx, backtest.RunRequest{Symbol: *symbol, Start: start, End: end}, emitter)
	if err != nil {
		// The stream already carries the error event.
		logger.Fatalf("run: %v", err)
	}

	logger.Printf("final balance %.2f (%.2f%%), %d trades, win rate %.2f%%",
		results.FinalBalance, results.TotalReturn, results.NumTrades, results.WinRate)
}

func buildStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.BarStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewBarStore(pool), pool.Close, nil

	case config.BackendClickHouse:
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, nil, err
		}
		return chstore.NewBarStore(conn), func() { _ = conn.Close() }, nil

	default: // csv
		bars, err := dataset.ReadBarsFile(cfg.Storage.CSVPath)
		if err != nil {
			return nil, nil, err
		}
		store := memory.NewBarStore()
		if err := store.InsertBulk(ctx, bars); err != nil {
			return nil, nil, err
		}
		logger.Printf("loaded %d bars from %s", len(bars), cfg.Storage.CSVPath)
		return store, func() {}, nil
	}
}
