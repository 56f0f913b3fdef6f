// Package main fetches historical crypto bars from the Alpaca market-data
// API and writes them to a CSV file usable by the server and ingest
// commands.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/dataset"
	"crypto-backtest-lab/internal/marketdata"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	symbol := flag.String("symbol", "", "Crypto symbol, e.g. BTC/USD (required)")
	startStr := flag.String("start", "", "Start date, e.g. 2024-01-01 (required)")
	endStr := flag.String("end", "", "End date (defaults to today)")
	outPath := flag.String("out", "bars.csv", "Output CSV path")
	flag.Parse()

	logger := log.New(os.Stderr, "[fetch] ", log.LstdFlags)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	start, err := time.ParseInLocation("2006-01-02", *startStr, time.UTC)
	if err != nil {
		logger.Fatalf("--start: %v", err)
	}
	end := time.Now().UTC()
	if *endStr != "" {
		end, err = time.ParseInLocation("2006-01-02", *endStr, time.UTC)
		if err != nil {
			logger.Fatalf("--end: %v", err)
		}
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

	fetcher := marketdata.NewFetcher(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, logger)

	bars, err := fetcher.FetchBars(ctx, *symbol, start, end)
	if err != nil {
		logger.Fatalf("fetch bars: %v", err)
	}
	if len(bars) == 0 {
		logger.Fatal("no bars returned for the requested window")
	}

	if err := dataset.WriteBarsFile(*outPath, bars); err != nil {
		logger.Fatalf("write bars: %v", err)
	}

	logger.Printf("wrote %d bars to %s", len(bars), *outPath)
}
