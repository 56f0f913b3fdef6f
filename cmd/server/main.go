// Package main runs the backtest HTTP server: REST endpoints for data
// discovery plus the SSE and WebSocket backtest streams.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/dataset"
	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/httpapi"
	"crypto-backtest-lab/internal/policy"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/simenv"
	"crypto-backtest-lab/internal/storage"
	chstore "crypto-backtest-lab/internal/storage/clickhouse"
	"crypto-backtest-lab/internal/storage/memory"
	pgstore "crypto-backtest-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address override (host:port)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

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
			return policy.NewIndicatorPolicy(bars, policy.Config{})
		},
		reporting.NewWriter(cfg.Backtest.OutputDir),
		logger,
		backtest.Config{
			InitialBalance: cfg.Backtest.InitialBalance,
			StreamInterval: cfg.Backtest.StreamInterval,
			MinRows:        cfg.Backtest.MinRows,
		},
	)

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	api := httpapi.NewServer(store, svc, logger)
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: api.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s (storage backend: %s)", listenAddr, cfg.Storage.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server: %v", err)
	}
	logger.Println("server stopped")
}

// buildStore creates the configured bar store. The CSV backend loads the
// file into an in-memory store at startup.
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
