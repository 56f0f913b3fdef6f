package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"runtime/debug"
	"time"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/metrics"
	"crypto-backtest-lab/internal/observability"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/storage"
	"crypto-backtest-lab/internal/stream"
)

// RunRequest identifies the slice of history a backtest runs over.
type RunRequest struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// EnvFactory builds the simulation environment for a run's bars.
type EnvFactory func(bars []domain.Bar, initialBalance float64) Environment

// PolicyFactory builds the action policy for a run's bars.
type PolicyFactory func(bars []domain.Bar) Policy

// Service runs complete backtests: it loads bars, drives the step loop,
// computes metrics from the recorded history, writes exports, and emits the
// progress event sequence throughout.
type Service struct {
	store     storage.BarStore
	newEnv    EnvFactory
	newPolicy PolicyFactory
	writer    *reporting.Writer
	logger    *log.Logger
	cfg       Config
}

// NewService creates a backtest service.
func NewService(store storage.BarStore, newEnv EnvFactory, newPolicy PolicyFactory, writer *reporting.Writer, logger *log.Logger, cfg Config) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     store,
		newEnv:    newEnv,
		newPolicy: newPolicy,
		writer:    writer,
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}
}

// Run executes one backtest and streams progress to emitter. The returned
// Results mirror the payload of the final complete event. On failure an
// error event has already been emitted and no exports are written.
func (s *Service) Run(ctx context.Context, req RunRequest, emitter stream.Emitter) (*stream.Results, error) {
	if emitter == nil {
		emitter = stream.Discard
	}

	started := time.Now()
	observability.RecordRunStarted()

	results, err := s.run(ctx, req, emitter, started)
	if err != nil {
		observability.RecordRunFailed(failReason(err))
		return nil, err
	}

	observability.RecordRunCompleted(time.Since(started).Seconds())
	return results, nil
}

func (s *Service) run(ctx context.Context, req RunRequest, emitter stream.Emitter, started time.Time) (*stream.Results, error) {
	if req.Symbol == "" || req.Start.IsZero() || req.End.IsZero() {
		s.emit(emitter, stream.NewError("Missing required parameters", ""))
		return nil, ErrMissingParameters
	}

	s.emit(emitter, stream.NewInfo("Loading data..."))

	bars, err := s.loadBars(ctx, req, emitter)
	if err != nil {
		return nil, err
	}

	totalSteps := len(bars)
	s.emit(emitter, stream.NewInit(totalSteps))

	env := s.newEnv(bars, s.cfg.InitialBalance)

	s.emit(emitter, stream.NewInfo("Loading policy..."))
	pol := s.newPolicy(bars)

	s.emit(emitter, stream.NewInfo("Starting backtest..."))

	driver := NewDriver(env, pol, emitter, s.logger, s.cfg)
	recorder, steps, err := driver.Run(ctx, bars)
	if err != nil {
		s.logger.Printf("backtest run failed: %v", err)
		s.emit(emitter, stream.NewError(err.Error(), string(debug.Stack())))
		return nil, fmt.Errorf("run backtest: %w", err)
	}
	observability.RecordSteps(steps)

	s.emit(emitter, stream.NewInfo("Calculating metrics from complete history..."))

	trades := metrics.ExtractTrades(recorder.Records())
	snapshot, err := metrics.Compute(recorder.Records(), trades, s.cfg.InitialBalance)
	if err != nil {
		s.emit(emitter, stream.NewError(err.Error(), string(debug.Stack())))
		return nil, fmt.Errorf("compute metrics: %w", err)
	}
	for _, t := range trades {
		observability.RecordTradeClosed(t.CloseReason)
	}

	tradesPath := s.exportTrades(emitter, trades)
	metricsPath := s.exportMetrics(emitter, snapshot, trades)

	results := stream.Results{
		Symbol:         req.Symbol,
		StartTime:      req.Start.Format(timestampLayout),
		EndTime:        req.End.Format(timestampLayout),
		Steps:          steps,
		InitialBalance: snapshot.InitialBalance,
		FinalBalance:   snapshot.FinalBalance,
		TotalPnL:       snapshot.FinalBalance - snapshot.InitialBalance,
		TotalReturn:    round2(snapshot.TotalReturnPct),
		TotalReward:    round2(snapshot.TotalReward),
		NumTrades:      snapshot.NumTrades,
		WinRate:        round2(snapshot.WinRate),
		MetricsSaved:   metricsPath,
		TradesCSVSaved: tradesPath,
	}
	s.emit(emitter, stream.NewComplete(results))

	s.logger.Printf("backtest complete: symbol=%s steps=%d trades=%d final=%.2f elapsed=%s",
		req.Symbol, steps, snapshot.NumTrades, snapshot.FinalBalance, time.Since(started).Round(time.Millisecond))

	return &results, nil
}

// loadBars fetches and validates the run's bar slice, emitting the matching
// error event when the data cannot support a run.
func (s *Service) loadBars(ctx context.Context, req RunRequest, emitter stream.Emitter) ([]domain.Bar, error) {
	loadStart := time.Now()

	stored, err := s.store.GetByTimeRange(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		s.emit(emitter, stream.NewError(err.Error(), string(debug.Stack())))
		return nil, fmt.Errorf("load bars: %w", err)
	}

	if len(stored) == 0 {
		// Distinguish an unknown symbol from an empty window.
		if _, trErr := s.store.GetTimeRange(ctx, req.Symbol); errors.Is(trErr, storage.ErrNotFound) {
			s.emit(emitter, stream.NewError(fmt.Sprintf("No data found for %s", req.Symbol), ""))
			return nil, fmt.Errorf("%w: symbol %s", ErrNoData, req.Symbol)
		}
		s.emit(emitter, stream.NewError("No data in selected time range", ""))
		return nil, ErrNoData
	}

	if len(stored) < s.cfg.MinRows {
		s.emit(emitter, stream.NewError(fmt.Sprintf("Insufficient data points (need at least %d)", s.cfg.MinRows), ""))
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(stored), s.cfg.MinRows)
	}

	bars := make([]domain.Bar, len(stored))
	for i, b := range stored {
		bars[i] = *b
	}
	observability.RecordBarsLoaded(len(bars), time.Since(loadStart).Seconds())

	return bars, nil
}

// exportTrades writes the trades CSV and returns its path, or "" when there
// was nothing to save or the write failed. Export failures degrade to a
// warning; the run still completes.
func (s *Service) exportTrades(emitter stream.Emitter, trades []domain.Trade) string {
	if len(trades) == 0 {
		s.emit(emitter, stream.NewInfo("No trades to save to CSV (0 trades executed)"))
		return ""
	}

	s.emit(emitter, stream.NewInfo(fmt.Sprintf("Saving %d trades to CSV...", len(trades))))

	path, err := s.writer.WriteTrades(trades)
	observability.RecordExport("trades_csv", err)
	if err != nil {
		s.logger.Printf("trades csv export failed: %v", err)
		s.emit(emitter, stream.NewWarning("Failed to save trades CSV"))
		return ""
	}

	s.emit(emitter, stream.NewInfo(fmt.Sprintf("Trades CSV saved to: %s", path)))
	return path
}

// exportMetrics writes the metrics report and returns its path, or "" on
// failure.
func (s *Service) exportMetrics(emitter stream.Emitter, snapshot *domain.MetricsSnapshot, trades []domain.Trade) string {
	s.emit(emitter, stream.NewInfo("Saving metrics to file..."))

	path, err := s.writer.WriteMetrics(snapshot, trades)
	observability.RecordExport("metrics_report", err)
	if err != nil {
		s.logger.Printf("metrics report export failed: %v", err)
		s.emit(emitter, stream.NewWarning("Failed to save metrics file"))
		return ""
	}

	s.emit(emitter, stream.NewInfo(fmt.Sprintf("Metrics saved to: %s", path)))
	return path
}

// emit sends an event, logging and dropping emitter failures so a slow or
// closed stream cannot abort a run.
func (s *Service) emit(emitter stream.Emitter, ev stream.Event) {
	observability.RecordEventEmitted(ev.EventType())
	if err := emitter.Emit(ev); err != nil {
		observability.DefaultMetrics.EmitErrors.Inc()
		s.logger.Printf("emit %s event: %v", ev.EventType(), err)
	}
}

func failReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingParameters):
		return "missing_parameters"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	default:
		return "runtime"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
