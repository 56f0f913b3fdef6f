// Package marketdata fetches historical OHLCV bars from the Alpaca
// market-data API, used by the fetch command to seed local bar storage.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"crypto-backtest-lab/internal/domain"
)

// Fetcher retrieves crypto bars from Alpaca.
type Fetcher struct {
	client *marketdata.Client
	logger *log.Logger
}

// NewFetcher creates a Fetcher with the given Alpaca credentials. Empty
// credentials are allowed: crypto market data does not require them.
func NewFetcher(apiKey, apiSecret string, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		logger: logger,
	}
}

// FetchBars fetches minute bars for one crypto symbol (e.g. "BTC/USD")
// within [start, end].
func (f *Fetcher) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cryptoBars, err := f.client.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCryptoBars %s: %w", symbol, err)
	}

	bars := make([]*domain.Bar, 0, len(cryptoBars))
	for _, cb := range cryptoBars {
		bars = append(bars, &domain.Bar{
			Symbol:   symbol,
			OpenTime: cb.Timestamp.UTC(),
			Open:     cb.Open,
			High:     cb.High,
			Low:      cb.Low,
			Close:    cb.Close,
			Volume:   cb.Volume,
		})
	}

	f.logger.Printf("fetched %d bars for %s [%s .. %s]",
		len(bars), symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	return bars, nil
}
