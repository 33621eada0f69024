// Package providers implements market-data source clients behind a
// common interface, plus the registry that routes tickers to them.
package providers

import (
	"context"

	"github.com/bobmcallan/tickwatch/internal/models"
)

// Source names accepted as a caller preference.
const (
	SourceYahoo        = "YFINANCE"
	SourceAlphaVantage = "ALPHA_VANTAGE"
	SourceEastmoney    = "EASTMONEY"
)

// Provider retrieves market data from one external source. Every method
// fails soft: internal errors are logged and surfaced as nil or empty
// results, never as error returns. The orchestrator's only failure
// signal is an absent result.
//
// Ticker-format normalization (suffix stripping, exchange prefixes) and
// any source-specific retry policy are the provider's own business,
// invisible to callers.
type Provider interface {
	// Name returns the source identifier (one of the Source constants).
	Name() string

	// GetQuote retrieves a real-time quote, or nil when unavailable.
	GetQuote(ctx context.Context, ticker string) *models.Quote

	// GetFundamentals retrieves fundamental data, or nil. Absence of
	// individual fields is expected and not an error.
	GetFundamentals(ctx context.Context, ticker string) *models.Fundamentals

	// GetHistory retrieves OHLCV history and derives the indicator
	// snapshot from it. Returns nil when no usable history exists.
	GetHistory(ctx context.Context, ticker, interval, period string) models.IndicatorSet

	// GetNews retrieves recent news items, possibly empty.
	GetNews(ctx context.Context, ticker string) []*models.NewsItem
}

// FullFetcher is an optional single-pass optimization: a provider that
// can assemble the whole snapshot more cheaply than four separate
// calls. A nil result means the caller should fall back to the
// per-component methods.
type FullFetcher interface {
	GetFullSnapshot(ctx context.Context, ticker string) *models.Snapshot
}
