// Package market reconciles provider data into cached per-ticker
// snapshots.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
	"github.com/bobmcallan/tickwatch/internal/providers"
)

// providerResolver is the slice of the provider registry the collector
// needs.
type providerResolver interface {
	Get(ticker, preferred string) providers.Provider
	Alternate(name string) string
	Instance(source string) providers.Provider
}

// Collector assembles a full snapshot for one ticker from a provider,
// falling back to the alternate source when the first yields no quote.
type Collector struct {
	resolver providerResolver
	logger   *common.Logger
	timeout  time.Duration
}

// NewCollector creates a Collector over a provider registry.
func NewCollector(resolver providerResolver, logger *common.Logger) *Collector {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Collector{
		resolver: resolver,
		logger:   logger,
		timeout:  common.FetchTimeout,
	}
}

// Collect fetches a snapshot for ticker, preferring the named source.
// A snapshot is usable only when it carries a priced quote; without one
// the alternate source is tried, and nil means both came up empty.
func (c *Collector) Collect(ctx context.Context, ticker, preferred string) *models.Snapshot {
	primary := c.resolver.Get(ticker, preferred)

	if snapshot := c.collectFrom(ctx, primary, ticker); snapshot != nil {
		return snapshot
	}

	alternate := c.resolver.Instance(c.resolver.Alternate(primary.Name()))
	if alternate.Name() == primary.Name() {
		return nil
	}

	c.logger.Info().
		Str("ticker", ticker).
		Str("primary", primary.Name()).
		Str("alternate", alternate.Name()).
		Msg("Primary source yielded no quote, trying alternate")

	return c.collectFrom(ctx, alternate, ticker)
}

// collectFrom gathers quote, fundamentals, indicators and news from one
// provider. Providers that can serve everything in a single pass do so;
// otherwise the four calls run concurrently and whatever completed is
// kept. No quote means no snapshot.
func (c *Collector) collectFrom(ctx context.Context, p providers.Provider, ticker string) *models.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if full, ok := p.(providers.FullFetcher); ok {
		if snapshot := full.GetFullSnapshot(ctx, ticker); snapshot != nil {
			return snapshot
		}
		// fall through to the per-component path
	}

	var (
		wg           sync.WaitGroup
		quote        *models.Quote
		fundamentals *models.Fundamentals
		indicatorSet models.IndicatorSet
		news         []*models.NewsItem
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		quote = p.GetQuote(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		fundamentals = p.GetFundamentals(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		indicatorSet = p.GetHistory(ctx, ticker, "1d", "6mo")
	}()
	go func() {
		defer wg.Done()
		news = p.GetNews(ctx, ticker)
	}()
	wg.Wait()

	if quote == nil || quote.Price <= 0 {
		return nil
	}

	return &models.Snapshot{
		Ticker:       models.NormalizeTicker(ticker),
		Name:         quote.Name,
		Price:        quote.Price,
		Change:       quote.Change,
		ChangePct:    quote.ChangePct,
		MarketStatus: quote.MarketStatus,
		Indicators:   indicatorSet,
		Fundamentals: fundamentals,
		Source:       p.Name(),
		LastUpdated:  quote.AsOf,
		News:         news,
	}
}
