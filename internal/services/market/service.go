package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
	"github.com/bobmcallan/tickwatch/internal/storage"
)

// snapshotCollector abstracts the collector for testing.
type snapshotCollector interface {
	Collect(ctx context.Context, ticker, preferred string) *models.Snapshot
}

// Service is the snapshot cache: it serves stored snapshots while they
// are fresh, refreshes them through the collector when they age out,
// and falls back to simulation when no provider delivers.
type Service struct {
	store     storage.Store
	collector snapshotCollector
	sim       *simulator
	logger    *common.Logger

	ttl            time.Duration
	refreshWorkers int
	newsLimit      int

	now func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the market service.
func NewService(config *common.Config, store storage.Store, collector snapshotCollector, logger *common.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	refreshWorkers := config.Cache.RefreshWorkers
	if refreshWorkers <= 0 {
		refreshWorkers = 5
	}
	newsLimit := config.Cache.NewsLimit
	if newsLimit <= 0 {
		newsLimit = 10
	}

	s := &Service{
		store:          store,
		collector:      collector,
		sim:            newSimulator(),
		logger:         logger,
		ttl:            config.Cache.GetTTL(),
		refreshWorkers: refreshWorkers,
		newsLimit:      newsLimit,
		now:            func() time.Time { return time.Now().UTC() },
		locks:          make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tickerLock returns the mutex serializing refreshes of one ticker, so
// concurrent requests cannot stampede a provider.
func (s *Service) tickerLock(ticker string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[ticker]
	if !ok {
		m = &sync.Mutex{}
		s.locks[ticker] = m
	}
	return m
}

// GetSnapshot returns the snapshot for a ticker. A stored snapshot
// younger than the TTL is served as-is unless forceRefresh is set;
// otherwise a fresh fetch is merged over it and persisted. When every
// provider fails the result is simulated, never an error.
func (s *Service) GetSnapshot(ctx context.Context, ticker, preferred string, forceRefresh bool) (*models.Snapshot, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	lock := s.tickerLock(ticker)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.GetSnapshot(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored snapshot for %s: %w", ticker, err)
	}

	now := s.now()
	if !forceRefresh && existing != nil && common.IsFreshAt(now, existing.LastUpdated, s.ttl) {
		s.logger.Debug().Str("ticker", ticker).Msg("Serving cached snapshot")
		return existing, nil
	}

	fresh := s.collector.Collect(ctx, ticker, preferred)
	if fresh == nil {
		s.logger.Warn().Str("ticker", ticker).Msg("All providers failed, simulating snapshot")
		simulated := s.sim.simulate(ticker, existing, now)
		if err := s.store.SaveSnapshot(ctx, simulated); err != nil {
			return nil, fmt.Errorf("failed to persist snapshot for %s: %w", ticker, err)
		}
		return simulated, nil
	}

	merged := mergeSnapshots(existing, fresh)
	merged.LastUpdated = now

	if len(fresh.News) > 0 {
		inserted, err := s.store.UpsertNews(ctx, fresh.News)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to store news")
		} else if inserted > 0 {
			s.logger.Debug().Str("ticker", ticker).Int("inserted", inserted).Msg("Stored news items")
		}
	}

	if err := s.store.SaveSnapshot(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot for %s: %w", ticker, err)
	}

	s.logger.Info().
		Str("ticker", ticker).
		Str("source", merged.Source).
		Float64("price", merged.Price).
		Msg("Snapshot refreshed")

	return merged, nil
}

// RefreshAll force-refreshes the given tickers, or every stored ticker
// when none are named, with bounded concurrency. It reports which
// tickers got real data and which fell back to simulation; one ticker's
// failure never aborts the batch.
func (s *Service) RefreshAll(ctx context.Context, tickers []string) (succeeded, failed []string, err error) {
	if len(tickers) == 0 {
		tickers, err = s.store.ListTickers(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list tickers: %w", err)
		}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	sem := make(chan struct{}, s.refreshWorkers)

	for _, ticker := range tickers {
		wg.Add(1)
		sem <- struct{}{}
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			snapshot, refreshErr := s.GetSnapshot(ctx, ticker, "", true)

			mu.Lock()
			defer mu.Unlock()
			if refreshErr != nil || snapshot == nil || snapshot.Simulated {
				failed = append(failed, ticker)
			} else {
				succeeded = append(succeeded, ticker)
			}
		}(ticker)
	}
	wg.Wait()

	sort.Strings(succeeded)
	sort.Strings(failed)

	s.logger.Info().
		Int("succeeded", len(succeeded)).
		Int("failed", len(failed)).
		Msg("Refresh cycle complete")

	return succeeded, failed, nil
}

// GetNews returns stored news for a ticker, newest first. limit <= 0
// applies the configured default.
func (s *Service) GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if limit <= 0 {
		limit = s.newsLimit
	}
	return s.store.GetNews(ctx, ticker, limit)
}
