package market

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bobmcallan/tickwatch/internal/models"
)

const (
	// simDefaultPrice seeds tickers that were never priced.
	simDefaultPrice = 100.0
	// simDriftExisting jitters a known price by up to ±0.05%.
	simDriftExisting = 0.0005
	// simDriftNew spreads a seeded price by up to ±1%.
	simDriftNew = 0.01
)

// simulator fabricates plausible snapshots when every provider fails,
// so downstream consumers always get a priced answer. Output is marked
// SIMULATED and must never be mistaken for market data.
type simulator struct {
	mu        sync.Mutex
	baselines map[string]float64
	rnd       *rand.Rand
}

func newSimulator() *simulator {
	return &simulator{
		baselines: make(map[string]float64),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// simulate produces a snapshot for ticker at the given time. An existing
// priced snapshot drifts slightly and keeps its indicators and
// fundamentals; an unknown ticker gets a seeded baseline and a neutral
// RSI.
func (s *simulator) simulate(ticker string, existing *models.Snapshot, now time.Time) *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing != nil && existing.Price > 0 {
		drift := (s.rnd.Float64()*2 - 1) * simDriftExisting
		price := existing.Price * (1 + drift)

		snapshot := *existing
		snapshot.Price = price
		snapshot.Change = price - existing.Price
		snapshot.ChangePct = drift * 100
		snapshot.MarketStatus = models.MarketSimulated
		snapshot.Simulated = true
		snapshot.Source = "SIMULATED"
		snapshot.LastUpdated = now
		snapshot.News = nil
		return &snapshot
	}

	baseline, ok := s.baselines[ticker]
	if !ok {
		baseline = simDefaultPrice
		s.baselines[ticker] = baseline
	}
	drift := (s.rnd.Float64()*2 - 1) * simDriftNew
	price := baseline * (1 + drift)

	return &models.Snapshot{
		Ticker:       ticker,
		Name:         ticker,
		Price:        price,
		Change:       price - baseline,
		ChangePct:    drift * 100,
		MarketStatus: models.MarketSimulated,
		Simulated:    true,
		Indicators:   models.IndicatorSet{models.IndRSI14: 50},
		Source:       "SIMULATED",
		LastUpdated:  now,
	}
}
