// Package models defines data structures for Tickwatch
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// MarketStatus describes the state of the market a snapshot was taken in.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "OPEN"
	MarketClosed     MarketStatus = "CLOSED"
	MarketPreMarket  MarketStatus = "PRE_MARKET"
	MarketAfterHours MarketStatus = "AFTER_HOURS"
	// MarketSimulated marks synthetic data produced by the simulation
	// fallback. Consumers must be able to tell it apart from a real quote.
	MarketSimulated MarketStatus = "SIMULATED"
)

// Bar represents a single OHLCV bar. Series are ordered oldest-first.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Quote holds a real-time price quote from a provider.
type Quote struct {
	Ticker       string       `json:"ticker"`
	Price        float64      `json:"price"`
	Change       float64      `json:"change"`
	ChangePct    float64      `json:"change_percent"`
	Name         string       `json:"name,omitempty"`
	MarketStatus MarketStatus `json:"market_status"`
	AsOf         time.Time    `json:"as_of"`
}

// Fundamentals contains fundamental data for a ticker. Every field is
// optional; a nil pointer means the source did not supply a value, which
// the reconciliation layer must never interpret as zero.
type Fundamentals struct {
	Sector        string   `json:"sector,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	ForwardPE     *float64 `json:"forward_pe,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
	High52Week    *float64 `json:"fifty_two_week_high,omitempty"`
	Low52Week     *float64 `json:"fifty_two_week_low,omitempty"`
}

// IndicatorSet is a flat mapping of indicator name to value. A key is
// absent whenever the input series was too short for that indicator.
type IndicatorSet map[string]float64

// Indicator keys produced by the calculator.
const (
	IndMACD          = "macd_val"
	IndMACDSignal    = "macd_signal"
	IndMACDHist      = "macd_hist"
	IndMACDHistSlope = "macd_hist_slope"
	IndMACDNewCross  = "macd_is_new_cross"
	IndMA20          = "ma_20"
	IndMA50          = "ma_50"
	IndMA200         = "ma_200"
	IndBBUpper       = "bb_upper"
	IndBBMiddle      = "bb_middle"
	IndBBLower       = "bb_lower"
	IndVolumeMA20    = "volume_ma_20"
	IndVolumeRatio   = "volume_ratio"
	IndRSI14         = "rsi_14"
	IndKLine         = "k_line"
	IndDLine         = "d_line"
	IndJLine         = "j_line"
	IndATR14         = "atr_14"
	IndADX14         = "adx_14"
	IndPivot         = "pivot_point"
	IndResistance1   = "resistance_1"
	IndResistance2   = "resistance_2"
	IndSupport1      = "support_1"
	IndSupport2      = "support_2"
	IndRiskReward    = "risk_reward_ratio"
)

// Empty reports whether no indicators were computed.
func (s IndicatorSet) Empty() bool {
	return len(s) == 0
}

// Get returns the named indicator and whether it was computed.
func (s IndicatorSet) Get(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s[name]
	return v, ok
}

// MACDCross classifies the current MACD/signal relationship.
// Returns "GOLDEN" when the MACD line is at or above the signal line,
// "DEATH" when below, and "" when MACD was not computed.
func (s IndicatorSet) MACDCross() string {
	macd, ok1 := s.Get(IndMACD)
	signal, ok2 := s.Get(IndMACDSignal)
	if !ok1 || !ok2 {
		return ""
	}
	if macd >= signal {
		return "GOLDEN"
	}
	return "DEATH"
}

// MACDIsNewCross reports whether the MACD/signal relationship flipped on
// the most recent bar.
func (s IndicatorSet) MACDIsNewCross() bool {
	v, ok := s.Get(IndMACDNewCross)
	return ok && v != 0
}

// NewsItem represents a news article. Identity is derived from the link's
// content hash because sources are inconsistent about stable IDs.
type NewsItem struct {
	ID          string    `json:"id" badgerhold:"key"` // ticker|hash
	Ticker      string    `json:"ticker" badgerhold:"index"`
	Hash        string    `json:"hash"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsHash returns the content-hash identity for a news link.
func NewsHash(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])[:16]
}

// Key returns the storage key for a news item scoped to its ticker.
func (n *NewsItem) Key() string {
	return n.Ticker + "|" + n.Hash
}

// Snapshot is the reconciled, persisted per-ticker market state: quote
// fields, indicators, fundamentals, and freshness metadata. The cache
// layer owns the persisted copy; orchestrator output is a transient
// candidate that gets merged in field-by-field.
type Snapshot struct {
	Ticker       string        `json:"ticker" badgerhold:"key"`
	Name         string        `json:"name,omitempty"`
	Price        float64       `json:"price"`
	Change       float64       `json:"change"`
	ChangePct    float64       `json:"change_percent"`
	MarketStatus MarketStatus  `json:"market_status"`
	Simulated    bool          `json:"simulated,omitempty"`
	Indicators   IndicatorSet  `json:"indicators,omitempty"`
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	Source       string        `json:"source,omitempty"`
	LastUpdated  time.Time     `json:"last_updated"`

	// News carries freshly fetched items from the orchestrator to the
	// reconciliation layer. It is persisted in its own table, not here.
	News []*NewsItem `json:"news,omitempty"`
}

// Float64 returns a pointer to v, for populating optional fields.
func Float64(v float64) *float64 {
	return &v
}

var aShareRe = regexp.MustCompile(`^\d{6}(\.(SH|SZ))?$`)

// NormalizeTicker canonicalizes a ticker for comparison and storage.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// IsAShare reports whether a ticker's lexical shape identifies it as a
// mainland A-share code (six digits, optional .SH/.SZ suffix). A-share
// codes force provider routing regardless of caller preference.
func IsAShare(ticker string) bool {
	return aShareRe.MatchString(NormalizeTicker(ticker))
}

// AShareSymbol strips the exchange suffix from an A-share ticker,
// returning the bare six-digit code.
func AShareSymbol(ticker string) string {
	t := NormalizeTicker(ticker)
	if i := strings.IndexByte(t, '.'); i >= 0 {
		return t[:i]
	}
	return t
}
