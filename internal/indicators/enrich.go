package indicators

import "github.com/bobmcallan/tickwatch/internal/models"

// EnrichedBar is an OHLCV bar with per-bar indicator columns for
// charting. Nil pointers mark positions where the indicator's window was
// not yet filled.
type EnrichedBar struct {
	models.Bar
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`
	RSI        *float64 `json:"rsi,omitempty"`
	BBUpper    *float64 `json:"bb_upper,omitempty"`
	BBMiddle   *float64 `json:"bb_middle,omitempty"`
	BBLower    *float64 `json:"bb_lower,omitempty"`
}

// Enrich adds MACD, RSI and Bollinger columns to every bar of a series
// for time-series charting. Series shorter than 10 bars are returned
// without columns.
func Enrich(bars []models.Bar) []EnrichedBar {
	n := len(bars)
	out := make([]EnrichedBar, n)
	for i, b := range bars {
		out[i] = EnrichedBar{Bar: b}
	}
	if n < minSeries {
		return out
	}

	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	ema12 := EMASeries(closes, 12)
	ema26 := EMASeries(closes, 26)
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = ema12[i] - ema26[i]
	}
	signal := EMASeries(macd, 9)
	for i := range out {
		m := macd[i]
		s := signal[i]
		h := m - s
		out[i].MACD = &m
		out[i].MACDSignal = &s
		out[i].MACDHist = &h
	}

	// RSI(14): defined once 14 deltas are available
	for i := 14; i < n; i++ {
		var gains, losses float64
		for w := i - 13; w <= i; w++ {
			delta := closes[w] - closes[w-1]
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}
		avgGain := gains / 14
		avgLoss := losses / 14
		if avgLoss == 0 {
			if avgGain == 0 {
				continue
			}
			v := 100.0
			out[i].RSI = &v
			continue
		}
		v := 100 - 100/(1+avgGain/avgLoss)
		out[i].RSI = &v
	}

	// Bollinger(20)
	for i := 19; i < n; i++ {
		window := closes[i-19 : i+1]
		m := mean(window)
		sd := sampleStd(window)
		up := m + 2*sd
		mid := m
		low := m - 2*sd
		out[i].BBUpper = &up
		out[i].BBMiddle = &mid
		out[i].BBLower = &low
	}

	return out
}
