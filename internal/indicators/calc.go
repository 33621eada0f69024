// Package indicators provides technical indicator calculations over OHLCV
// series. All functions are pure: no I/O, no state, deterministic output.
//
// Input series are ordered oldest-first. Rolling and exponentially-weighted
// calculations follow pandas semantics (sample stddev, ewm adjust=false),
// so values line up with what charting tools built on pandas report.
package indicators

import (
	"math"

	"github.com/bobmcallan/tickwatch/internal/models"
)

// Minimum window per indicator. A series shorter than the window simply
// omits that indicator; nothing is computed with padding.
const (
	minSeries = 10
	minMACD   = 26
	minBB     = 20
	minRSI    = 15
	minKDJ    = 9
	minATR    = 15
	minADX    = 28
	minMA50   = 50
	minMA200  = 120
)

// Calculate derives the full indicator snapshot from an OHLCV series.
// Returns an empty set for series shorter than 10 bars. Each indicator
// whose own window is unmet is absent from the result.
func Calculate(bars []models.Bar) models.IndicatorSet {
	n := len(bars)
	out := models.IndicatorSet{}
	if n < minSeries {
		return out
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = float64(b.Volume)
	}

	// MACD line, signal, histogram, slope and cross flags
	if n >= minMACD {
		ema12 := EMASeries(closes, 12)
		ema26 := EMASeries(closes, 26)
		macd := make([]float64, n)
		for i := range macd {
			macd[i] = ema12[i] - ema26[i]
		}
		signal := EMASeries(macd, 9)

		currMACD := macd[n-1]
		currSignal := signal[n-1]
		out[models.IndMACD] = currMACD
		out[models.IndMACDSignal] = currSignal
		out[models.IndMACDHist] = currMACD - currSignal

		prevMACD := macd[n-2]
		prevSignal := signal[n-2]
		isNew := (prevMACD < prevSignal && currMACD >= currSignal) ||
			(prevMACD > prevSignal && currMACD <= currSignal)
		if isNew {
			out[models.IndMACDNewCross] = 1
		} else {
			out[models.IndMACDNewCross] = 0
		}
		out[models.IndMACDHistSlope] = (currMACD - currSignal) - (prevMACD - prevSignal)
	}

	// 20-day MA, Bollinger bands, volume MA and ratio
	if n >= minBB {
		window := closes[n-20:]
		ma20 := mean(window)
		std20 := sampleStd(window)
		out[models.IndMA20] = ma20
		out[models.IndBBUpper] = ma20 + 2*std20
		out[models.IndBBMiddle] = ma20
		out[models.IndBBLower] = ma20 - 2*std20

		volMA := mean(volumes[n-20:])
		out[models.IndVolumeMA20] = volMA
		if volMA > 0 {
			out[models.IndVolumeRatio] = volumes[n-1] / volMA
		} else {
			out[models.IndVolumeRatio] = 0
		}
	}

	// RSI(14)
	if n >= minRSI {
		if rsi, ok := rsi14(closes); ok {
			out[models.IndRSI14] = rsi
		}
	}

	// KDJ(9,3,3)
	if n >= minKDJ {
		k, d, j := kdj(closes, highs, lows)
		out[models.IndKLine] = k
		out[models.IndDLine] = d
		out[models.IndJLine] = j
	}

	// ATR(14)
	if n >= minATR {
		out[models.IndATR14] = mean(trueRanges(closes, highs, lows)[n-14:])
	}

	// ADX(14)
	if n >= minADX {
		if adx, ok := adx14(closes, highs, lows); ok {
			out[models.IndADX14] = adx
		}
	}

	// Classic pivot points from the prior completed bar
	lastH := highs[n-2]
	lastL := lows[n-2]
	lastC := closes[n-2]
	pivot := (lastH + lastL + lastC) / 3
	out[models.IndPivot] = pivot
	out[models.IndResistance1] = 2*pivot - lastL
	out[models.IndSupport1] = 2*pivot - lastH
	out[models.IndResistance2] = pivot + (lastH - lastL)
	out[models.IndSupport2] = pivot - (lastH - lastL)

	// Long moving averages
	if n >= minMA50 {
		out[models.IndMA50] = mean(closes[n-50:])
	}
	if n >= minMA200 {
		window := 200
		if n < window {
			window = n
		}
		out[models.IndMA200] = mean(closes[n-window:])
	}

	addRiskReward(out, closes[n-1])

	return out
}

// addRiskReward computes the reward/risk ratio with the three-level
// fallback: pivot band, then Bollinger band, then MA50 ± 2·ATR. The
// pivot level applies only when price lies strictly inside its band; the
// Bollinger level is selected whenever the bands exist (price outside
// them yields no ratio rather than falling through), and MA50 ± 2·ATR is
// reached only when no Bollinger bands were computed. A non-positive
// risk never produces a value.
func addRiskReward(out models.IndicatorSet, price float64) {
	r1, hasR1 := out.Get(models.IndResistance1)
	s1, hasS1 := out.Get(models.IndSupport1)
	bbUp, hasBBUp := out.Get(models.IndBBUpper)
	bbLow, hasBBLow := out.Get(models.IndBBLower)
	ma50, hasMA50 := out.Get(models.IndMA50)
	atr, hasATR := out.Get(models.IndATR14)

	switch {
	case hasR1 && hasS1 && r1 > price && price > s1:
		risk := price - s1
		if risk > 0 {
			out[models.IndRiskReward] = round2((r1 - price) / risk)
		}
	case hasBBUp && hasBBLow:
		if bbUp > price && price > bbLow {
			risk := price - bbLow
			if risk > 0 {
				out[models.IndRiskReward] = round2((bbUp - price) / risk)
			}
		}
	case hasMA50 && hasATR:
		upper := ma50 + 2*atr
		lower := ma50 - 2*atr
		if upper > price && price > lower {
			risk := price - lower
			if risk > 0 {
				out[models.IndRiskReward] = round2((upper - price) / risk)
			}
		}
	}
}

// EMASeries computes the exponentially-weighted mean of a series with the
// given span, using the recursive (adjust=false) form: the first output
// equals the first input, then y = (1-a)·y + a·x with a = 2/(span+1).
func EMASeries(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = (1-alpha)*out[i-1] + alpha*xs[i]
	}
	return out
}

// ewmCom is the recursive exponentially-weighted mean parameterized by
// center of mass: a = 1/(1+com).
func ewmCom(xs []float64, com float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 1.0 / (1.0 + com)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = (1-alpha)*out[i-1] + alpha*xs[i]
	}
	return out
}

// rsi14 computes RSI over the last 14 price deltas: gains and losses
// averaged separately, zero-floored, RSI = 100 − 100/(1+RS). A flat
// window (no gains, no losses) has no defined RSI and is omitted; an
// all-gain window saturates at 100.
func rsi14(closes []float64) (float64, bool) {
	n := len(closes)
	var gains, losses float64
	for i := n - 14; i < n; i++ {
		delta := closes[i] - closes[i-1]
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
			return 0, false
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// kdj computes the KDJ(9,3,3) oscillator: RSV over a 9-bar high/low
// channel, K and D smoothed with com=2, J = 3K − 2D. A degenerate
// channel (high == low across the window) pins RSV at the neutral 50.
func kdj(closes, highs, lows []float64) (k, d, j float64) {
	n := len(closes)
	rsv := make([]float64, 0, n-8)
	for i := 8; i < n; i++ {
		low9 := lows[i-8]
		high9 := highs[i-8]
		for w := i - 7; w <= i; w++ {
			if lows[w] < low9 {
				low9 = lows[w]
			}
			if highs[w] > high9 {
				high9 = highs[w]
			}
		}
		denom := high9 - low9
		if denom == 0 {
			rsv = append(rsv, 50)
		} else {
			rsv = append(rsv, (closes[i]-low9)/denom*100)
		}
	}
	ks := ewmCom(rsv, 2)
	ds := ewmCom(ks, 2)
	k = ks[len(ks)-1]
	d = ds[len(ds)-1]
	j = 3*k - 2*d
	return k, d, j
}

// trueRanges returns the per-bar true range: max(high−low,
// |high−prevClose|, |low−prevClose|). The first bar has no previous
// close and falls back to high−low.
func trueRanges(closes, highs, lows []float64) []float64 {
	n := len(closes)
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		pc := closes[i-1]
		tr[i] = math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-pc), math.Abs(lows[i]-pc)))
	}
	return tr
}

// adx14 computes ADX(14): directional movement smoothed over 14 bars,
// DI = 100·DM/TR, DX = 100·|+DI−−DI|/(+DI+−DI), ADX = 14-bar mean of DX.
// Returns false when any DX in the final window is undefined (zero
// directional movement and true range).
func adx14(closes, highs, lows []float64) (float64, bool) {
	n := len(closes)

	pdm := make([]float64, n)
	mdm := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i] - lows[i-1]
		if up > down && up > 0 {
			pdm[i] = up
		}
		if down > up && down > 0 {
			mdm[i] = down
		}
	}
	tr := trueRanges(closes, highs, lows)

	// DX is defined from index 13 onward (first full smoothing window).
	var sum float64
	for i := n - 14; i < n; i++ {
		trS := mean(tr[i-13 : i+1])
		pdmS := mean(pdm[i-13 : i+1])
		mdmS := mean(mdm[i-13 : i+1])
		if trS == 0 {
			return 0, false
		}
		plusDI := 100 * pdmS / trS
		minusDI := 100 * mdmS / trS
		if plusDI+minusDI == 0 {
			return 0, false
		}
		sum += 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	return sum / 14, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the ddof=1 standard deviation, matching pandas .std().
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
