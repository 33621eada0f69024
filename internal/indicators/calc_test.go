package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickwatch/internal/models"
)

// generateBars builds an oldest-first series with a fixed ±1 high/low
// band around each close and constant volume.
func generateBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// generateVariedBars builds a series with high/low ranges that vary per
// bar, so directional movement is non-degenerate.
func generateVariedBars(n int, start, step float64) []models.Bar {
	bars := make([]models.Bar, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := start
	for i := 0; i < n; i++ {
		delta := step
		if i%3 == 1 {
			delta = -step / 2
		}
		c += delta
		bars[i] = models.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c - delta/2,
			High:   c + 1 + 0.3*float64(i%4),
			Low:    c - 1 - 0.2*float64(i%3),
			Close:  c,
			Volume: int64(1000 + 50*(i%5)),
		}
	}
	return bars
}

func TestCalculateShortSeries(t *testing.T) {
	tests := []struct {
		name string
		bars []models.Bar
	}{
		{"empty", nil},
		{"5 bars", generateBars([]float64{100, 101, 102, 103, 104})},
		{"9 bars", generateBars([]float64{100, 101, 102, 103, 104, 105, 106, 107, 108})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.bars)
			assert.Empty(t, result)
		})
	}
}

func TestIndicatorWindows(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		present []string
		absent  []string
	}{
		{
			name:    "20 bars",
			n:       20,
			present: []string{models.IndMA20, models.IndBBUpper, models.IndRSI14, models.IndKLine, models.IndATR14, models.IndPivot, models.IndVolumeRatio},
			absent:  []string{models.IndMACD, models.IndADX14, models.IndMA50, models.IndMA200},
		},
		{
			name:    "30 bars",
			n:       30,
			present: []string{models.IndMACD, models.IndMACDSignal, models.IndMACDHist, models.IndADX14},
			absent:  []string{models.IndMA50, models.IndMA200},
		},
		{
			name:    "60 bars",
			n:       60,
			present: []string{models.IndMA50},
			absent:  []string{models.IndMA200},
		},
		{
			name:    "130 bars",
			n:       130,
			present: []string{models.IndMA200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(generateVariedBars(tt.n, 100, 1.5))
			for _, key := range tt.present {
				_, ok := result.Get(key)
				assert.True(t, ok, "expected %s to be present", key)
			}
			for _, key := range tt.absent {
				_, ok := result.Get(key)
				assert.False(t, ok, "expected %s to be absent", key)
			}
		})
	}
}

func TestMACDHistogramIdentity(t *testing.T) {
	for _, n := range []int{26, 40, 100} {
		result := Calculate(generateVariedBars(n, 50, 2))
		macd, ok := result.Get(models.IndMACD)
		require.True(t, ok)
		signal, ok := result.Get(models.IndMACDSignal)
		require.True(t, ok)
		hist, ok := result.Get(models.IndMACDHist)
		require.True(t, ok)
		assert.InDelta(t, macd-signal, hist, 1e-9)
	}
}

func TestMACDCrossState(t *testing.T) {
	result := Calculate(generateVariedBars(40, 50, 2))
	macd, _ := result.Get(models.IndMACD)
	signal, _ := result.Get(models.IndMACDSignal)

	cross := result.MACDCross()
	if macd >= signal {
		assert.Equal(t, "GOLDEN", cross)
	} else {
		assert.Equal(t, "DEATH", cross)
	}

	flag, ok := result.Get(models.IndMACDNewCross)
	require.True(t, ok)
	assert.Contains(t, []float64{0, 1}, flag)
}

func TestRSIBoundaries(t *testing.T) {
	// Monotonically increasing closes: no losses, RSI saturates at 100.
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)*2
	}
	result := Calculate(generateBars(up))
	rsi, ok := result.Get(models.IndRSI14)
	require.True(t, ok)
	assert.InDelta(t, 100.0, rsi, 1e-9)

	// Monotonically decreasing: no gains, RSI bottoms out at 0.
	down := make([]float64, 20)
	for i := range down {
		down[i] = 200 - float64(i)*2
	}
	result = Calculate(generateBars(down))
	rsi, ok = result.Get(models.IndRSI14)
	require.True(t, ok)
	assert.InDelta(t, 0.0, rsi, 1e-9)

	// Flat closes: neither gains nor losses, RSI undefined and omitted.
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	result = Calculate(generateBars(flat))
	_, ok = result.Get(models.IndRSI14)
	assert.False(t, ok)
}

func TestBollingerBands(t *testing.T) {
	// Closes 1..20: mean 10.5, sample variance 665/19 = 35 exactly.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	result := Calculate(generateBars(closes))

	std := math.Sqrt(35)
	middle, ok := result.Get(models.IndBBMiddle)
	require.True(t, ok)
	assert.InDelta(t, 10.5, middle, 1e-9)

	upper, ok := result.Get(models.IndBBUpper)
	require.True(t, ok)
	assert.InDelta(t, 10.5+2*std, upper, 1e-9)

	lower, ok := result.Get(models.IndBBLower)
	require.True(t, ok)
	assert.InDelta(t, 10.5-2*std, lower, 1e-9)

	ma20, ok := result.Get(models.IndMA20)
	require.True(t, ok)
	assert.InDelta(t, 10.5, ma20, 1e-9)
}

func TestKDJFlatRising(t *testing.T) {
	// Close equals the channel high on every bar, so RSV is pinned at
	// 100 and the smoothed K/D/J all converge there.
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := generateBars(closes)
	for i := range bars {
		bars[i].High = bars[i].Close
		bars[i].Low = bars[i].Close - 2
	}

	result := Calculate(bars)
	k, ok := result.Get(models.IndKLine)
	require.True(t, ok)
	assert.InDelta(t, 100.0, k, 1e-9)

	d, ok := result.Get(models.IndDLine)
	require.True(t, ok)
	assert.InDelta(t, 100.0, d, 1e-9)

	j, ok := result.Get(models.IndJLine)
	require.True(t, ok)
	assert.InDelta(t, 100.0, j, 1e-9)
}

func TestATRConstantRange(t *testing.T) {
	// Flat closes with a constant 2-point high/low band: every true
	// range is 2, so the 14-bar mean is exactly 2.
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 50
	}
	result := Calculate(generateBars(closes))
	atr, ok := result.Get(models.IndATR14)
	require.True(t, ok)
	assert.InDelta(t, 2.0, atr, 1e-9)
}

func TestADXBounds(t *testing.T) {
	result := Calculate(generateVariedBars(30, 100, 1.5))
	adx, ok := result.Get(models.IndADX14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, adx, 0.0)
	assert.LessOrEqual(t, adx, 100.0)
}

func TestPivotPoints(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 110, 100}
	bars := generateBars(closes)
	// Prior completed bar: H=111, L=109, C=110
	bars[8].High = 111
	bars[8].Low = 109

	result := Calculate(bars)
	pivot, ok := result.Get(models.IndPivot)
	require.True(t, ok)
	assert.InDelta(t, 110.0, pivot, 1e-9)

	r1, _ := result.Get(models.IndResistance1)
	assert.InDelta(t, 2*110-109, r1, 1e-9) // 111

	s1, _ := result.Get(models.IndSupport1)
	assert.InDelta(t, 2*110-111, s1, 1e-9) // 109

	r2, _ := result.Get(models.IndResistance2)
	assert.InDelta(t, 110+2, r2, 1e-9)

	s2, _ := result.Get(models.IndSupport2)
	assert.InDelta(t, 110-2, s2, 1e-9)
}

func TestVolumeRatio(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}
	bars := generateBars(closes)
	bars[19].Volume = 2000 // spike on the last bar

	result := Calculate(bars)
	ratio, ok := result.Get(models.IndVolumeRatio)
	require.True(t, ok)
	// MA20 = (19*1000 + 2000)/20 = 1050
	assert.InDelta(t, 2000.0/1050.0, ratio, 1e-9)

	volMA, ok := result.Get(models.IndVolumeMA20)
	require.True(t, ok)
	assert.InDelta(t, 1050.0, volMA, 1e-9)
}

func TestRiskRewardPivotBand(t *testing.T) {
	// 10-bar series: short enough that only the pivot level exists.
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	bars := generateBars(closes)
	bars[8].High = 110
	bars[8].Low = 90
	// pivot = (110+90+100)/3 = 100, R1 = 110, S1 = 90; price 100 is
	// strictly inside, so reward/risk = (110-100)/(100-90) = 1.00.

	result := Calculate(bars)
	rr, ok := result.Get(models.IndRiskReward)
	require.True(t, ok)
	assert.InDelta(t, 1.0, rr, 1e-9)
	assert.Greater(t, rr, 0.0)
}

func TestRiskRewardAbsentOutsideBands(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 500}
	bars := generateBars(closes)
	bars[8].High = 110
	bars[8].Low = 90
	// Price 500 sits above R1; no Bollinger or MA50 levels exist at 10
	// bars, so the ratio must be omitted entirely.

	result := Calculate(bars)
	_, ok := result.Get(models.IndRiskReward)
	assert.False(t, ok)
}

func TestRiskRewardAlwaysPositive(t *testing.T) {
	for _, n := range []int{10, 20, 30, 60, 130} {
		result := Calculate(generateVariedBars(n, 100, 1.5))
		if rr, ok := result.Get(models.IndRiskReward); ok {
			assert.Greater(t, rr, 0.0, "series length %d", n)
		}
	}
}

func TestEMASeries(t *testing.T) {
	// Constant input stays constant under any smoothing.
	xs := []float64{5, 5, 5, 5, 5}
	out := EMASeries(xs, 3)
	for _, v := range out {
		assert.InDelta(t, 5.0, v, 1e-12)
	}

	// First output equals first input; second follows the recursion.
	xs = []float64{10, 20}
	out = EMASeries(xs, 3) // alpha = 0.5
	assert.InDelta(t, 10.0, out[0], 1e-12)
	assert.InDelta(t, 15.0, out[1], 1e-12)
}

func TestCalculateIsPure(t *testing.T) {
	bars := generateVariedBars(40, 100, 1.5)
	first := Calculate(bars)
	second := Calculate(bars)
	assert.Equal(t, first, second)
}

// Reference values below were computed independently with ewm(span,
// adjust=False) and a 14-delta rolling mean over the same closes.
func TestMACDAndRSIReferenceValues(t *testing.T) {
	closes := []float64{
		100, 101, 99, 102, 103, 101, 104, 105, 103, 106,
		107, 105, 108, 109, 107, 110, 111, 109, 112, 113,
		111, 114, 115, 113, 116, 117, 115, 118, 119, 117,
	}
	result := Calculate(generateBars(closes))

	macd, ok := result.Get(models.IndMACD)
	require.True(t, ok)
	assert.InDelta(t, 3.661007082929, macd, 1e-6)

	signal, ok := result.Get(models.IndMACDSignal)
	require.True(t, ok)
	assert.InDelta(t, 3.353331563424, signal, 1e-6)

	hist, ok := result.Get(models.IndMACDHist)
	require.True(t, ok)
	assert.InDelta(t, 0.307675519505, hist, 1e-6)

	slope, ok := result.Get(models.IndMACDHistSlope)
	require.True(t, ok)
	assert.InDelta(t, -0.156006043484, slope, 1e-6)

	// MACD stayed above the signal across the last two bars.
	newCross, ok := result.Get(models.IndMACDNewCross)
	require.True(t, ok)
	assert.InDelta(t, 0, newCross, 1e-12)

	// Last 14 deltas: 17 points gained, 10 lost, RSI = 1700/27.
	rsi, ok := result.Get(models.IndRSI14)
	require.True(t, ok)
	assert.InDelta(t, 62.962962962963, rsi, 1e-6)

	ma20, ok := result.Get(models.IndMA20)
	require.True(t, ok)
	assert.InDelta(t, 112.3, ma20, 1e-9)

	bbUp, ok := result.Get(models.IndBBUpper)
	require.True(t, ok)
	assert.InDelta(t, 120.407176807587, bbUp, 1e-6)

	bbLow, ok := result.Get(models.IndBBLower)
	require.True(t, ok)
	assert.InDelta(t, 104.192823192413, bbLow, 1e-6)
}
