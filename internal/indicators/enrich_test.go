package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickwatch/internal/models"
)

func TestEnrichShortSeries(t *testing.T) {
	bars := generateBars([]float64{100, 101, 102})
	out := Enrich(bars)
	require.Len(t, out, 3)
	for _, eb := range out {
		assert.Nil(t, eb.MACD)
		assert.Nil(t, eb.RSI)
		assert.Nil(t, eb.BBUpper)
	}
}

func TestEnrichColumns(t *testing.T) {
	bars := generateVariedBars(30, 100, 1.5)
	out := Enrich(bars)
	require.Len(t, out, 30)

	// MACD columns cover the whole series (ewm has no warmup gap).
	for i, eb := range out {
		require.NotNil(t, eb.MACD, "bar %d", i)
		require.NotNil(t, eb.MACDSignal, "bar %d", i)
		require.NotNil(t, eb.MACDHist, "bar %d", i)
		assert.InDelta(t, *eb.MACD-*eb.MACDSignal, *eb.MACDHist, 1e-9)
	}

	// RSI appears once 14 deltas are available.
	for i := 0; i < 14; i++ {
		assert.Nil(t, out[i].RSI, "bar %d", i)
	}
	for i := 14; i < 30; i++ {
		require.NotNil(t, out[i].RSI, "bar %d", i)
		assert.GreaterOrEqual(t, *out[i].RSI, 0.0)
		assert.LessOrEqual(t, *out[i].RSI, 100.0)
	}

	// Bollinger appears after a full 20-bar window.
	for i := 0; i < 19; i++ {
		assert.Nil(t, out[i].BBUpper, "bar %d", i)
	}
	for i := 19; i < 30; i++ {
		require.NotNil(t, out[i].BBUpper, "bar %d", i)
		assert.Greater(t, *out[i].BBUpper, *out[i].BBLower)
	}

	// The final bar's columns agree with the snapshot calculator.
	snap := Calculate(bars)
	wantMACD, _ := snap.Get(models.IndMACD)
	assert.InDelta(t, wantMACD, *out[29].MACD, 1e-9)
	wantRSI, _ := snap.Get(models.IndRSI14)
	assert.InDelta(t, wantRSI, *out[29].RSI, 1e-9)
	wantUpper, _ := snap.Get(models.IndBBUpper)
	assert.InDelta(t, wantUpper, *out[29].BBUpper, 1e-9)
}
