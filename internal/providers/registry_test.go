package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickwatch/internal/common"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	config := common.NewDefaultConfig()
	return NewRegistry(&config.Providers, common.NewSilentLogger())
}

func TestRegistryRouting(t *testing.T) {
	registry := newTestRegistry(t)

	tests := []struct {
		name      string
		ticker    string
		preferred string
		want      string
	}{
		{"us ticker honors preference", "AAPL", SourceYahoo, SourceYahoo},
		{"us ticker alpha vantage", "AAPL", SourceAlphaVantage, SourceAlphaVantage},
		{"unknown preference falls back to default", "AAPL", "BLOOMBERG", SourceYahoo},
		{"empty preference falls back to default", "MSFT", "", SourceYahoo},
		{"a-share code overrides preference", "600519", SourceYahoo, SourceEastmoney},
		{"a-share with suffix overrides preference", "000001.SZ", SourceAlphaVantage, SourceEastmoney},
		{"lowercase suffix still a-share", "600519.sh", SourceYahoo, SourceEastmoney},
		{"seven digits is not a-share", "1234567", SourceYahoo, SourceYahoo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := registry.Get(tt.ticker, tt.preferred)
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestRegistryMemoizesInstances(t *testing.T) {
	registry := newTestRegistry(t)

	first := registry.Instance(SourceYahoo)
	second := registry.Get("AAPL", SourceYahoo)
	assert.Same(t, first, second)

	em := registry.Get("600519", "")
	assert.Same(t, em, registry.Instance(SourceEastmoney))
}

func TestRegistryAlternate(t *testing.T) {
	registry := newTestRegistry(t)

	assert.Equal(t, SourceAlphaVantage, registry.Alternate(SourceYahoo))
	assert.Equal(t, SourceYahoo, registry.Alternate(SourceAlphaVantage))
	assert.Equal(t, SourceYahoo, registry.Alternate(SourceEastmoney))
}

func TestRegistryConfiguredDefaultSource(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Providers.DefaultSource = "alpha_vantage"
	registry := NewRegistry(&config.Providers, common.NewSilentLogger())

	p := registry.Get("AAPL", "")
	assert.Equal(t, SourceAlphaVantage, p.Name())
}
