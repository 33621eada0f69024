package providers

import (
	"strings"
	"sync"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
)

// Registry maps tickers to provider instances. Routing is driven by the
// ticker's lexical shape: A-share codes always go to Eastmoney, which
// is the only configured source able to reach that market; everything
// else follows the caller's stated preference. Instances are stateless
// and memoized so HTTP clients and rate limiters are built once.
type Registry struct {
	config *common.ProvidersConfig
	logger *common.Logger

	mu        sync.Mutex
	instances map[string]Provider
}

// NewRegistry creates a provider registry from configuration.
func NewRegistry(config *common.ProvidersConfig, logger *common.Logger) *Registry {
	return &Registry{
		config:    config,
		logger:    logger,
		instances: make(map[string]Provider),
	}
}

// Get resolves the provider for a ticker, honoring the preferred source
// unless the ticker's market classification forces a specific one.
func (r *Registry) Get(ticker, preferred string) Provider {
	if models.IsAShare(ticker) {
		return r.instance(SourceEastmoney)
	}
	return r.instance(r.canonicalSource(preferred))
}

// Alternate returns the fallback source tried after the named one
// yields nothing. Yahoo is the most broadly available source, so
// everything falls back to it; Yahoo itself falls back to Alpha
// Vantage.
func (r *Registry) Alternate(name string) string {
	if name == SourceYahoo {
		return SourceAlphaVantage
	}
	return SourceYahoo
}

// Instance returns the memoized provider for a source name, building it
// on first use.
func (r *Registry) Instance(source string) Provider {
	return r.instance(r.canonicalSource(source))
}

func (r *Registry) canonicalSource(source string) string {
	switch strings.ToUpper(strings.TrimSpace(source)) {
	case SourceAlphaVantage:
		return SourceAlphaVantage
	case SourceEastmoney:
		return SourceEastmoney
	case SourceYahoo:
		return SourceYahoo
	}
	if d := strings.ToUpper(r.config.DefaultSource); d == SourceAlphaVantage || d == SourceEastmoney {
		return d
	}
	return SourceYahoo
}

func (r *Registry) instance(source string) Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[source]; ok {
		return p
	}

	var p Provider
	switch source {
	case SourceAlphaVantage:
		p = NewAlphaVantageClient(&r.config.AlphaVantage, r.logger)
	case SourceEastmoney:
		p = NewEastmoneyClient(&r.config.Eastmoney, r.logger)
	default:
		p = NewYahooClient(&r.config.Yahoo, r.logger)
	}

	r.instances[source] = p
	return p
}
