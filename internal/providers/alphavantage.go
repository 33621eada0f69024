package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
)

const (
	alphaVantageDefaultBaseURL = "https://www.alphavantage.co"
)

// AlphaVantageClient fetches quotes and company overviews from the
// Alpha Vantage REST API. The free tier has no usable history or news
// endpoints, so those return nothing and callers fall through to the
// alternate provider.
type AlphaVantageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// NewAlphaVantageClient creates an Alpha Vantage client from configuration.
func NewAlphaVantageClient(config *common.AlphaVantageConfig, logger *common.Logger) *AlphaVantageClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = alphaVantageDefaultBaseURL
	}
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	return &AlphaVantageClient{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.GetTimeout(),
		},
		// free tier: 5 requests per minute
		limiter: rate.NewLimiter(rate.Limit(float64(rateLimit)/60.0), 1),
		logger:  logger,
	}
}

// Name returns the source identifier.
func (c *AlphaVantageClient) Name() string {
	return SourceAlphaVantage
}

func (c *AlphaVantageClient) query(ctx context.Context, function, ticker string, result interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("alpha vantage API key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", models.NormalizeTicker(ticker))
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", function).Str("ticker", ticker).Msg("Alpha Vantage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("alpha vantage API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note string `json:"Note"`
}

// GetQuote retrieves the current quote via GLOBAL_QUOTE.
func (c *AlphaVantageClient) GetQuote(ctx context.Context, ticker string) *models.Quote {
	var resp globalQuoteResponse
	if err := c.query(ctx, "GLOBAL_QUOTE", ticker, &resp); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Alpha Vantage quote failed")
		return nil
	}
	if resp.Note != "" {
		c.logger.Warn().Str("ticker", ticker).Msg("Alpha Vantage rate limit note returned")
		return nil
	}

	price := parseAVFloat(resp.GlobalQuote.Price)
	if price == nil || *price <= 0 {
		return nil
	}

	quote := &models.Quote{
		Ticker:       models.NormalizeTicker(ticker),
		Price:        *price,
		Name:         resp.GlobalQuote.Symbol,
		MarketStatus: models.MarketOpen,
		AsOf:         time.Now().UTC(),
	}
	if ch := parseAVFloat(resp.GlobalQuote.Change); ch != nil {
		quote.Change = *ch
	}
	if pct := parseAVFloat(strings.TrimSuffix(resp.GlobalQuote.ChangePercent, "%")); pct != nil {
		quote.ChangePct = *pct
	}
	return quote
}

type overviewResponse struct {
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	ForwardPE            string `json:"ForwardPE"`
	EPS                  string `json:"EPS"`
	DividendYield        string `json:"DividendYield"`
	Beta                 string `json:"Beta"`
	High52Week           string `json:"52WeekHigh"`
	Low52Week            string `json:"52WeekLow"`
}

// GetFundamentals retrieves company fundamentals via OVERVIEW.
func (c *AlphaVantageClient) GetFundamentals(ctx context.Context, ticker string) *models.Fundamentals {
	var resp overviewResponse
	if err := c.query(ctx, "OVERVIEW", ticker, &resp); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Alpha Vantage fundamentals failed")
		return nil
	}
	if resp.Name == "" && resp.Sector == "" {
		return nil
	}

	return &models.Fundamentals{
		Sector:        resp.Sector,
		Industry:      resp.Industry,
		MarketCap:     parseAVFloat(resp.MarketCapitalization),
		PERatio:       parseAVFloat(resp.PERatio),
		ForwardPE:     parseAVFloat(resp.ForwardPE),
		EPS:           parseAVFloat(resp.EPS),
		DividendYield: parseAVFloat(resp.DividendYield),
		Beta:          parseAVFloat(resp.Beta),
		High52Week:    parseAVFloat(resp.High52Week),
		Low52Week:     parseAVFloat(resp.Low52Week),
	}
}

// GetHistory is not supported on the free tier.
func (c *AlphaVantageClient) GetHistory(ctx context.Context, ticker, interval, period string) models.IndicatorSet {
	return nil
}

// GetNews is not supported on the free tier.
func (c *AlphaVantageClient) GetNews(ctx context.Context, ticker string) []*models.NewsItem {
	return nil
}

// parseAVFloat converts an Alpha Vantage string value to a float, or nil
// when the field is absent or a sentinel like "None".
func parseAVFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" || s == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

var _ Provider = (*AlphaVantageClient)(nil)
