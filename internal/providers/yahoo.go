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
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/indicators"
	"github.com/bobmcallan/tickwatch/internal/models"
)

const (
	yahooDefaultBaseURL = "https://query2.finance.yahoo.com"
	yahooDefaultTimeout = 10 * time.Second
	yahooUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "None" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// YahooClient fetches quotes, fundamentals, history and news from the
// Yahoo Finance JSON endpoints. It owns its HTTP client, including any
// proxy behavior, so configuration never leaks across providers.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// NewYahooClient creates a Yahoo Finance client from configuration.
func NewYahooClient(config *common.YahooConfig, logger *common.Logger) *YahooClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = yahooDefaultBaseURL
	}
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &YahooClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   config.GetTimeout(),
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		logger:  logger,
	}
}

// Name returns the source identifier.
func (c *YahooClient) Name() string {
	return SourceYahoo
}

// get performs a rate-limited GET request and decodes the JSON body.
func (c *YahooClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("yahoo API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// chartResponse mirrors the v8 chart API payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// yahooSymbol maps a ticker to Yahoo's symbol form. Mainland A-share
// codes need an exchange suffix there: Shanghai listings (6xxxxx) take
// .SS, Shenzhen listings .SZ. This keeps the alternate-source leg
// usable when the primary A-share provider fails.
func yahooSymbol(ticker string) string {
	t := models.NormalizeTicker(ticker)
	if !models.IsAShare(t) {
		return t
	}
	code := models.AShareSymbol(t)
	if strings.HasPrefix(code, "6") {
		return code + ".SS"
	}
	return code + ".SZ"
}

func (c *YahooClient) chart(ctx context.Context, ticker, interval, period string) (*chartResponse, error) {
	if interval == "" {
		interval = "1d"
	}
	if period == "" {
		period = "6mo"
	}
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("range", period)

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(yahooSymbol(ticker)), params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %v", resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart: no result for %s", ticker)
	}
	return &resp, nil
}

func quoteFromChart(ticker string, resp *chartResponse) *models.Quote {
	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil
	}

	name := meta.ShortName
	if name == "" {
		name = meta.Symbol
	}
	asOf := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	quote := &models.Quote{
		Ticker:       models.NormalizeTicker(ticker),
		Price:        meta.RegularMarketPrice,
		Name:         name,
		MarketStatus: models.MarketOpen,
		AsOf:         asOf,
	}
	if meta.PreviousClose > 0 {
		quote.Change = meta.RegularMarketPrice - meta.PreviousClose
		quote.ChangePct = quote.Change / meta.PreviousClose * 100
	}
	return quote
}

func barsFromChart(resp *chartResponse) []models.Bar {
	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue // null bar (holiday or pre-listing)
		}
		bars = append(bars, models.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  quote.Close[i],
			Volume: atInt(quote.Volume, i),
		})
	}
	return bars
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func atInt(xs []int64, i int) int64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

// GetQuote retrieves the current quote from the chart metadata.
func (c *YahooClient) GetQuote(ctx context.Context, ticker string) *models.Quote {
	resp, err := c.chart(ctx, ticker, "1d", "5d")
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Yahoo quote failed")
		return nil
	}
	return quoteFromChart(ticker, resp)
}

// quoteSummaryResponse mirrors the v10 quoteSummary payload; all values
// come wrapped in {raw, fmt} objects.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				MarketCap     rawValue `json:"marketCap"`
				TrailingPE    rawValue `json:"trailingPE"`
				ForwardPE     rawValue `json:"forwardPE"`
				DividendYield rawValue `json:"dividendYield"`
				Beta          rawValue `json:"beta"`
				High52Week    rawValue `json:"fiftyTwoWeekHigh"`
				Low52Week     rawValue `json:"fiftyTwoWeekLow"`
			} `json:"summaryDetail"`
			KeyStatistics struct {
				TrailingEPS rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

// GetFundamentals retrieves fundamental data from quoteSummary.
func (c *YahooClient) GetFundamentals(ctx context.Context, ticker string) *models.Fundamentals {
	params := url.Values{}
	params.Set("modules", "summaryDetail,defaultKeyStatistics,assetProfile")

	var resp quoteSummaryResponse
	err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(yahooSymbol(ticker)), params, &resp)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Yahoo fundamentals failed")
		return nil
	}
	if resp.QuoteSummary.Error != nil || len(resp.QuoteSummary.Result) == 0 {
		return nil
	}

	r := resp.QuoteSummary.Result[0]
	return &models.Fundamentals{
		Sector:        r.AssetProfile.Sector,
		Industry:      r.AssetProfile.Industry,
		MarketCap:     r.SummaryDetail.MarketCap.Raw,
		PERatio:       r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:     r.SummaryDetail.ForwardPE.Raw,
		EPS:           r.KeyStatistics.TrailingEPS.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
		Beta:          r.SummaryDetail.Beta.Raw,
		High52Week:    r.SummaryDetail.High52Week.Raw,
		Low52Week:     r.SummaryDetail.Low52Week.Raw,
	}
}

// GetHistory retrieves OHLCV history and derives indicators from it.
func (c *YahooClient) GetHistory(ctx context.Context, ticker, interval, period string) models.IndicatorSet {
	resp, err := c.chart(ctx, ticker, interval, period)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Yahoo history failed")
		return nil
	}
	bars := barsFromChart(resp)
	if len(bars) == 0 {
		return nil
	}
	return indicators.Calculate(bars)
}

// searchResponse mirrors the v1 search payload (news portion).
type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// GetNews retrieves recent news from the search endpoint.
func (c *YahooClient) GetNews(ctx context.Context, ticker string) []*models.NewsItem {
	params := url.Values{}
	params.Set("q", yahooSymbol(ticker))
	params.Set("newsCount", "10")
	params.Set("quotesCount", "0")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Yahoo news failed")
		return nil
	}

	items := make([]*models.NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		if n.Link == "" || n.Title == "" {
			continue
		}
		item := &models.NewsItem{
			Ticker:      models.NormalizeTicker(ticker),
			Hash:        models.NewsHash(n.Link),
			Title:       n.Title,
			Publisher:   n.Publisher,
			Link:        n.Link,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
		}
		item.ID = item.Key()
		items = append(items, item)
	}
	return items
}

// GetFullSnapshot assembles quote, indicators, fundamentals and news in
// one pass. The chart call yields both the quote and a year of bars, so
// only three requests run, concurrently. Returns nil when no quote with
// a price was obtained.
func (c *YahooClient) GetFullSnapshot(ctx context.Context, ticker string) *models.Snapshot {
	var (
		wg           sync.WaitGroup
		chartResp    *chartResponse
		chartErr     error
		fundamentals *models.Fundamentals
		news         []*models.NewsItem
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		chartResp, chartErr = c.chart(ctx, ticker, "1d", "1y")
	}()
	go func() {
		defer wg.Done()
		fundamentals = c.GetFundamentals(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		news = c.GetNews(ctx, ticker)
	}()
	wg.Wait()

	if chartErr != nil {
		c.logger.Warn().Err(chartErr).Str("ticker", ticker).Msg("Yahoo full snapshot failed")
		return nil
	}
	quote := quoteFromChart(ticker, chartResp)
	if quote == nil || quote.Price <= 0 {
		return nil
	}

	var indicatorSet models.IndicatorSet
	if bars := barsFromChart(chartResp); len(bars) > 0 {
		indicatorSet = indicators.Calculate(bars)
	}

	return &models.Snapshot{
		Ticker:       quote.Ticker,
		Name:         quote.Name,
		Price:        quote.Price,
		Change:       quote.Change,
		ChangePct:    quote.ChangePct,
		MarketStatus: quote.MarketStatus,
		Indicators:   indicatorSet,
		Fundamentals: fundamentals,
		Source:       c.Name(),
		LastUpdated:  quote.AsOf,
		News:         news,
	}
}

// Ensure interface compliance
var (
	_ Provider    = (*YahooClient)(nil)
	_ FullFetcher = (*YahooClient)(nil)
)
