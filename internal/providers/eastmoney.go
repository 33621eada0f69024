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

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/indicators"
	"github.com/bobmcallan/tickwatch/internal/models"
)

const (
	eastmoneyDefaultBaseURL = "https://push2.eastmoney.com"
	eastmoneyMaxAttempts    = 3
	eastmoneyRetryBase      = 500 * time.Millisecond
)

// EastmoneyClient fetches A-share quotes and kline history from the
// Eastmoney push2 endpoints. It is a domestic source, so its HTTP
// client deliberately carries no proxy: environment proxy settings that
// help the offshore providers break this one.
type EastmoneyClient struct {
	baseURL    string
	histURL    string
	httpClient *http.Client
	logger     *common.Logger
}

// NewEastmoneyClient creates an Eastmoney client from configuration.
func NewEastmoneyClient(config *common.EastmoneyConfig, logger *common.Logger) *EastmoneyClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = eastmoneyDefaultBaseURL
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	transport := &http.Transport{
		Proxy: nil, // direct connection
	}

	return &EastmoneyClient{
		baseURL: baseURL,
		// kline history lives on a sibling host
		histURL: strings.Replace(baseURL, "push2.", "push2his.", 1),
		httpClient: &http.Client{
			Timeout:   config.GetTimeout(),
			Transport: transport,
		},
		logger: logger,
	}
}

// Name returns the source identifier.
func (c *EastmoneyClient) Name() string {
	return SourceEastmoney
}

// secID maps a six-digit A-share code to an Eastmoney security id.
// Shanghai codes (6xxxxx) get market prefix 1, Shenzhen gets 0.
func secID(ticker string) string {
	code := models.AShareSymbol(ticker)
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

// get performs a GET with retry; the push2 endpoints intermittently
// return empty payloads under load.
func (c *EastmoneyClient) get(ctx context.Context, rawURL string, result interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= eastmoneyMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(eastmoneyRetryBase * time.Duration(attempt-1)):
			}
		}

		lastErr = c.getOnce(ctx, rawURL, result)
		if lastErr == nil {
			return nil
		}
		c.logger.Debug().Err(lastErr).Int("attempt", attempt).Msg("Eastmoney request failed, retrying")
	}
	return lastErr
}

func (c *EastmoneyClient) getOnce(ctx context.Context, rawURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("eastmoney API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// stockGetResponse mirrors /api/qt/stock/get. With fltt=2 the numeric
// fields arrive as plain floats.
type stockGetResponse struct {
	Data *struct {
		Price     flexFloat64 `json:"f43"`  // latest price
		Code      string      `json:"f57"`  // security code
		Name      string      `json:"f58"`  // security name
		Change    flexFloat64 `json:"f169"` // price change
		ChangePct flexFloat64 `json:"f170"` // change percent
		Volume    flexFloat64 `json:"f47"`  // volume (lots)
		MarketCap flexFloat64 `json:"f116"` // total market cap
		PERatio   flexFloat64 `json:"f162"` // PE (TTM)
	} `json:"data"`
}

func (c *EastmoneyClient) stockGet(ctx context.Context, ticker string) (*stockGetResponse, error) {
	params := url.Values{}
	params.Set("secid", secID(ticker))
	params.Set("invt", "2")
	params.Set("fltt", "2")
	params.Set("fields", "f43,f47,f57,f58,f116,f162,f169,f170")

	var resp stockGetResponse
	if err := c.get(ctx, c.baseURL+"/api/qt/stock/get?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney: no data for %s", ticker)
	}
	return &resp, nil
}

// GetQuote retrieves the current A-share quote.
func (c *EastmoneyClient) GetQuote(ctx context.Context, ticker string) *models.Quote {
	resp, err := c.stockGet(ctx, ticker)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Eastmoney quote failed")
		return nil
	}

	d := resp.Data
	if float64(d.Price) <= 0 {
		return nil
	}

	name := d.Name
	if name == "" {
		name = models.NormalizeTicker(ticker)
	}
	return &models.Quote{
		Ticker:       models.NormalizeTicker(ticker),
		Price:        float64(d.Price),
		Change:       float64(d.Change),
		ChangePct:    float64(d.ChangePct),
		Name:         name,
		MarketStatus: models.MarketOpen,
		AsOf:         time.Now().UTC(),
	}
}

// GetFundamentals retrieves the fundamentals the quote endpoint carries.
// Eastmoney exposes no sector or dividend data on this endpoint, so the
// result is sparse.
func (c *EastmoneyClient) GetFundamentals(ctx context.Context, ticker string) *models.Fundamentals {
	resp, err := c.stockGet(ctx, ticker)
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Eastmoney fundamentals failed")
		return nil
	}

	d := resp.Data
	f := &models.Fundamentals{}
	if v := float64(d.MarketCap); v > 0 {
		f.MarketCap = models.Float64(v)
	}
	if v := float64(d.PERatio); v > 0 {
		f.PERatio = models.Float64(v)
	}
	if f.MarketCap == nil && f.PERatio == nil {
		return nil
	}
	return f
}

// klineResponse mirrors /api/qt/stock/kline/get. Each kline string is
// "date,open,close,high,low,volume,...".
type klineResponse struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// GetHistory retrieves daily kline history and derives indicators.
// interval is ignored: only daily bars are supported.
func (c *EastmoneyClient) GetHistory(ctx context.Context, ticker, interval, period string) models.IndicatorSet {
	params := url.Values{}
	params.Set("secid", secID(ticker))
	params.Set("fields1", "f1,f2,f3")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56")
	params.Set("klt", "101") // daily
	params.Set("fqt", "1")   // forward adjusted
	params.Set("lmt", strconv.Itoa(periodToBars(period)))
	params.Set("end", "20500101")

	var resp klineResponse
	if err := c.get(ctx, c.histURL+"/api/qt/stock/kline/get?"+params.Encode(), &resp); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Eastmoney history failed")
		return nil
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil
	}

	bars := make([]models.Bar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, ok := parseKline(line)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil
	}
	return indicators.Calculate(bars)
}

// parseKline parses one "date,open,close,high,low,volume,..." record.
func parseKline(line string) (models.Bar, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return models.Bar{}, false
	}
	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return models.Bar{}, false
	}
	open, err1 := strconv.ParseFloat(parts[1], 64)
	closeP, err2 := strconv.ParseFloat(parts[2], 64)
	high, err3 := strconv.ParseFloat(parts[3], 64)
	low, err4 := strconv.ParseFloat(parts[4], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closeP <= 0 {
		return models.Bar{}, false
	}
	volume, _ := strconv.ParseInt(parts[5], 10, 64)
	return models.Bar{
		Date:   date.UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closeP,
		Volume: volume,
	}, true
}

// periodToBars translates a range token into a kline count.
func periodToBars(period string) int {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1mo":
		return 22
	case "3mo":
		return 66
	case "6mo":
		return 130
	default:
		return 250
	}
}

// GetNews is not available from the push2 endpoints.
func (c *EastmoneyClient) GetNews(ctx context.Context, ticker string) []*models.NewsItem {
	return nil
}

var _ Provider = (*EastmoneyClient)(nil)
