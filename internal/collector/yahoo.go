package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"

	"github.com/tidwall/gjson"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", strconv.FormatInt(model.Day(from).Unix(), 10))
	params.Add("period2", strconv.FormatInt(model.Day(to).AddDate(0, 0, 1).Unix(), 10))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "yahoo: %s status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	bars, err := parseYahooChart(body)
	if err != nil {
		return nil, err
	}
	filtered := bars[:0]
	for _, b := range bars {
		if inRange(b.Date, from, to) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// parseYahooChart extracts daily bars from a chart API payload. Bars with a
// null close (holidays, halted sessions) are skipped.
func parseYahooChart(body []byte) ([]model.PriceBar, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New(errors.ErrCodeDataUnavailable, "yahoo: invalid json")
	}
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "yahoo api error: %s", desc.String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, errors.New(errors.ErrCodeDataUnavailable, "yahoo: no data returned")
	}
	// daily timestamps are the session open in exchange time
	offset := result.Get("meta.gmtoffset").Int()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	at := func(values []gjson.Result, i int) gjson.Result {
		if i < len(values) {
			return values[i]
		}
		return gjson.Result{}
	}

	bars := make([]model.PriceBar, 0, len(timestamps))
	for i, ts := range timestamps {
		c := at(closes, i)
		if c.Type != gjson.Number {
			continue
		}
		bars = append(bars, model.PriceBar{
			Date:   model.Day(time.Unix(ts.Int()+offset, 0).UTC()),
			Open:   at(opens, i).Float(),
			High:   at(highs, i).Float(),
			Low:    at(lows, i).Float(),
			Close:  c.Float(),
			Volume: at(volumes, i).Float(),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return dedupeDays(bars), nil
}

// dedupeDays keeps the last bar of each date. Yahoo repeats the live session
// as an extra entry while the market is open.
func dedupeDays(bars []model.PriceBar) []model.PriceBar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && model.SameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
