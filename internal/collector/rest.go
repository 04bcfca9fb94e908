package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"

	"github.com/tidwall/gjson"
)

// RESTFetcher implements Fetcher against a bars REST API returning a JSON
// array of {date|timestamp, open, high, low, close, volume} objects.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("from", from.Format(model.DateLayout))
	params.Add("to", to.Format(model.DateLayout))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "fetch bars: %s status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	bars, err := parseBarArray(body)
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

func parseBarArray(body []byte) ([]model.PriceBar, error) {
	data := gjson.ParseBytes(body)
	if !data.IsArray() {
		return nil, errors.New(errors.ErrCodeDataUnavailable, "decode bars: expected a json array")
	}

	items := data.Array()
	bars := make([]model.PriceBar, 0, len(items))
	for _, item := range items {
		var date time.Time
		if d := item.Get("date"); d.Exists() {
			parsed, err := parseDate(d.String())
			if err != nil {
				return nil, fmt.Errorf("parsing bar date: %w", err)
			}
			date = parsed
		} else {
			date = model.Day(time.Unix(item.Get("timestamp").Int(), 0).UTC())
		}
		bars = append(bars, model.PriceBar{
			Date:   date,
			Open:   item.Get("open").Float(),
			High:   item.Get("high").Float(),
			Low:    item.Get("low").Float(),
			Close:  item.Get("close").Float(),
			Volume: item.Get("volume").Float(),
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
