package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

const yahooPayload = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "^GSPC", "gmtoffset": -18000},
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {"quote": [{
        "open":   [4745.2, null, 4697.4],
        "high":   [4754.3, null, 4726.8],
        "low":    [4722.7, null, 4687.5],
        "close":  [4742.8, null, 4688.7],
        "volume": [3743050000, null, 3715480000]
      }]}
    }],
    "error": null
  }
}`

func TestYahooFetcher(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(yahooPayload))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	from, to := date("2024-01-01"), date("2024-01-05")
	bars, err := f.FetchDailyBars(context.Background(), "SPX", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Equal(t, strconv.FormatInt(from.Unix(), 10), gotQuery["period1"][0])
	assert.Equal(t, strconv.FormatInt(date("2024-01-06").Unix(), 10), gotQuery["period2"][0])
	assert.Equal(t, "1d", gotQuery["interval"][0])

	require.Len(t, bars, 2)
	assert.Equal(t, date("2024-01-02"), bars[0].Date)
	assert.Equal(t, 4742.8, bars[0].Close)
	assert.Equal(t, date("2024-01-04"), bars[1].Date)
	assert.Equal(t, 4697.4, bars[1].Open)

	// range filtering
	bars, err = f.FetchDailyBars(context.Background(), "SPX", from, date("2024-01-03"))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestYahooFetcherErrors(t *testing.T) {
	status := http.StatusOK
	payload := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	_, err := f.FetchDailyBars(context.Background(), "NOPE", date("2024-01-01"), date("2024-01-05"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
	assert.Contains(t, err.Error(), "delisted")

	status = http.StatusTooManyRequests
	payload = "slow down"
	_, err = f.FetchDailyBars(context.Background(), "NOPE", date("2024-01-01"), date("2024-01-05"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))

	status = http.StatusOK
	payload = "<html>"
	_, err = f.FetchDailyBars(context.Background(), "NOPE", date("2024-01-01"), date("2024-01-05"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func TestDedupeDays(t *testing.T) {
	bars := []model.PriceBar{
		{Date: date("2024-01-02"), Close: 1},
		{Date: date("2024-01-03"), Close: 2},
		{Date: date("2024-01-03").Add(15 * time.Hour), Close: 3},
	}
	out := dedupeDays(bars)
	require.Len(t, out, 2)
	assert.Equal(t, 3.0, out[1].Close)
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "ACME", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"date": "2024-01-03", "open": 11, "high": 12, "low": 10, "close": 11.5, "volume": 10},
			{"date": "2024-01-02T00:00:00Z", "open": 10, "high": 11, "low": 9, "close": 10.5, "volume": 20},
			{"timestamp": 1704378600, "open": 12, "high": 13, "low": 11, "close": 12.5, "volume": 30}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchDailyBars(context.Background(), "ACME", date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, date("2024-01-02"), bars[0].Date)
	assert.Equal(t, date("2024-01-03"), bars[1].Date)
	assert.Equal(t, date("2024-01-04"), bars[2].Date)
	assert.Equal(t, 12.5, bars[2].Close)
}

func TestRESTFetcherRejectsObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "nope"}`))
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", "").FetchDailyBars(context.Background(), "ACME", date("2024-01-01"), date("2024-01-31"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func TestCSVFetcher(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"Date,Open,High,Low,Close,Adj Close,Volume",
		"2024-01-02,10,11,9,10.5,10.4,100",
		"2024-01-03,null,null,null,null,null,null",
		"2024-01-04,11,12,10,11.5,11.4,200",
		"2024-02-01,12,13,11,12.5,12.4,300",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACME.csv"), []byte(content), 0o644))

	f := NewCSVFetcher(dir)
	bars, err := f.FetchDailyBars(context.Background(), "ACME", date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, model.PriceBar{Date: date("2024-01-04"), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 200}, bars[1])

	_, err = f.FetchDailyBars(context.Background(), "MISSING", date("2024-01-01"), date("2024-01-31"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func TestReadBarsCSVErrors(t *testing.T) {
	_, err := ReadBarsCSV(strings.NewReader("Date,Open,High,Low\n2024-01-02,1,2,3\n"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedBar))

	_, err = ReadBarsCSV(strings.NewReader("Date,Open,High,Low,Close\n02/01/2024,1,2,3,4\n"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedBar))

	_, err = ReadBarsCSV(strings.NewReader("Date,Open,High,Low,Close\n2024-01-02,x,2,3,4\n"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedBar))
}

func TestMockFetcherDeterministic(t *testing.T) {
	m := &MockFetcher{}
	from, to := date("2024-01-01"), date("2024-03-31")
	a, err := m.FetchDailyBars(context.Background(), "ACME", from, to)
	require.NoError(t, err)
	b, err := m.FetchDailyBars(context.Background(), "ACME", from, to)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	for i, bar := range a {
		assert.NotEqual(t, time.Saturday, bar.Date.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Date.Weekday())
		assert.Greater(t, bar.Close, 0.0)
		if i > 0 {
			assert.True(t, bar.Date.After(a[i-1].Date))
		}
	}

	other, _ := m.FetchDailyBars(context.Background(), "OTHER", from, to)
	assert.NotEqual(t, a[len(a)-1].Close, other[len(other)-1].Close)
}

func TestCollectExcludesFailures(t *testing.T) {
	m := &MockFetcher{
		Fail: map[string]bool{"BAD": true},
		Bars: map[string][]model.PriceBar{"FIXED": {{Date: date("2024-01-02"), Open: 1, High: 1, Low: 1, Close: 1}}},
	}
	c := NewCollector(m, logger.NewNop())

	series, err := c.Collect(context.Background(), []string{"ACME", "BAD", "FIXED"}, date("2024-01-01"), date("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, "ACME", series[0].Ticker)
	assert.NotEmpty(t, series[0].Bars)
	assert.Equal(t, "BAD", series[1].Ticker)
	assert.Empty(t, series[1].Bars)
	assert.Len(t, series[2].Bars, 1)

	_, err = c.Collect(context.Background(), []string{"BAD"}, date("2024-01-01"), date("2024-01-31"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func TestCollectCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(f, logger.NewNop()).Collect(ctx, []string{"ACME"}, date("2024-01-01"), date("2024-01-31"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWarmupFrom(t *testing.T) {
	start := date("2024-06-03")
	assert.Equal(t, start.AddDate(0, 0, -7*24), WarmupFrom(start, 120))
	assert.Equal(t, start.AddDate(0, 0, -7), WarmupFrom(start, 3))
	assert.Equal(t, start, WarmupFrom(start, 0))
}
