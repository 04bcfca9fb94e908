package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"
	"TradeAdvisor/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "", logger.NewNop())
	tn.APIBase = url
	return tn
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSendWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hello", 1))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendWithRetryCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv.URL).SendWithRetry(ctx, "hello", 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStartPolling(t *testing.T) {
	var polls atomic.Int32
	replies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				assert.Equal(t, "0", r.URL.Query().Get("offset"))
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /help "}}]}`))
				return
			}
			assert.Equal(t, "8", r.URL.Query().Get("offset"))
			time.Sleep(10 * time.Millisecond)
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"ok":true}`))
			select {
			case replies <- body["text"]:
			default:
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			return "got " + cmd
		})
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "got /help", reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
}

func TestFormatTradeActions(t *testing.T) {
	date := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	assert.Contains(t, FormatTradeActions(date, nil), "No trade actions")

	msg := FormatTradeActions(date, []model.TradeAction{
		{Date: date, Action: model.ActionBuy, Ticker: "AAPL", Reason: "RSI < 30", Context: []string{"line 1", "line 2"}},
		{Date: date, Action: model.ActionSell, Ticker: "MSFT", Reason: "stop"},
	})
	assert.Contains(t, msg, "2024-05-31")
	assert.Contains(t, msg, "🟢 <b>BUY AAPL</b>")
	assert.Contains(t, msg, "RSI &lt; 30")
	assert.Contains(t, msg, "<pre>line 1\nline 2</pre>")
	assert.Contains(t, msg, "🔴 <b>SELL MSFT</b>")
}

func TestFormatDailyStats(t *testing.T) {
	var stats []model.DailyStat
	for i := range 8 {
		stats = append(stats, model.DailyStat{
			Date:   time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Ticker: "AAPL",
			Close:  float64(100 + i),
		})
	}
	msg := FormatDailyStats("AAPL", stats, 3)
	assert.Equal(t, 3, strings.Count(msg, "AAPL, close"))
	assert.Contains(t, msg, "2024-01-08")
	assert.NotContains(t, msg, "2024-01-05")
	assert.Contains(t, FormatDailyStats("AAPL", nil, 3), "No data")
}

func TestFormatPortfolio(t *testing.T) {
	assert.Contains(t, FormatPortfolio(portfolio.PortfolioStats{}), "No open positions")

	stats := portfolio.Value([]model.Position{
		{Ticker: "AAPL", EntryPrice: 100, Size: decimal.NewFromInt(2)},
	}, map[string]float64{"AAPL": 110})
	msg := FormatPortfolio(stats)
	assert.Contains(t, msg, "<b>AAPL</b> x1")
	assert.Contains(t, msg, "Invested: 200.00")
	assert.Contains(t, msg, "Value:    220.00")
	assert.Contains(t, msg, "PnL:      20.00 (10.00%)")
}

func TestFormatPerformance(t *testing.T) {
	all := portfolio.Performance{Hits: 2, Misses: 1, PnL: decimal.NewFromFloat(12.5)}
	yearly := []portfolio.Performance{{Year: 2024, Hits: 2, Misses: 1, PnL: decimal.NewFromFloat(12.5)}}
	msg := FormatPerformance(all, yearly)
	assert.Contains(t, msg, "All time: 67% (2/3), pnl 12.50")
	assert.Contains(t, msg, "2024: 67% (2/3), pnl 12.50")
}
