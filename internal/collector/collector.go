package collector

import (
	"context"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel requests to the data provider.
const maxConcurrentFetches = 4

// Collector fetches the price series of many instruments.
type Collector struct {
	Fetcher Fetcher
	log     *logger.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, log *logger.Logger) *Collector {
	return &Collector{Fetcher: fetcher, log: log}
}

// Collect returns one series per ticker, in ticker order. An instrument whose
// fetch fails comes back with no bars so the engine excludes it; the run only
// fails when every instrument is unavailable or ctx is done.
func (c *Collector) Collect(ctx context.Context, tickers []string, from, to time.Time) ([]model.PriceSeries, error) {
	series := make([]model.PriceSeries, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, ticker := range tickers {
		series[i].Ticker = ticker
		g.Go(func() error {
			bars, err := c.Fetcher.FetchDailyBars(gctx, ticker, from, to)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.log.Warn("fetch failed, instrument excluded",
					zap.String("source", c.Fetcher.Name()), zap.String("ticker", ticker), zap.Error(err))
				return nil
			}
			series[i].Bars = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	available := 0
	for _, s := range series {
		if len(s.Bars) > 0 {
			available++
		}
	}
	if len(tickers) > 0 && available == 0 {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "no data for any of %d instruments from %s", len(tickers), c.Fetcher.Name())
	}
	c.log.Info("collected",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("instruments", available),
		zap.String("from", from.Format(model.DateLayout)),
		zap.String("to", to.Format(model.DateLayout)))
	return series, nil
}
