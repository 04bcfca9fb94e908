package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

// CSVFetcher reads bars from <Dir>/<SYMBOL>.csv files with a
// Date,Open,High,Low,Close[,Adj Close],Volume header.
type CSVFetcher struct {
	Dir string
}

func NewCSVFetcher(dir string) *CSVFetcher { return &CSVFetcher{Dir: dir} }

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	path := filepath.Join(f.Dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "no csv for %s", symbol)
		}
		return nil, err
	}
	defer file.Close()

	bars, err := ReadBarsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	filtered := bars[:0]
	for _, b := range bars {
		if inRange(b.Date, from, to) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// ReadBarsCSV parses daily bars. Columns are matched by header name,
// case-insensitively. Rows with an empty or "null" close are skipped.
func ReadBarsCSV(r io.Reader) ([]model.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Newf(errors.ErrCodeMalformedBar, "missing %q column", required)
		}
	}

	var bars []model.PriceBar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if c := field("close"); c == "" || strings.EqualFold(c, "null") {
			continue
		}

		date, err := parseDate(field("date"))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedBar, err, "line %d: date", line)
		}
		bar := model.PriceBar{Date: date}
		for _, p := range []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close}, {"volume", &bar.Volume},
		} {
			raw := field(p.name)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMalformedBar, err, "line %d: %s", line, p.name)
			}
			*p.dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
