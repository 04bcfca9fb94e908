package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/model"
)

var positionsHeader = []string{"date", "ticker", "size", "price"}

// LoadPositions reads recorded positions from a CSV file with a
// date,ticker,size,price header. A missing file yields no positions.
func LoadPositions(path string) ([]model.RecordedPosition, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ReadPositions(f)
}

// ReadPositions parses recorded positions.
func ReadPositions(r io.Reader) ([]model.RecordedPosition, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = len(positionsHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range positionsHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "positions header: want %q at column %d, got %q", want, i+1, header[i])
		}
	}

	var positions []model.RecordedPosition
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "positions line %d: date", line)
		}
		size, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil || size <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "positions line %d: invalid size %q", line, rec[2])
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err != nil || price <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "positions line %d: invalid price %q", line, rec[3])
		}
		positions = append(positions, model.RecordedPosition{
			Date:   date,
			Ticker: strings.ToUpper(strings.TrimSpace(rec[1])),
			Size:   size,
			Price:  price,
		})
	}
	return positions, nil
}

// SavePositions writes positions sorted by date then ticker.
func SavePositions(path string, positions []model.RecordedPosition) error {
	sorted := make([]model.RecordedPosition, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(positionsHeader); err != nil {
		return err
	}
	for _, p := range sorted {
		row := []string{
			p.Date.Format(model.DateLayout),
			p.Ticker,
			strconv.FormatFloat(p.Size, 'f', -1, 64),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ForTickers keeps the positions of the given tickers.
func ForTickers(positions []model.RecordedPosition, tickers []string) []model.RecordedPosition {
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[strings.ToUpper(t)] = true
	}
	var out []model.RecordedPosition
	for _, p := range positions {
		if want[p.Ticker] {
			out = append(out, p)
		}
	}
	return out
}

// Tickers returns the distinct tickers of positions in first-seen order.
func Tickers(positions []model.RecordedPosition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range positions {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	return out
}
