package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding in one instrument.
type Position struct {
	Ticker     string          `json:"ticker"`
	EntryDate  time.Time       `json:"entry_date"`
	EntryPrice float64         `json:"entry_price"`
	Size       decimal.Decimal `json:"size"`
	// PeakPrice is the highest close seen since entry, entry price included.
	PeakPrice float64 `json:"peak_price"`
}

// Cost returns size * entry price.
func (p *Position) Cost() decimal.Decimal {
	return p.Size.Mul(decimal.NewFromFloat(p.EntryPrice))
}

// RecordedPosition is a position known to have been taken outside the
// simulation. It overrides the buy rule on its date.
type RecordedPosition struct {
	Date   time.Time
	Ticker string
	Size   float64
	Price  float64
}

// ClosedTrade is a completed round trip kept in the ledger journal.
type ClosedTrade struct {
	ID         string          `json:"id"`
	Ticker     string          `json:"ticker"`
	EntryDate  time.Time       `json:"entry_date"`
	EntryPrice float64         `json:"entry_price"`
	ExitDate   time.Time       `json:"exit_date"`
	ExitPrice  float64         `json:"exit_price"`
	Size       decimal.Decimal `json:"size"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPct     float64         `json:"pnl_pct"`
}
