package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TradeAdvisor/internal/model"

	"github.com/shopspring/decimal"
)

// State is the persisted view of a ledger at the end of a run.
type State struct {
	RunID       string              `json:"run_id"`
	Positions   []model.Position    `json:"positions"`
	Trades      []model.ClosedTrade `json:"trades"`
	RealizedPnL decimal.Decimal     `json:"realized_pnl"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Snapshot captures the ledger's positions and journal.
func (l *Ledger) Snapshot(runID string) *State {
	return NewState(runID, l.Positions(), l.Trades())
}

// NewState builds a state from the output of a run.
func NewState(runID string, positions []model.Position, trades []model.ClosedTrade) *State {
	realized := decimal.Zero
	for _, t := range trades {
		realized = realized.Add(t.PnL)
	}
	return &State{
		RunID:       runID,
		Positions:   positions,
		Trades:      trades,
		RealizedPnL: realized,
	}
}

// LoadState reads a ledger state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode ledger state: %w", err)
	}
	return &state, nil
}

// SaveState writes the ledger state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
