package strategy

import "TradeAdvisor/internal/model"

// History is an append-only run of indicator snapshots for one instrument,
// oldest first. The last element is the current bar.
type History []model.IndicatorSnapshot

// Ago returns the snapshot k bars before the current one (k=0 is the current bar).
func (h History) Ago(k int) (model.IndicatorSnapshot, bool) {
	i := len(h) - 1 - k
	if k < 0 || i < 0 {
		return model.IndicatorSnapshot{}, false
	}
	return h[i], true
}

// Push appends snap, dropping the oldest snapshots beyond limit. A limit of
// zero or less keeps everything.
func (h History) Push(snap model.IndicatorSnapshot, limit int) History {
	h = append(h, snap)
	if limit > 0 && len(h) > limit {
		h = append(h[:0], h[len(h)-limit:]...)
	}
	return h
}

// RSICrossedAbove reports whether RSI crossed above its moving average on the current bar.
func (h History) RSICrossedAbove() bool {
	cur, ok := h.Ago(0)
	if !ok {
		return false
	}
	prev, ok := h.Ago(1)
	if !ok {
		return false
	}
	return prev.RSI < prev.RSIMA && cur.RSI > cur.RSIMA
}
