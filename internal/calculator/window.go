package calculator

import "TradeAdvisor/internal/errors"

// Window is a bounded ring buffer of the most recent values.
type Window struct {
	data  []float64
	start int
	count int
}

// NewWindow creates a window holding at most size values.
func NewWindow(size int) (*Window, error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "window size must be positive, got %d", size)
	}
	return &Window{data: make([]float64, size)}, nil
}

// Push appends v, evicting the oldest value when full.
func (w *Window) Push(v float64) {
	size := len(w.data)
	end := (w.start + w.count) % size
	w.data[end] = v
	if w.count == size {
		w.start = (w.start + 1) % size
		return
	}
	w.count++
}

// Len returns the number of values held.
func (w *Window) Len() int { return w.count }

// Cap returns the window size.
func (w *Window) Cap() int { return len(w.data) }

// Full reports whether the window holds Cap values.
func (w *Window) Full() bool { return w.count == len(w.data) }

// Ago returns the value k steps back; Ago(0) is the newest.
func (w *Window) Ago(k int) (float64, bool) {
	if k < 0 || k >= w.count {
		return 0, false
	}
	idx := (w.start + w.count - 1 - k) % len(w.data)
	return w.data[idx], true
}

// Values returns the held values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.data[(w.start+i)%len(w.data)]
	}
	return out
}
