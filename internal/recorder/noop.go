package recorder

import "TradeAdvisor/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error                           { return nil }
func (n *NoopRecorder) RecordTradeAction(_ string, _ *model.TradeAction) error { return nil }
func (n *NoopRecorder) RecordDailyStats(_ string, _ []model.DailyStat) error   { return nil }
func (n *NoopRecorder) RecordClosedTrade(_ string, _ *model.ClosedTrade) error { return nil }
func (n *NoopRecorder) Close() error                                           { return nil }
