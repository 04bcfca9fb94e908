package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradeAdvisor/internal/errors"
	"TradeAdvisor/internal/logger"
	"TradeAdvisor/internal/model"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// statsBatchSize keeps multi-row inserts under SQLite's bound parameter limit.
const statsBatchSize = 500

// SQLiteRecorder persists runs, trade actions and daily stats to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
	mu  sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, "open sqlite", err)
	}

	// WAL mode so reporting tools can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, "set WAL mode", err)
	}

	r := &SQLiteRecorder{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, "migrate", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			strategy    TEXT NOT NULL,
			tickers     TEXT,
			from_date   TEXT,
			to_date     TEXT,
			single_date TEXT,
			actions     INTEGER,
			failures    INTEGER,
			started_at  INTEGER,
			finished_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS trade_actions (
			id      TEXT NOT NULL,
			run_id  TEXT NOT NULL,
			date    TEXT NOT NULL,
			action  TEXT NOT NULL,
			ticker  TEXT NOT NULL,
			reason  TEXT,
			context TEXT,
			seq     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON trade_actions(run_id, seq)`,

		`CREATE TABLE IF NOT EXISTS daily_stats (
			run_id        TEXT NOT NULL,
			date          TEXT NOT NULL,
			ticker        TEXT NOT NULL,
			close         REAL,
			rsi           REAL,
			rsi_ma        REAL,
			rsi_crossover INTEGER,
			bb_top        REAL,
			bb_mid        REAL,
			bb_bot        REAL,
			position      REAL,
			pnl_pct       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_run ON daily_stats(run_id, ticker, date)`,

		`CREATE TABLE IF NOT EXISTS closed_trades (
			id          TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			entry_date  TEXT,
			entry_price REAL,
			exit_date   TEXT,
			exit_price  REAL,
			size        TEXT,
			pnl         TEXT,
			pnl_pct     REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	single := ""
	if run.SingleDate != nil {
		single = dateText(*run.SingleDate)
	}
	_, err := r.sq.
		Insert("runs").
		Columns("id", "strategy", "tickers", "from_date", "to_date", "single_date",
			"actions", "failures", "started_at", "finished_at").
		Values(run.ID, run.Strategy, strings.Join(run.Tickers, ","), dateText(run.From), dateText(run.To), single,
			run.Actions, run.Failures, run.StartedAt.Unix(), run.FinishedAt.Unix()).
		Suffix("ON CONFLICT(id) DO UPDATE SET actions = excluded.actions, failures = excluded.failures, finished_at = excluded.finished_at").
		RunWith(r.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "insert run", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordTradeAction(runID string, action *model.TradeAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var seq int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM trade_actions WHERE run_id = ?", runID).Scan(&seq); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "count trade actions", err)
	}

	_, err := r.sq.
		Insert("trade_actions").
		Columns("id", "run_id", "date", "action", "ticker", "reason", "context", "seq").
		Values(action.ID, runID, dateText(action.Date), string(action.Action), action.Ticker,
			action.Reason, strings.Join(action.Context, "\n"), seq).
		RunWith(r.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "insert trade action", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordDailyStats(runID string, stats []model.DailyStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(stats) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "begin daily stats", err)
	}
	for start := 0; start < len(stats); start += statsBatchSize {
		end := min(start+statsBatchSize, len(stats))
		insert := r.sq.
			Insert("daily_stats").
			Columns("run_id", "date", "ticker", "close", "rsi", "rsi_ma", "rsi_crossover",
				"bb_top", "bb_mid", "bb_bot", "position", "pnl_pct")
		for _, s := range stats[start:end] {
			insert = insert.Values(runID, dateText(s.Date), s.Ticker, s.Close, s.RSI, s.RSIMA, s.RSICrossoverSignal,
				s.BBTop, s.BBMid, s.BBBot, s.Position, s.PnLPct)
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			tx.Rollback()
			return errors.Wrap(errors.ErrCodeStorage, "insert daily stats", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "commit daily stats", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordClosedTrade(runID string, trade *model.ClosedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.sq.
		Insert("closed_trades").
		Columns("id", "run_id", "ticker", "entry_date", "entry_price", "exit_date", "exit_price", "size", "pnl", "pnl_pct").
		Values(trade.ID, runID, trade.Ticker, dateText(trade.EntryDate), trade.EntryPrice,
			dateText(trade.ExitDate), trade.ExitPrice, trade.Size.String(), trade.PnL.String(), trade.PnLPct).
		RunWith(r.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, "insert closed trade", err)
	}
	return nil
}

// TradeActions returns the actions of a run in the order they were recorded.
func (r *SQLiteRecorder) TradeActions(runID string) ([]model.TradeAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.sq.
		Select("id", "date", "action", "ticker", "reason", "context").
		From("trade_actions").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq ASC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, "query trade actions", err)
	}
	defer rows.Close()

	var actions []model.TradeAction
	for rows.Next() {
		var (
			a               model.TradeAction
			date, kind, ctx string
		)
		if err := rows.Scan(&a.ID, &date, &kind, &a.Ticker, &a.Reason, &ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, "scan trade action", err)
		}
		a.Date, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, "parse trade action date", err)
		}
		a.Action = model.Action(kind)
		if ctx != "" {
			a.Context = strings.Split(ctx, "\n")
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// CountDailyStats returns the number of daily stats stored for a run and ticker.
func (r *SQLiteRecorder) CountDailyStats(runID, ticker string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.sq.
		Select("COUNT(*)").
		From("daily_stats").
		Where(squirrel.Eq{"run_id": runID, "ticker": ticker}).
		RunWith(r.db).
		QueryRow().
		Scan(&n)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorage, "count daily stats", err)
	}
	return n, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
