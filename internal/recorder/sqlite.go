package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SignalDesk/internal/model"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			source         TEXT,
			synthetic      INTEGER,
			current_price  REAL,
			trend          TEXT,
			trend_strength INTEGER,
			signal         TEXT,
			confidence     REAL,
			rsi            REAL,
			ma20           REAL,
			ma50           REAL,
			ma200          REAL,
			support        REAL,
			resistance     REAL,
			volatility     REAL,
			votes          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS source_probes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			source    TEXT NOT NULL,
			healthy   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_ts ON source_probes(timestamp)`,

		`CREATE TABLE IF NOT EXISTS risk_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			amount       REAL,
			balance      REAL,
			today_losses REAL,
			note         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_ts ON risk_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(a *model.AnalysisResult) error {
	votes, err := json.Marshal(a.Votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT OR REPLACE INTO analyses
		(id, timestamp, symbol, source, synthetic, current_price, trend, trend_strength,
		 signal, confidence, rsi, ma20, ma50, ma200, support, resistance, volatility, votes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp.Unix(), a.Symbol, a.Source, a.Synthetic, a.CurrentPrice, a.Trend, a.TrendStrength,
		string(a.Signal), a.Confidence, a.RSI, a.MA20, a.MA50, a.MA200, a.Support, a.Resistance, a.Volatility,
		string(votes),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordSourceProbe(symbol string, results map[string]bool) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	ts := r.now().Unix()
	for _, name := range names {
		if _, err := tx.Exec(`INSERT INTO source_probes (timestamp, symbol, source, healthy) VALUES (?, ?, ?, ?)`,
			ts, symbol, name, results[name]); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert probe: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordRiskEvent(evt *RiskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO risk_events (timestamp, kind, amount, balance, today_losses, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.now().Unix(), evt.Kind, evt.Amount, evt.Balance, evt.TodayLosses, evt.Note,
	)
	if err != nil {
		return fmt.Errorf("insert risk event: %w", err)
	}
	return nil
}

// RecentAnalyses returns up to limit stored analyses for symbol, newest first.
func (r *SQLiteRecorder) RecentAnalyses(symbol string, limit int) ([]model.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, symbol, source, synthetic, current_price, trend,
		trend_strength, signal, confidence, rsi, ma20, ma50, ma200, support, resistance, volatility, votes
		FROM analyses WHERE symbol = ? ORDER BY timestamp DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []model.AnalysisResult
	for rows.Next() {
		var (
			a      model.AnalysisResult
			ts     int64
			signal string
			votes  string
		)
		if err := rows.Scan(&a.ID, &ts, &a.Symbol, &a.Source, &a.Synthetic, &a.CurrentPrice, &a.Trend,
			&a.TrendStrength, &signal, &a.Confidence, &a.RSI, &a.MA20, &a.MA50, &a.MA200,
			&a.Support, &a.Resistance, &a.Volatility, &votes); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.Timestamp = time.Unix(ts, 0).UTC()
		a.Signal = model.Direction(signal)
		if err := json.Unmarshal([]byte(votes), &a.Votes); err != nil {
			return nil, fmt.Errorf("unmarshal votes: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) count(table string) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
