package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/core/model"
)

// Config configures the SQLite result store.
type Config struct {
	Path string `json:"path"`
}

const schema = `
CREATE TABLE IF NOT EXISTS days (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	date TEXT NOT NULL,
	status TEXT NOT NULL,
	skipped INTEGER NOT NULL,
	objective REAL,
	profit REAL,
	terminal_price REAL,
	initial_soc REAL,
	final_soc REAL,
	solve_ms INTEGER,
	PRIMARY KEY (run_id, date)
);
CREATE TABLE IF NOT EXISTS dispatch (
	run_id TEXT NOT NULL,
	date TEXT NOT NULL,
	ts INTEGER NOT NULL,
	soc REAL,
	purchase_a REAL, purchase_b REAL, purchase_block REAL,
	sale_a REAL, sale_b REAL, sale_block REAL,
	PRIMARY KEY (run_id, ts)
);
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	start TEXT,
	days INTEGER,
	solved INTEGER,
	skipped INTEGER,
	total_profit REAL,
	final_soc REAL,
	failed INTEGER,
	duration_ms INTEGER
);`

// SQLiteStore persists day results and run summaries to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ coremetrics.RunRecorder = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite store path is required", model.ErrConfig)
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// RecordDay stores the day and its dispatch rows in one transaction. Recording
// the same day of a run twice replaces it.
func (s *SQLiteStore) RecordDay(ctx context.Context, rec coremetrics.DayRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	d := rec.Day
	date := d.Date.Format(time.DateOnly)
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO days (run_id, idx, date, status, skipped, objective, profit, terminal_price, initial_soc, final_soc, solve_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Index, date, d.Status, d.Skipped, d.Objective, d.Profit,
		d.TerminalPrice, d.InitialSOC, d.FinalSOC, rec.SolveDuration.Milliseconds()); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM dispatch WHERE run_id = ? AND date = ?`, rec.RunID, date); err != nil {
		return err
	}
	for _, r := range d.Rows {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO dispatch (run_id, date, ts, soc, purchase_a, purchase_b, purchase_block, sale_a, sale_b, sale_block)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, date, r.Time.Unix(), r.SOC,
			r.Purchase[model.ProductA], r.Purchase[model.ProductB], r.Purchase[model.ProductBlock],
			r.Sale[model.ProductA], r.Sale[model.ProductB], r.Sale[model.ProductBlock]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordRun stores the run summary.
func (s *SQLiteStore) RecordRun(ctx context.Context, sum coremetrics.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, start, days, solved, skipped, total_profit, final_soc, failed, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Start.Format(time.DateOnly), sum.Days, sum.Solved, sum.Skipped,
		sum.TotalProfit, sum.FinalSOC, sum.Failed, sum.Duration.Milliseconds())
	return err
}

// Days returns the recorded days of a run in date order, with their rows.
func (s *SQLiteStore) Days(ctx context.Context, runID string) ([]model.DailyResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, status, skipped, objective, profit, terminal_price, initial_soc, final_soc
		FROM days WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.DailyResult
	for rows.Next() {
		var (
			d    model.DailyResult
			date string
		)
		if err := rows.Scan(&date, &d.Status, &d.Skipped, &d.Objective, &d.Profit,
			&d.TerminalPrice, &d.InitialSOC, &d.FinalSOC); err != nil {
			return nil, err
		}
		if d.Date, err = time.ParseInLocation(time.DateOnly, date, time.UTC); err != nil {
			return nil, fmt.Errorf("parse stored date: %w", err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].Rows, err = s.dispatch(ctx, runID, res[i].Date.Format(time.DateOnly)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *SQLiteStore) dispatch(ctx context.Context, runID, date string) ([]model.DispatchRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, soc, purchase_a, purchase_b, purchase_block, sale_a, sale_b, sale_block
		FROM dispatch WHERE run_id = ? AND date = ? ORDER BY ts`, runID, date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.DispatchRow
	for rows.Next() {
		var (
			r  model.DispatchRow
			ts int64
		)
		if err := rows.Scan(&ts, &r.SOC,
			&r.Purchase[model.ProductA], &r.Purchase[model.ProductB], &r.Purchase[model.ProductBlock],
			&r.Sale[model.ProductA], &r.Sale[model.ProductB], &r.Sale[model.ProductBlock]); err != nil {
			return nil, err
		}
		r.Time = time.Unix(ts, 0).UTC()
		res = append(res, r)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
