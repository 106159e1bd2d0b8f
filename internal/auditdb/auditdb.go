// Package auditdb persists per-run match outcomes in SQLite so method
// drift between runs can be inspected without keeping every report file.
package auditdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chanlink/chanlink/internal/pruner"
	"github.com/chanlink/chanlink/internal/resolver"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	threshold  REAL NOT NULL,
	entries    INTEGER NOT NULL,
	rewritten  INTEGER NOT NULL,
	unmatched  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	tvg_id     TEXT NOT NULL,
	matched_id TEXT NOT NULL,
	method     TEXT NOT NULL,
	confidence REAL NOT NULL,
	accepted   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS outcomes_name ON outcomes(name);
`

// DB is the run-history store.
type DB struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the audit database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auditdb: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditdb: init schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// RecordRun inserts one run with all its outcomes and returns the run id.
func (d *DB) RecordRun(ctx context.Context, startedAt time.Time, threshold float64, rep *pruner.Report) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, threshold, entries, rewritten, unmatched) VALUES (?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), threshold,
		len(rep.Outcomes), rep.Stats.Rewritten, rep.Stats.Unmatched)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, name, tvg_id, matched_id, method, confidence, accepted) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, o := range rep.Outcomes {
		accepted := 0
		if o.Accepted {
			accepted = 1
		}
		if _, err := stmt.ExecContext(ctx, runID, o.Entry.Name, o.Declared,
			o.Verdict.MatchedID, string(o.Verdict.Method), o.Verdict.Confidence, accepted); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// MethodCount is one row of a per-method summary.
type MethodCount struct {
	Method string
	Count  int
}

// MethodCounts summarizes the outcomes of one run by method, most
// frequent first.
func (d *DB) MethodCounts(ctx context.Context, runID int64) ([]MethodCount, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT method, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY method ORDER BY COUNT(*) DESC, method`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MethodCount
	for rows.Next() {
		var mc MethodCount
		if err := rows.Scan(&mc.Method, &mc.Count); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// History returns the most recent verdicts for one channel name, newest
// first, capped at limit.
func (d *DB) History(ctx context.Context, name string, limit int) ([]pruner.Outcome, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT o.name, o.tvg_id, o.matched_id, o.method, o.confidence, o.accepted
		 FROM outcomes o JOIN runs r ON r.id = o.run_id
		 WHERE o.name = ? ORDER BY r.id DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pruner.Outcome
	for rows.Next() {
		var o pruner.Outcome
		var method string
		var accepted int
		if err := rows.Scan(&o.Entry.Name, &o.Declared, &o.Verdict.MatchedID, &method, &o.Verdict.Confidence, &accepted); err != nil {
			return nil, err
		}
		o.Verdict.Method = resolver.Method(method)
		o.Accepted = accepted != 0
		out = append(out, o)
	}
	return out, rows.Err()
}
