package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/frlm/core/scenario"
)

// SQLiteStore persists scenario records to a SQLite database. Filterable
// fields are stored in columns next to the JSON record.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS scenario_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT,
        ts INTEGER,
        status TEXT,
        full_range REAL,
        start_range REAL,
        fuel_economy REAL,
        record TEXT
    );`
	index := `CREATE INDEX IF NOT EXISTS scenario_runs_run ON scenario_runs(run_id);`
	_, err = db.Exec(schema)
	if err == nil {
		_, err = db.Exec(index)
	}
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes every record in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, recs ...scenario.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scenario_runs
        (run_id, ts, status, full_range, start_range, fuel_economy, record)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, rec := range recs {
		b, err := json.Marshal(rec)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		_, err = stmt.ExecContext(ctx, rec.RunID, rec.Timestamp.UnixNano(), rec.Status,
			rec.Params.FullRange, rec.Params.StartRange, rec.Params.FuelEconomy, string(b))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query returns records matching q in insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q scenario.Query) ([]scenario.Record, error) {
	var args []any
	query := `SELECT record FROM scenario_runs WHERE 1=1`
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	if q.FullRange != 0 {
		query += ` AND full_range = ?`
		args = append(args, q.FullRange)
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []scenario.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r scenario.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
