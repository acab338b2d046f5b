package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"

	coreaudit "github.com/fleetops/dispatchd/core/audit"
)

// SQLiteStore persists transition records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS trip_audit (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        trip_id TEXT,
        event TEXT,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts one record.
func (s *SQLiteStore) Append(ctx context.Context, rec coreaudit.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO trip_audit(ts, trip_id, event, record) VALUES(?, ?, ?, ?)",
		rec.Timestamp.UnixNano(), rec.TripID, rec.Event, string(raw))
	return err
}

// Query returns records matching the filters in insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q coreaudit.Query) ([]coreaudit.Record, error) {
	query := "SELECT record FROM trip_audit WHERE 1=1"
	var args []any
	if !q.Start.IsZero() {
		query += " AND ts >= ?"
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += " AND ts <= ?"
		args = append(args, q.End.UnixNano())
	}
	if q.TripID != "" {
		query += " AND trip_id = ?"
		args = append(args, q.TripID)
	}
	if q.Event != "" {
		query += " AND event = ?"
		args = append(args, q.Event)
	}
	query += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coreaudit.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r coreaudit.Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
