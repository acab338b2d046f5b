package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
)

// SQLiteStore persists records to a SQLite database. Records are stored as
// JSON next to their version so the conditional write is a single UPDATE
// guarded on the expected version.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
// The connection pool is capped at one connection so write transactions are
// serialized in-process rather than failing on SQLITE_BUSY.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, table := range []string{"vehicles", "drivers", "trips"} {
		schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        id TEXT PRIMARY KEY,
        version INTEGER NOT NULL,
        record TEXT NOT NULL
    );`, table)
		if _, err := db.Exec(schema); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, errors.Join(err, cerr)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// View runs fn in a read-only transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(corestore.ReadTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&sqlTx{ctx: ctx, tx: tx})
}

// Update runs fn in a transaction and commits on success.
func (s *SQLiteStore) Update(ctx context.Context, fn func(corestore.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) Vehicle(id string) (model.Vehicle, corestore.Version, error) {
	return row[model.Vehicle](t, "vehicles", "vehicle", id)
}

func (t *sqlTx) Driver(id string) (model.Driver, corestore.Version, error) {
	return row[model.Driver](t, "drivers", "driver", id)
}

func (t *sqlTx) Trip(id string) (model.Trip, corestore.Version, error) {
	return row[model.Trip](t, "trips", "trip", id)
}

func (t *sqlTx) Vehicles() ([]model.Vehicle, error) {
	return scanAll[model.Vehicle](t, "vehicles")
}

func (t *sqlTx) Drivers() ([]model.Driver, error) {
	return scanAll[model.Driver](t, "drivers")
}

func (t *sqlTx) Trips() ([]model.Trip, error) {
	return scanAll[model.Trip](t, "trips")
}

func (t *sqlTx) PutVehicle(v model.Vehicle, expect corestore.Version) error {
	return upsert(t, "vehicles", "vehicle", v.ID, v, expect)
}

func (t *sqlTx) PutDriver(d model.Driver, expect corestore.Version) error {
	return upsert(t, "drivers", "driver", d.ID, d, expect)
}

func (t *sqlTx) PutTrip(tr model.Trip, expect corestore.Version) error {
	return upsert(t, "trips", "trip", tr.ID, tr, expect)
}

func row[T any](t *sqlTx, table, kind, id string) (T, corestore.Version, error) {
	var (
		zero T
		ver  uint64
		raw  []byte
	)
	err := t.tx.QueryRowContext(t.ctx, "SELECT version, record FROM "+table+" WHERE id = ?", id).Scan(&ver, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, 0, fmt.Errorf("%s %s: %w", kind, id, corestore.ErrNotFound)
	}
	if err != nil {
		return zero, 0, unavailable(err)
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return zero, 0, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return rec, corestore.Version(ver), nil
}

func scanAll[T any](t *sqlTx, table string) ([]T, error) {
	rows, err := t.tx.QueryContext(t.ctx, "SELECT record FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()
	var res []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, unavailable(err)
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", table, err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func upsert[T any](t *sqlTx, table, kind, id string, rec T, expect corestore.Version) error {
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	if expect == 0 {
		res, err := t.tx.ExecContext(t.ctx,
			"INSERT INTO "+table+"(id, version, record) VALUES(?, 1, ?) ON CONFLICT(id) DO NOTHING", id, raw)
		if err != nil {
			return unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return unavailable(err)
		}
		if n == 0 {
			return fmt.Errorf("%s %s already exists: %w", kind, id, corestore.ErrVersionMismatch)
		}
		return nil
	}
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE "+table+" SET version = version + 1, record = ? WHERE id = ? AND version = ?", raw, id, uint64(expect))
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s at another version, expected %d: %w", kind, id, expect, corestore.ErrVersionMismatch)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("sqlite: %v: %w", err, corestore.ErrUnavailable)
}
