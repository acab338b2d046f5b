// Package store provides the persistence gateway implementations: an
// in-memory store for tests and single-process deployments, and a SQLite
// store for durable state.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
)

type versioned[T any] struct {
	rec T
	ver corestore.Version
}

// MemoryStore is an in-memory transactional gateway. Updates are serialized
// by a single writer lock; writes are staged per transaction and applied on
// commit, so a failed callback leaves nothing behind.
type MemoryStore struct {
	mu       sync.RWMutex
	vehicles map[string]versioned[model.Vehicle]
	drivers  map[string]versioned[model.Driver]
	trips    map[string]versioned[model.Trip]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles: map[string]versioned[model.Vehicle]{},
		drivers:  map[string]versioned[model.Driver]{},
		trips:    map[string]versioned[model.Trip]{},
	}
}

// View runs fn against a consistent read-only snapshot.
func (s *MemoryStore) View(ctx context.Context, fn func(corestore.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{s: s})
}

// Update runs fn with staged writes and commits them atomically when fn
// succeeds.
func (s *MemoryStore) Update(ctx context.Context, fn func(corestore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{
		s:        s,
		vehicles: map[string]versioned[model.Vehicle]{},
		drivers:  map[string]versioned[model.Driver]{},
		trips:    map[string]versioned[model.Trip]{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, vr := range tx.vehicles {
		s.vehicles[id] = vr
	}
	for id, vr := range tx.drivers {
		s.drivers[id] = vr
	}
	for id, vr := range tx.trips {
		s.trips[id] = vr
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// memTx overlays staged writes on the store maps. Reads see the overlay
// first, so a record written earlier in the transaction reads back at its
// new version. Staged maps are nil for read-only transactions.
type memTx struct {
	s        *MemoryStore
	vehicles map[string]versioned[model.Vehicle]
	drivers  map[string]versioned[model.Driver]
	trips    map[string]versioned[model.Trip]
}

func (t *memTx) Vehicle(id string) (model.Vehicle, corestore.Version, error) {
	return get(t.vehicles, t.s.vehicles, "vehicle", id)
}

func (t *memTx) Driver(id string) (model.Driver, corestore.Version, error) {
	return get(t.drivers, t.s.drivers, "driver", id)
}

func (t *memTx) Trip(id string) (model.Trip, corestore.Version, error) {
	return get(t.trips, t.s.trips, "trip", id)
}

func (t *memTx) Vehicles() ([]model.Vehicle, error) {
	return collect(t.vehicles, t.s.vehicles), nil
}

func (t *memTx) Drivers() ([]model.Driver, error) {
	return collect(t.drivers, t.s.drivers), nil
}

func (t *memTx) Trips() ([]model.Trip, error) {
	return collect(t.trips, t.s.trips), nil
}

func (t *memTx) PutVehicle(v model.Vehicle, expect corestore.Version) error {
	return put(t.vehicles, t.s.vehicles, "vehicle", v.ID, v, expect)
}

func (t *memTx) PutDriver(d model.Driver, expect corestore.Version) error {
	return put(t.drivers, t.s.drivers, "driver", d.ID, d, expect)
}

func (t *memTx) PutTrip(tr model.Trip, expect corestore.Version) error {
	return put(t.trips, t.s.trips, "trip", tr.ID, tr, expect)
}

func get[T any](staged, base map[string]versioned[T], kind, id string) (T, corestore.Version, error) {
	if staged != nil {
		if vr, ok := staged[id]; ok {
			return vr.rec, vr.ver, nil
		}
	}
	if vr, ok := base[id]; ok {
		return vr.rec, vr.ver, nil
	}
	var zero T
	return zero, 0, fmt.Errorf("%s %s: %w", kind, id, corestore.ErrNotFound)
}

func put[T any](staged, base map[string]versioned[T], kind, id string, rec T, expect corestore.Version) error {
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	cur, ok := staged[id]
	if !ok {
		cur, ok = base[id]
	}
	if expect == 0 {
		if ok {
			return fmt.Errorf("%s %s already exists: %w", kind, id, corestore.ErrVersionMismatch)
		}
		staged[id] = versioned[T]{rec: rec, ver: 1}
		return nil
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, corestore.ErrNotFound)
	}
	if cur.ver != expect {
		return fmt.Errorf("%s %s at version %d, expected %d: %w", kind, id, cur.ver, expect, corestore.ErrVersionMismatch)
	}
	staged[id] = versioned[T]{rec: rec, ver: expect + 1}
	return nil
}

func collect[T any](staged, base map[string]versioned[T]) []T {
	ids := make([]string, 0, len(base)+len(staged))
	for id := range base {
		if _, ok := staged[id]; !ok {
			ids = append(ids, id)
		}
	}
	for id := range staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		if vr, ok := staged[id]; ok {
			res = append(res, vr.rec)
			continue
		}
		res = append(res, base[id].rec)
	}
	return res
}
