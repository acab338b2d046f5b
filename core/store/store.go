// Package store defines the persistence gateway the engine writes through.
// Implementations must apply every Update callback as one atomic unit: either
// all records written inside the callback become visible together, or none do.
package store

import (
	"context"
	"errors"

	"github.com/fleetops/dispatchd/core/model"
)

// Version is the optimistic concurrency token carried by every record.
// A Put with expect == 0 inserts a new record; any other value must match
// the currently stored version or the write is rejected.
type Version uint64

var (
	// ErrNotFound is returned when a record id does not resolve.
	ErrNotFound = errors.New("record not found")
	// ErrVersionMismatch is returned when a conditional write loses against
	// a concurrent update, or an insert collides with an existing record.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// ReadTx exposes consistent point-in-time reads.
type ReadTx interface {
	Vehicle(id string) (model.Vehicle, Version, error)
	Driver(id string) (model.Driver, Version, error)
	Trip(id string) (model.Trip, Version, error)
	Vehicles() ([]model.Vehicle, error)
	Drivers() ([]model.Driver, error)
	Trips() ([]model.Trip, error)
}

// Tx extends ReadTx with conditional writes. Writes staged in a Tx must be
// visible to subsequent reads in the same Tx.
type Tx interface {
	ReadTx
	PutVehicle(v model.Vehicle, expect Version) error
	PutDriver(d model.Driver, expect Version) error
	PutTrip(t model.Trip, expect Version) error
}

// Store is the transactional gateway for vehicle, driver and trip records.
type Store interface {
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(ReadTx) error) error
	// Update runs fn in a transaction and commits its writes atomically.
	// If fn returns an error nothing is committed.
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}
