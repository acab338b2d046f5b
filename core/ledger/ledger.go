// Package ledger mutates vehicle and driver availability on behalf of trip
// transitions. No other code path may flip a resource between available and
// on_trip. All operations run inside a store transaction supplied by the
// caller, so an acquire commits together with the trip state it reserves for.
package ledger

import (
	"errors"
	"fmt"

	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/store"
)

// ErrConflict is returned when a resource is not in an acquirable state,
// typically because a concurrent dispatch reserved it first.
var ErrConflict = errors.New("resource already reserved")

// Acquire reserves the vehicle and driver for the given trip. The state flip
// is conditional on the current availability read in this transaction; a
// resource that is not available/on duty fails the whole acquire and nothing
// is written.
func Acquire(tx store.Tx, vehicleID, driverID, tripID string) error {
	v, vVer, err := tx.Vehicle(vehicleID)
	if err != nil {
		return err
	}
	d, dVer, err := tx.Driver(driverID)
	if err != nil {
		return err
	}
	if v.Status != model.VehicleAvailable {
		return fmt.Errorf("vehicle %s is %s, cannot reserve for trip %s: %w", v.ID, v.Status, tripID, ErrConflict)
	}
	if d.Status != model.DriverOnDuty {
		return fmt.Errorf("driver %s is %s, cannot reserve for trip %s: %w", d.ID, d.Status, tripID, ErrConflict)
	}
	v.Status = model.VehicleOnTrip
	d.Status = model.DriverOnTrip
	if err := tx.PutVehicle(v, vVer); err != nil {
		return err
	}
	return tx.PutDriver(d, dVer)
}

// Release returns the vehicle and driver to the pool. It is idempotent:
// resources that are not currently on a trip are left untouched, so a
// duplicate retry of a cancel or complete does not fail.
func Release(tx store.Tx, vehicleID, driverID string) error {
	v, vVer, err := tx.Vehicle(vehicleID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case v.Status == model.VehicleOnTrip:
		v.Status = model.VehicleAvailable
		if err := tx.PutVehicle(v, vVer); err != nil {
			return err
		}
	}
	d, dVer, err := tx.Driver(driverID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case d.Status == model.DriverOnTrip:
		d.Status = model.DriverOnDuty
		if err := tx.PutDriver(d, dVer); err != nil {
			return err
		}
	}
	return nil
}
