// Package eligibility holds the pure predicates gating a dispatch. The checks
// are evaluated fresh at the moment of the transition, never cached from trip
// creation, and have no side effects: a failed check leaves all state as is.
package eligibility

import (
	"fmt"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// CheckVehicle validates that the vehicle can carry the proposed cargo.
func CheckVehicle(v model.Vehicle, cargoKg float64) error {
	if v.Status != model.VehicleAvailable {
		return fmt.Errorf("vehicle %s is %s, not available", v.ID, v.Status)
	}
	if cargoKg > v.MaxCargoKg {
		return fmt.Errorf("cargo weight %.0fkg exceeds capacity %.0fkg of vehicle %s", cargoKg, v.MaxCargoKg, v.ID)
	}
	return nil
}

// CheckDriver validates that the driver may take a trip right now. The
// license expiry boundary is exclusive: a license expiring exactly at now
// counts as expired.
func CheckDriver(d model.Driver, now time.Time) error {
	if d.Status != model.DriverOnDuty {
		return fmt.Errorf("driver %s is %s, not on duty", d.ID, d.Status)
	}
	if !d.LicenseExpiry.After(now) {
		return fmt.Errorf("driver %s license %s expired at %s", d.ID, d.LicenseNo, d.LicenseExpiry.Format(time.RFC3339))
	}
	return nil
}

// CheckDispatch runs every dispatch rule in order and returns the first
// failure.
func CheckDispatch(v model.Vehicle, d model.Driver, cargoKg float64, now time.Time) error {
	if err := CheckVehicle(v, cargoKg); err != nil {
		return err
	}
	return CheckDriver(d, now)
}
