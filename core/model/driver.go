package model

import (
	"fmt"
	"time"
)

// DriverStatus is the duty state of a driver. DriverOnTrip is the implicit
// sub-state a driver enters while assigned to a dispatched trip.
type DriverStatus string

const (
	DriverOnDuty    DriverStatus = "on_duty"
	DriverOffDuty   DriverStatus = "off_duty"
	DriverOnTrip    DriverStatus = "on_trip"
	DriverSuspended DriverStatus = "suspended"
)

// Valid reports whether the status is one of the known states.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverOnDuty, DriverOffDuty, DriverOnTrip, DriverSuspended:
		return true
	}
	return false
}

func (s DriverStatus) String() string { return string(s) }

// Driver represents a driver that can be assigned to trips.
type Driver struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	LicenseNo     string       `json:"license_no"`
	LicenseExpiry time.Time    `json:"license_expiry"`
	SafetyScore   float64      `json:"safety_score"`
	Status        DriverStatus `json:"status"`
}

// Validate checks that the driver record is sound.
func (d Driver) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("driver id is required")
	}
	if d.LicenseNo == "" {
		return fmt.Errorf("driver %s: license number is required", d.ID)
	}
	if d.SafetyScore < 0 || d.SafetyScore > 100 {
		return fmt.Errorf("driver %s: safety score %.1f out of range [0,100]", d.ID, d.SafetyScore)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("driver %s: unknown status %q", d.ID, d.Status)
	}
	return nil
}
