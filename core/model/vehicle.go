package model

import "fmt"

// VehicleStatus is the availability state of a vehicle.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "available"
	VehicleOnTrip    VehicleStatus = "on_trip"
	VehicleInShop    VehicleStatus = "in_shop"
	VehicleRetired   VehicleStatus = "retired"
)

// Valid reports whether the status is one of the known states.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleOnTrip, VehicleInShop, VehicleRetired:
		return true
	}
	return false
}

func (s VehicleStatus) String() string { return string(s) }

// Vehicle represents a fleet vehicle that can be reserved for trips.
type Vehicle struct {
	ID         string        `json:"id"`
	Plate      string        `json:"plate"`
	MaxCargoKg float64       `json:"max_cargo_kg"`
	OdometerKm float64       `json:"odometer_km"`
	Status     VehicleStatus `json:"status"`
}

// Validate checks that the vehicle record is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.MaxCargoKg <= 0 {
		return fmt.Errorf("vehicle %s: max cargo weight must be positive", v.ID)
	}
	if v.OdometerKm < 0 {
		return fmt.Errorf("vehicle %s: odometer cannot be negative", v.ID)
	}
	if !v.Status.Valid() {
		return fmt.Errorf("vehicle %s: unknown status %q", v.ID, v.Status)
	}
	return nil
}
