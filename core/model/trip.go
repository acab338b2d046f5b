package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripDraft      TripStatus = "draft"
	TripDispatched TripStatus = "dispatched"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Valid reports whether the status is one of the known states.
func (s TripStatus) Valid() bool {
	switch s {
	case TripDraft, TripDispatched, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

func (s TripStatus) String() string { return string(s) }

// Trip represents one transport job from origin to destination. While a trip
// is dispatched the referenced vehicle and driver are reserved exclusively
// to it.
type Trip struct {
	ID              string     `json:"id"`
	Ref             string     `json:"ref"`
	VehicleID       string     `json:"vehicle_id"`
	DriverID        string     `json:"driver_id"`
	CargoWeightKg   float64    `json:"cargo_weight_kg"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	Status          TripStatus `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	StartOdometerKm float64    `json:"start_odometer_km"`
	EndOdometerKm   float64    `json:"end_odometer_km"`
}

// Validate checks that the trip record is sound.
func (t Trip) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trip id is required")
	}
	if t.VehicleID == "" || t.DriverID == "" {
		return fmt.Errorf("trip %s: vehicle and driver references are required", t.ID)
	}
	if t.CargoWeightKg < 0 {
		return fmt.Errorf("trip %s: cargo weight cannot be negative", t.ID)
	}
	if t.Origin == "" || t.Destination == "" {
		return fmt.Errorf("trip %s: origin and destination are required", t.ID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("trip %s: unknown status %q", t.ID, t.Status)
	}
	return nil
}

// NewID returns a fresh record identifier.
func NewID() string { return uuid.NewString() }
