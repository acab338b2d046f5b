package model

import (
	"testing"
	"time"
)

func TestStatusValidity(t *testing.T) {
	for _, s := range []TripStatus{TripDraft, TripDispatched, TripCompleted, TripCancelled} {
		if !s.Valid() {
			t.Errorf("trip status %s should be valid", s)
		}
	}
	if TripStatus("en_route").Valid() {
		t.Error("unknown trip status accepted")
	}
	for _, s := range []VehicleStatus{VehicleAvailable, VehicleOnTrip, VehicleInShop, VehicleRetired} {
		if !s.Valid() {
			t.Errorf("vehicle status %s should be valid", s)
		}
	}
	for _, s := range []DriverStatus{DriverOnDuty, DriverOffDuty, DriverOnTrip, DriverSuspended} {
		if !s.Valid() {
			t.Errorf("driver status %s should be valid", s)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if TripDraft.Terminal() || TripDispatched.Terminal() {
		t.Error("draft/dispatched must not be terminal")
	}
	if !TripCompleted.Terminal() || !TripCancelled.Terminal() {
		t.Error("completed/cancelled must be terminal")
	}
}

func TestVehicleValidate(t *testing.T) {
	v := Vehicle{ID: "v1", Plate: "KAA 101X", MaxCargoKg: 500, Status: VehicleAvailable}
	if err := v.Validate(); err != nil {
		t.Fatalf("valid vehicle rejected: %v", err)
	}
	v.MaxCargoKg = 0
	if err := v.Validate(); err == nil {
		t.Error("zero capacity accepted")
	}
}

func TestDriverValidate(t *testing.T) {
	d := Driver{ID: "d1", LicenseNo: "L-1", LicenseExpiry: time.Now().Add(time.Hour), SafetyScore: 90, Status: DriverOnDuty}
	if err := d.Validate(); err != nil {
		t.Fatalf("valid driver rejected: %v", err)
	}
	d.SafetyScore = 101
	if err := d.Validate(); err == nil {
		t.Error("safety score above 100 accepted")
	}
}

func TestTripValidate(t *testing.T) {
	tr := Trip{ID: "t1", VehicleID: "v1", DriverID: "d1", CargoWeightKg: 10, Origin: "A", Destination: "B", Status: TripDraft}
	if err := tr.Validate(); err != nil {
		t.Fatalf("valid trip rejected: %v", err)
	}
	tr.Origin = ""
	if err := tr.Validate(); err == nil {
		t.Error("missing origin accepted")
	}
}
