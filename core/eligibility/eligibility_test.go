package eligibility

import (
	"strings"
	"testing"
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

func TestCheckVehicle(t *testing.T) {
	tests := []struct {
		name    string
		vehicle model.Vehicle
		cargoKg float64
		wantErr string
	}{
		{
			name:    "available with capacity",
			vehicle: model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleAvailable},
			cargoKg: 500,
		},
		{
			name:    "overweight",
			vehicle: model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleAvailable},
			cargoKg: 600,
			wantErr: "exceeds capacity",
		},
		{
			name:    "in shop",
			vehicle: model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleInShop},
			cargoKg: 100,
			wantErr: "not available",
		},
		{
			name:    "already on trip",
			vehicle: model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleOnTrip},
			cargoKg: 100,
			wantErr: "not available",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVehicle(tt.vehicle, tt.cargoKg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckVehicleMessageCarriesBothWeights(t *testing.T) {
	v := model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleAvailable}
	err := CheckVehicle(v, 600)
	if err == nil {
		t.Fatal("expected capacity violation")
	}
	for _, want := range []string{"600", "500"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q missing %q", err.Error(), want)
		}
	}
}

func TestCheckDriver(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := model.Driver{ID: "d1", LicenseNo: "L-1", LicenseExpiry: now.Add(time.Hour), Status: model.DriverOnDuty}
	if err := CheckDriver(valid, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offDuty := valid
	offDuty.Status = model.DriverOffDuty
	if err := CheckDriver(offDuty, now); err == nil || !strings.Contains(err.Error(), "not on duty") {
		t.Errorf("off-duty driver accepted: %v", err)
	}

	suspended := valid
	suspended.Status = model.DriverSuspended
	if err := CheckDriver(suspended, now); err == nil {
		t.Error("suspended driver accepted")
	}
}

func TestCheckDriverLicenseBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := model.Driver{ID: "d1", LicenseNo: "L-1", LicenseExpiry: now, Status: model.DriverOnDuty}
	if err := CheckDriver(d, now); err == nil {
		t.Fatal("license expiring exactly now must count as expired")
	}
	d.LicenseExpiry = now.Add(time.Nanosecond)
	if err := CheckDriver(d, now); err != nil {
		t.Fatalf("license expiring just after now rejected: %v", err)
	}
}

func TestCheckDispatchShortCircuits(t *testing.T) {
	now := time.Now()
	v := model.Vehicle{ID: "v1", MaxCargoKg: 500, Status: model.VehicleRetired}
	d := model.Driver{ID: "d1", LicenseNo: "L-1", LicenseExpiry: now.Add(-time.Hour), Status: model.DriverOnDuty}
	err := CheckDispatch(v, d, 100, now)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Fatalf("expected the vehicle check to fail first, got %v", err)
	}
}
