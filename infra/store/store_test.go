package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
	infrastore "github.com/fleetops/dispatchd/infra/store"
)

// The memory and SQLite gateways must behave identically for the semantics
// the engine relies on, so every case here runs against both.
func backends(t *testing.T) map[string]corestore.Store {
	t.Helper()
	sq, err := infrastore.NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]corestore.Store{
		"memory": infrastore.NewMemoryStore(),
		"sqlite": sq,
	}
}

func vehicle(id string) model.Vehicle {
	return model.Vehicle{ID: id, Plate: "KBX 410Q", MaxCargoKg: 900, OdometerKm: 300, Status: model.VehicleAvailable}
}

func TestInsertAndReadBack(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutVehicle(vehicle("v1"), 0)
			}); err != nil {
				t.Fatalf("insert: %v", err)
			}
			err := st.View(ctx, func(tx corestore.ReadTx) error {
				v, ver, err := tx.Vehicle("v1")
				if err != nil {
					return err
				}
				if ver != 1 {
					t.Errorf("version = %d, want 1", ver)
				}
				if v.Plate != "KBX 410Q" {
					t.Errorf("plate = %q", v.Plate)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
		})
	}
}

func TestInsertExistingFails(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutVehicle(vehicle("v1"), 0)
			}); err != nil {
				t.Fatalf("insert: %v", err)
			}
			err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutVehicle(vehicle("v1"), 0)
			})
			if !errors.Is(err, corestore.ErrVersionMismatch) {
				t.Fatalf("second insert: %v, want version mismatch", err)
			}
		})
	}
}

func TestConditionalUpdate(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutVehicle(vehicle("v1"), 0)
			}); err != nil {
				t.Fatalf("insert: %v", err)
			}

			// correct version advances the record
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				v, ver, err := tx.Vehicle("v1")
				if err != nil {
					return err
				}
				v.OdometerKm = 550
				return tx.PutVehicle(v, ver)
			}); err != nil {
				t.Fatalf("update: %v", err)
			}

			// stale version is rejected
			err := st.Update(ctx, func(tx corestore.Tx) error {
				v, _, err := tx.Vehicle("v1")
				if err != nil {
					return err
				}
				return tx.PutVehicle(v, 1)
			})
			if !errors.Is(err, corestore.ErrVersionMismatch) {
				t.Fatalf("stale write: %v, want version mismatch", err)
			}

			err = st.View(ctx, func(tx corestore.ReadTx) error {
				v, ver, err := tx.Vehicle("v1")
				if err != nil {
					return err
				}
				if ver != 2 {
					t.Errorf("version = %d, want 2", ver)
				}
				if v.OdometerKm != 550 {
					t.Errorf("odometer = %.0f, want 550", v.OdometerKm)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
		})
	}
}

func TestReadYourWrites(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := st.Update(ctx, func(tx corestore.Tx) error {
				if err := tx.PutVehicle(vehicle("v1"), 0); err != nil {
					return err
				}
				v, ver, err := tx.Vehicle("v1")
				if err != nil {
					return err
				}
				if ver != 1 {
					t.Errorf("staged version = %d, want 1", ver)
				}
				v.Status = model.VehicleOnTrip
				if err := tx.PutVehicle(v, ver); err != nil {
					return err
				}
				v, ver, err = tx.Vehicle("v1")
				if err != nil {
					return err
				}
				if ver != 2 || v.Status != model.VehicleOnTrip {
					t.Errorf("second read = %s at %d, want on_trip at 2", v.Status, ver)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
		})
	}
}

func TestFailedUpdateLeavesNothing(t *testing.T) {
	boom := errors.New("boom")
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := st.Update(ctx, func(tx corestore.Tx) error {
				if err := tx.PutVehicle(vehicle("v1"), 0); err != nil {
					return err
				}
				if err := tx.PutDriver(model.Driver{ID: "d1", Name: "X", LicenseNo: "L-1", Status: model.DriverOnDuty}, 0); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("update error = %v", err)
			}
			err = st.View(ctx, func(tx corestore.ReadTx) error {
				if _, _, err := tx.Vehicle("v1"); !errors.Is(err, corestore.ErrNotFound) {
					t.Errorf("vehicle survived rollback: %v", err)
				}
				if _, _, err := tx.Driver("d1"); !errors.Is(err, corestore.ErrNotFound) {
					t.Errorf("driver survived rollback: %v", err)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("view: %v", err)
			}
		})
	}
}

func TestMissingRecord(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.View(context.Background(), func(tx corestore.ReadTx) error {
				_, _, err := tx.Trip("ghost")
				return err
			})
			if !errors.Is(err, corestore.ErrNotFound) {
				t.Fatalf("err = %v, want not found", err)
			}
		})
	}
}

func TestListsAreSortedByID(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := st.Update(ctx, func(tx corestore.Tx) error {
				for _, id := range []string{"v3", "v1", "v2"} {
					if err := tx.PutVehicle(vehicle(id), 0); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("seed: %v", err)
			}
			err = st.View(ctx, func(tx corestore.ReadTx) error {
				vs, err := tx.Vehicles()
				if err != nil {
					return err
				}
				if len(vs) != 3 {
					t.Fatalf("vehicles = %d, want 3", len(vs))
				}
				for i, want := range []string{"v1", "v2", "v3"} {
					if vs[i].ID != want {
						t.Errorf("vehicles[%d] = %s, want %s", i, vs[i].ID, want)
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	st, err := infrastore.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := st.Update(ctx, func(tx corestore.Tx) error {
		return tx.PutTrip(model.Trip{
			ID: "t1", Ref: "TRP-0001", VehicleID: "v1", DriverID: "d1",
			CargoWeightKg: 10, Origin: "A", Destination: "B", Status: model.TripDraft,
		}, 0)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = infrastore.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	err = st.View(ctx, func(tx corestore.ReadTx) error {
		tr, ver, err := tx.Trip("t1")
		if err != nil {
			return err
		}
		if ver != 1 || tr.Ref != "TRP-0001" || tr.Status != model.TripDraft {
			t.Errorf("trip after reopen = %+v at %d", tr, ver)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
}
