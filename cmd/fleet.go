package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/dispatchd/app"
	"github.com/fleetops/dispatchd/config"
	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
)

// Fleet registration is bootstrap tooling: it writes vehicle and driver
// records straight through the persistence gateway. Availability flips stay
// the engine's business.
var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet registration commands",
}

var (
	vehiclePlate    string
	vehicleCapacity float64
	vehicleOdometer float64
	driverName      string
	driverLicense   string
	driverExpiry    string
	driverScore     float64
)

var fleetAddVehicleCmd = &cobra.Command{
	Use:   "add-vehicle",
	Short: "Register a vehicle",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := model.Vehicle{
			ID:         model.NewID(),
			Plate:      vehiclePlate,
			MaxCargoKg: vehicleCapacity,
			OdometerKm: vehicleOdometer,
			Status:     model.VehicleAvailable,
		}
		if err := v.Validate(); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, st corestore.Store) error {
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutVehicle(v, 0)
			}); err != nil {
				return err
			}
			fmt.Println(v.ID)
			return nil
		})
	},
}

var fleetAddDriverCmd = &cobra.Command{
	Use:   "add-driver",
	Short: "Register a driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		expiry, err := time.Parse("2006-01-02", driverExpiry)
		if err != nil {
			return fmt.Errorf("parse license expiry: %w", err)
		}
		d := model.Driver{
			ID:            model.NewID(),
			Name:          driverName,
			LicenseNo:     driverLicense,
			LicenseExpiry: expiry,
			SafetyScore:   driverScore,
			Status:        model.DriverOnDuty,
		}
		if err := d.Validate(); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, st corestore.Store) error {
			if err := st.Update(ctx, func(tx corestore.Tx) error {
				return tx.PutDriver(d, 0)
			}); err != nil {
				return err
			}
			fmt.Println(d.ID)
			return nil
		})
	},
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered vehicles and drivers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st corestore.Store) error {
			return st.View(ctx, func(tx corestore.ReadTx) error {
				vehicles, err := tx.Vehicles()
				if err != nil {
					return err
				}
				drivers, err := tx.Drivers()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, v := range vehicles {
					fmt.Fprintf(w, "vehicle\t%s\t%s\t%.0fkg\t%s\n", v.ID, v.Plate, v.MaxCargoKg, v.Status)
				}
				for _, d := range drivers {
					fmt.Fprintf(w, "driver\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.LicenseNo, d.Status)
				}
				return w.Flush()
			})
		})
	},
}

func init() {
	fleetAddVehicleCmd.Flags().StringVar(&vehiclePlate, "plate", "", "registration plate")
	fleetAddVehicleCmd.Flags().Float64Var(&vehicleCapacity, "capacity", 0, "max cargo weight in kg")
	fleetAddVehicleCmd.Flags().Float64Var(&vehicleOdometer, "odometer", 0, "current odometer reading in km")
	fleetAddDriverCmd.Flags().StringVar(&driverName, "name", "", "driver name")
	fleetAddDriverCmd.Flags().StringVar(&driverLicense, "license", "", "license number")
	fleetAddDriverCmd.Flags().StringVar(&driverExpiry, "expiry", "", "license expiry (YYYY-MM-DD)")
	fleetAddDriverCmd.Flags().Float64Var(&driverScore, "score", 100, "safety score [0,100]")

	fleetCmd.AddCommand(fleetAddVehicleCmd, fleetAddDriverCmd, fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func withStore(fn func(context.Context, corestore.Store) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := app.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = st.Close() }()
	return fn(context.Background(), st)
}
