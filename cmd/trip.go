package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetops/dispatchd/app"
	"github.com/fleetops/dispatchd/config"
	"github.com/fleetops/dispatchd/core/engine"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/refs"
	"github.com/fleetops/dispatchd/infra/logger"
)

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Trip lifecycle commands",
}

var (
	tripVehicle  string
	tripDriver   string
	tripCargo    float64
	tripOrigin   string
	tripDest     string
	tripDispatch bool
	tripOdometer float64
)

var tripCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a trip, optionally dispatching it immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) (model.Trip, error) {
			return eng.CreateTrip(ctx, engine.CreateRequest{
				VehicleID:     tripVehicle,
				DriverID:      tripDriver,
				CargoWeightKg: tripCargo,
				Origin:        tripOrigin,
				Destination:   tripDest,
				Dispatch:      tripDispatch,
			})
		})
	},
}

var tripDispatchCmd = &cobra.Command{
	Use:   "dispatch <trip-id>",
	Short: "Dispatch a draft trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) (model.Trip, error) {
			return eng.Dispatch(ctx, args[0])
		})
	},
}

var tripCompleteCmd = &cobra.Command{
	Use:   "complete <trip-id>",
	Short: "Complete a dispatched trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) (model.Trip, error) {
			return eng.Complete(ctx, args[0], tripOdometer)
		})
	},
}

var tripCancelCmd = &cobra.Command{
	Use:   "cancel <trip-id>",
	Short: "Cancel a draft or dispatched trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) (model.Trip, error) {
			return eng.Cancel(ctx, args[0])
		})
	},
}

func init() {
	tripCreateCmd.Flags().StringVar(&tripVehicle, "vehicle", "", "vehicle id")
	tripCreateCmd.Flags().StringVar(&tripDriver, "driver", "", "driver id")
	tripCreateCmd.Flags().Float64Var(&tripCargo, "cargo", 0, "cargo weight in kg")
	tripCreateCmd.Flags().StringVar(&tripOrigin, "origin", "", "origin")
	tripCreateCmd.Flags().StringVar(&tripDest, "destination", "", "destination")
	tripCreateCmd.Flags().BoolVar(&tripDispatch, "dispatch", false, "dispatch immediately")
	tripCompleteCmd.Flags().Float64Var(&tripOdometer, "odometer", 0, "closing odometer reading in km")

	tripCmd.AddCommand(tripCreateCmd, tripDispatchCmd, tripCompleteCmd, tripCancelCmd)
	rootCmd.AddCommand(tripCmd)
}

// withEngine builds an engine over the configured store, runs the operation
// and prints the resulting trip as JSON.
func withEngine(fn func(context.Context, *engine.Engine) (model.Trip, error)) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := app.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	alloc, err := refs.FromStore(ctx, st)
	if err != nil {
		return err
	}
	eng, err := engine.New(st, alloc, logger.New("trip-command"), nil, nil, cfg.Engine)
	if err != nil {
		return err
	}
	auditStore, err := app.NewAuditStore(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	eng.SetAuditStore(auditStore)
	defer func() { _ = eng.Close() }()

	t, err := fn(ctx, eng)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
