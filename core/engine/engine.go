// Package engine implements the trip lifecycle state machine. All trip
// mutations go through the engine: it validates the requested transition,
// runs the eligibility rules, and acquires or releases vehicle and driver
// reservations in the same store transaction that persists the trip, so the
// records can never disagree.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fleetops/dispatchd/core/audit"
	"github.com/fleetops/dispatchd/core/eligibility"
	"github.com/fleetops/dispatchd/core/ledger"
	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/refs"
	"github.com/fleetops/dispatchd/core/store"
	"github.com/fleetops/dispatchd/internal/eventbus"
)

// TransitionEvent describes one applied lifecycle transition.
type TransitionEvent struct {
	TripID    string           `json:"trip_id"`
	Ref       string           `json:"ref"`
	Event     Event            `json:"event"`
	From      model.TripStatus `json:"from,omitempty"`
	To        model.TripStatus `json:"to"`
	VehicleID string           `json:"vehicle_id"`
	DriverID  string           `json:"driver_id"`
	Time      time.Time        `json:"time"`
}

// Notifier publishes applied transitions to external listeners.
type Notifier interface {
	TripTransition(ctx context.Context, ev TransitionEvent) error
}

// CreateRequest carries the fields needed to create a trip.
type CreateRequest struct {
	VehicleID     string
	DriverID      string
	CargoWeightKg float64
	Origin        string
	Destination   string
	// Dispatch reserves the vehicle and driver atomically with creation
	// instead of leaving the trip in draft.
	Dispatch bool
}

// Engine owns the trip lifecycle. It is safe for concurrent use.
type Engine struct {
	store store.Store
	refs  *refs.Allocator
	log   logger.Logger
	sink  metrics.MetricsSink
	bus   *eventbus.Bus[TransitionEvent]
	cfg   Config

	mu     sync.Mutex
	audit  audit.Store
	notify Notifier
	now    func() time.Time
}

// New creates an Engine. The store is required; a nil allocator starts a
// fresh sequence, a nil sink or bus disables the corresponding output.
func New(st store.Store, alloc *refs.Allocator, log logger.Logger, sink metrics.MetricsSink, bus *eventbus.Bus[TransitionEvent], cfg Config) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if alloc == nil {
		alloc = refs.NewAllocator(0)
	}
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	cfg.SetDefaults()
	return &Engine{
		store: st,
		refs:  alloc,
		log:   log,
		sink:  sink,
		bus:   bus,
		cfg:   cfg,
		now:   time.Now,
	}, nil
}

// SetAuditStore configures the store used to persist transition records.
func (e *Engine) SetAuditStore(st audit.Store) {
	e.mu.Lock()
	e.audit = st
	e.mu.Unlock()
}

// SetNotifier configures the external transition notifier.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	e.notify = n
	e.mu.Unlock()
}

// SetClock overrides the time source, used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

func (e *Engine) clock() time.Time {
	e.mu.Lock()
	now := e.now
	e.mu.Unlock()
	return now()
}

// CreateTrip persists a new trip. Without Dispatch the trip is stored in
// draft and no resources are reserved; with Dispatch the eligibility rules
// run and the reservation is made atomically with creation. The reference is
// allocated once and kept across conflict retries.
func (e *Engine) CreateTrip(ctx context.Context, req CreateRequest) (model.Trip, error) {
	id := model.NewID()
	ref := e.refs.Next()
	return e.run(ctx, EventCreate, func(tx store.Tx) (model.Trip, model.TripStatus, error) {
		t := model.Trip{
			ID:            id,
			Ref:           ref,
			VehicleID:     req.VehicleID,
			DriverID:      req.DriverID,
			CargoWeightKg: req.CargoWeightKg,
			Origin:        req.Origin,
			Destination:   req.Destination,
			Status:        model.TripDraft,
		}
		if err := t.Validate(); err != nil {
			return t, "", wrap(KindInvalidArgument, err)
		}
		v, _, err := tx.Vehicle(req.VehicleID)
		if err != nil {
			return t, "", storeErr("vehicle", req.VehicleID, err)
		}
		d, _, err := tx.Driver(req.DriverID)
		if err != nil {
			return t, "", storeErr("driver", req.DriverID, err)
		}
		if req.Dispatch {
			now := e.clock()
			if err := eligibility.CheckDispatch(v, d, t.CargoWeightKg, now); err != nil {
				return t, "", wrap(KindEligibility, err)
			}
			if err := ledger.Acquire(tx, t.VehicleID, t.DriverID, t.ID); err != nil {
				return t, "", ledgerErr(err)
			}
			t.Status = model.TripDispatched
			t.StartTime = now
			t.StartOdometerKm = v.OdometerKm
		}
		if err := tx.PutTrip(t, 0); err != nil {
			return t, "", storeErr("trip", t.ID, err)
		}
		return t, "", nil
	})
}

// Dispatch moves a draft trip to dispatched, reserving its vehicle and
// driver. The eligibility rules are evaluated fresh against the state read
// in this transaction, not the state at creation time.
func (e *Engine) Dispatch(ctx context.Context, tripID string) (model.Trip, error) {
	return e.run(ctx, EventDispatch, func(tx store.Tx) (model.Trip, model.TripStatus, error) {
		t, ver, err := tx.Trip(tripID)
		if err != nil {
			return model.Trip{}, "", storeErr("trip", tripID, err)
		}
		from := t.Status
		to, ok := transitionFor(from, EventDispatch)
		if !ok {
			return t, from, errorf(KindInvalidTransition, "cannot dispatch trip %s in state %s", t.Ref, from)
		}
		v, _, err := tx.Vehicle(t.VehicleID)
		if err != nil {
			return t, from, storeErr("vehicle", t.VehicleID, err)
		}
		d, _, err := tx.Driver(t.DriverID)
		if err != nil {
			return t, from, storeErr("driver", t.DriverID, err)
		}
		now := e.clock()
		if err := eligibility.CheckDispatch(v, d, t.CargoWeightKg, now); err != nil {
			return t, from, wrap(KindEligibility, err)
		}
		if err := ledger.Acquire(tx, t.VehicleID, t.DriverID, t.ID); err != nil {
			return t, from, ledgerErr(err)
		}
		t.Status = to
		t.StartTime = now
		t.StartOdometerKm = v.OdometerKm
		if err := tx.PutTrip(t, ver); err != nil {
			return t, from, storeErr("trip", t.ID, err)
		}
		return t, from, nil
	})
}

// Complete finishes a dispatched trip, releases its reservation and rolls
// the closing odometer reading onto the vehicle.
func (e *Engine) Complete(ctx context.Context, tripID string, odometerEndKm float64) (model.Trip, error) {
	return e.run(ctx, EventComplete, func(tx store.Tx) (model.Trip, model.TripStatus, error) {
		t, ver, err := tx.Trip(tripID)
		if err != nil {
			return model.Trip{}, "", storeErr("trip", tripID, err)
		}
		from := t.Status
		to, ok := transitionFor(from, EventComplete)
		if !ok {
			return t, from, errorf(KindInvalidTransition, "cannot complete trip %s in state %s", t.Ref, from)
		}
		if odometerEndKm < t.StartOdometerKm {
			return t, from, errorf(KindInvalidArgument, "odometer end %.1fkm is below trip start reading %.1fkm", odometerEndKm, t.StartOdometerKm)
		}
		if err := ledger.Release(tx, t.VehicleID, t.DriverID); err != nil {
			return t, from, ledgerErr(err)
		}
		v, vVer, err := tx.Vehicle(t.VehicleID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// resource removed mid-trip, nothing to roll the reading onto
		case err != nil:
			return t, from, storeErr("vehicle", t.VehicleID, err)
		default:
			v.OdometerKm = odometerEndKm
			if err := tx.PutVehicle(v, vVer); err != nil {
				return t, from, storeErr("vehicle", v.ID, err)
			}
		}
		t.Status = to
		t.EndTime = e.clock()
		t.EndOdometerKm = odometerEndKm
		if err := tx.PutTrip(t, ver); err != nil {
			return t, from, storeErr("trip", t.ID, err)
		}
		return t, from, nil
	})
}

// Cancel terminates a trip from any non-terminal state. A reservation is
// released only if the trip was dispatched; cancelling a draft touches no
// resources.
func (e *Engine) Cancel(ctx context.Context, tripID string) (model.Trip, error) {
	return e.run(ctx, EventCancel, func(tx store.Tx) (model.Trip, model.TripStatus, error) {
		t, ver, err := tx.Trip(tripID)
		if err != nil {
			return model.Trip{}, "", storeErr("trip", tripID, err)
		}
		from := t.Status
		to, ok := transitionFor(from, EventCancel)
		if !ok {
			return t, from, errorf(KindInvalidTransition, "cannot cancel trip %s in state %s", t.Ref, from)
		}
		if from == model.TripDispatched {
			if err := ledger.Release(tx, t.VehicleID, t.DriverID); err != nil {
				return t, from, ledgerErr(err)
			}
		}
		t.Status = to
		t.EndTime = e.clock()
		if err := tx.PutTrip(t, ver); err != nil {
			return t, from, storeErr("trip", t.ID, err)
		}
		return t, from, nil
	})
}

// Trip returns the current state of a trip.
func (e *Engine) Trip(ctx context.Context, tripID string) (model.Trip, error) {
	var t model.Trip
	err := e.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		t, _, err = tx.Trip(tripID)
		return err
	})
	if err != nil {
		return model.Trip{}, storeErr("trip", tripID, err)
	}
	return t, nil
}

// Trips lists all trips.
func (e *Engine) Trips(ctx context.Context) ([]model.Trip, error) {
	var trips []model.Trip
	err := e.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		trips, err = tx.Trips()
		return err
	})
	if err != nil {
		return nil, wrap(KindStorage, err)
	}
	return trips, nil
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	if e.bus != nil {
		e.bus.Close()
	}
	e.mu.Lock()
	st := e.audit
	e.audit = nil
	e.mu.Unlock()
	if st != nil {
		return st.Close()
	}
	return nil
}

// run executes fn inside a store transaction, retrying from scratch when it
// lost a concurrent race, then fans out the result to the metrics sink,
// audit store, event bus and notifier.
func (e *Engine) run(ctx context.Context, ev Event, fn func(tx store.Tx) (model.Trip, model.TripStatus, error)) (model.Trip, error) {
	started := e.clock()
	var (
		trip model.Trip
		from model.TripStatus
		err  error
	)
	for attempt := 1; ; attempt++ {
		err = e.store.Update(ctx, func(tx store.Tx) error {
			var ferr error
			trip, from, ferr = fn(tx)
			return ferr
		})
		err = normalize(err)
		if err == nil || KindOf(err) != KindConflict || attempt >= e.cfg.MaxAttempts {
			break
		}
		e.recordRetry(string(ev))
		e.log.Warnf("%s on trip %s lost a concurrent update, retrying (%d/%d): %v", ev, trip.ID, attempt, e.cfg.MaxAttempts, err)
	}
	e.finish(ctx, ev, trip, from, err, started)
	if err != nil {
		return model.Trip{}, err
	}
	return trip, nil
}

func (e *Engine) recordRetry(op string) {
	if rr, ok := e.sink.(metrics.RetryRecorder); ok {
		if err := rr.RecordRetry(op); err != nil {
			e.log.Warnf("record retry metric: %v", err)
		}
	}
}

// finish records the attempt in the metrics sink, and for applied
// transitions appends the audit record and publishes the event.
func (e *Engine) finish(ctx context.Context, ev Event, t model.Trip, from model.TripStatus, opErr error, started time.Time) {
	now := e.clock()
	outcome := "ok"
	if opErr != nil {
		outcome = string(KindOf(opErr))
		if outcome == "" {
			outcome = "error"
		}
	}
	res := metrics.TransitionResult{
		TripID:    t.ID,
		Ref:       t.Ref,
		Event:     string(ev),
		From:      string(from),
		To:        string(t.Status),
		VehicleID: t.VehicleID,
		DriverID:  t.DriverID,
		Outcome:   outcome,
		Duration:  now.Sub(started),
		Time:      now,
	}
	if err := e.sink.RecordTransition(res); err != nil {
		e.log.Warnf("record transition metric: %v", err)
	}
	if opErr != nil {
		e.log.Debugw("transition rejected", map[string]any{
			"event":  string(ev),
			"trip":   t.ID,
			"reason": opErr.Error(),
		})
		return
	}
	e.log.Infof("trip %s: %s -> %s (%s)", t.Ref, orNone(from), t.Status, ev)
	tev := TransitionEvent{
		TripID:    t.ID,
		Ref:       t.Ref,
		Event:     ev,
		From:      from,
		To:        t.Status,
		VehicleID: t.VehicleID,
		DriverID:  t.DriverID,
		Time:      now,
	}
	if e.bus != nil {
		e.bus.Publish(tev)
	}
	e.mu.Lock()
	auditStore, notify := e.audit, e.notify
	e.mu.Unlock()
	if auditStore != nil {
		rec := audit.Record{
			Timestamp: now,
			TripID:    t.ID,
			Ref:       t.Ref,
			Event:     string(ev),
			From:      string(from),
			To:        string(t.Status),
			VehicleID: t.VehicleID,
			DriverID:  t.DriverID,
		}
		if err := auditStore.Append(ctx, rec); err != nil {
			e.log.Warnf("append audit record: %v", err)
		}
	}
	if notify != nil {
		if err := notify.TripTransition(ctx, tev); err != nil {
			e.log.Warnf("notify transition: %v", err)
		}
	}
}

func orNone(s model.TripStatus) string {
	if s == "" {
		return "none"
	}
	return string(s)
}

// storeErr maps persistence gateway failures onto engine error kinds.
func storeErr(kind, id string, err error) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorf(KindNotFound, "%s %s not found", kind, id)
	case errors.Is(err, store.ErrVersionMismatch):
		return wrap(KindConflict, err)
	default:
		return wrap(KindStorage, err)
	}
}

func ledgerErr(err error) *Error {
	switch {
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, store.ErrVersionMismatch):
		return wrap(KindConflict, err)
	case errors.Is(err, store.ErrNotFound):
		return wrap(KindNotFound, err)
	default:
		return wrap(KindStorage, err)
	}
}

// normalize ensures every error leaving the engine carries a kind.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, store.ErrVersionMismatch) {
		return wrap(KindConflict, err)
	}
	if errors.Is(err, store.ErrNotFound) {
		return wrap(KindNotFound, err)
	}
	return wrap(KindStorage, err)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
