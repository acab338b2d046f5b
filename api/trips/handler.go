// Package trips exposes the engine operations over HTTP. The handlers do no
// business logic of their own: they decode the request, call the engine and
// translate its error kinds to status codes.
package trips

import (
	"encoding/json"
	"errors"
	"net/http"

	coreaudit "github.com/fleetops/dispatchd/core/audit"
	"github.com/fleetops/dispatchd/core/engine"
	"github.com/fleetops/dispatchd/core/model"
	corestore "github.com/fleetops/dispatchd/core/store"
)

// Handler serves the trip API.
type Handler struct {
	eng   *engine.Engine
	store corestore.Store
	audit coreaudit.Store
	mux   *http.ServeMux
}

// NewHandler builds the trip API around the engine. The store serves the
// vehicle/driver read side; the audit store may be nil, disabling the audit
// endpoint.
func NewHandler(eng *engine.Engine, st corestore.Store, auditStore coreaudit.Store) *Handler {
	h := &Handler{eng: eng, store: st, audit: auditStore, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /api/trips", h.create)
	h.mux.HandleFunc("GET /api/trips", h.list)
	h.mux.HandleFunc("GET /api/trips/{id}", h.get)
	h.mux.HandleFunc("POST /api/trips/{id}/dispatch", h.dispatch)
	h.mux.HandleFunc("POST /api/trips/{id}/complete", h.complete)
	h.mux.HandleFunc("POST /api/trips/{id}/cancel", h.cancel)
	h.mux.HandleFunc("GET /api/trips/{id}/audit", h.auditLog)
	h.mux.HandleFunc("GET /api/vehicles", h.vehicles)
	h.mux.HandleFunc("GET /api/drivers", h.drivers)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type createRequest struct {
	VehicleID     string  `json:"vehicle_id"`
	DriverID      string  `json:"driver_id"`
	CargoWeightKg float64 `json:"cargo_weight_kg"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Dispatch      bool    `json:"dispatch"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	t, err := h.eng.CreateTrip(r.Context(), engine.CreateRequest{
		VehicleID:     req.VehicleID,
		DriverID:      req.DriverID,
		CargoWeightKg: req.CargoWeightKg,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Dispatch:      req.Dispatch,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	t, err := h.eng.Dispatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type completeRequest struct {
	OdometerEndKm float64 `json:"odometer_end_km"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	t, err := h.eng.Complete(r.Context(), r.PathValue("id"), req.OdometerEndKm)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	t, err := h.eng.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.eng.Trip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	trips, err := h.eng.Trips(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := trips[:0]
		for _, t := range trips {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		trips = filtered
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotFound, "not_found", "audit log not configured")
		return
	}
	recs, err := h.audit.Query(r.Context(), coreaudit.Query{
		TripID: r.PathValue("id"),
		Event:  r.URL.Query().Get("event"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) vehicles(w http.ResponseWriter, r *http.Request) {
	var vehicles []model.Vehicle
	err := h.store.View(r.Context(), func(tx corestore.ReadTx) error {
		var err error
		vehicles, err = tx.Vehicles()
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) drivers(w http.ResponseWriter, r *http.Request) {
	var drivers []model.Driver
	err := h.store.View(r.Context(), func(tx corestore.ReadTx) error {
		var err error
		drivers, err = tx.Drivers()
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func writeEngineError(w http.ResponseWriter, err error) {
	var e *engine.Error
	if !errors.As(err, &e) {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch e.Kind {
	case engine.KindNotFound:
		status = http.StatusNotFound
	case engine.KindInvalidArgument:
		status = http.StatusBadRequest
	case engine.KindEligibility:
		status = http.StatusUnprocessableEntity
	case engine.KindInvalidTransition, engine.KindConflict:
		status = http.StatusConflict
	case engine.KindStorage:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, string(e.Kind), e.Reason)
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	writeJSON(w, status, errorResponse{Error: kind, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
