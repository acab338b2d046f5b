package audit

import (
	"context"
	"time"
)

// Record captures one applied trip transition.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	TripID    string    `json:"trip_id"`
	Ref       string    `json:"ref"`
	Event     string    `json:"event"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	VehicleID string    `json:"vehicle_id"`
	DriverID  string    `json:"driver_id"`
	Detail    string    `json:"detail,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	TripID string
	Event  string
}

// Matches reports whether the record passes the query filters.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.TripID != "" && r.TripID != q.TripID {
		return false
	}
	if q.Event != "" && r.Event != q.Event {
		return false
	}
	return true
}

// Store persists transition records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
