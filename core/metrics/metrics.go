package metrics

import (
	"time"
)

// TransitionResult captures one trip lifecycle transition attempt for
// observability purposes.
type TransitionResult struct {
	TripID    string
	Ref       string
	Event     string
	From      string
	To        string
	VehicleID string
	DriverID  string
	// Outcome is "ok" for an applied transition, otherwise the error kind.
	Outcome  string
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records transition results for observability purposes.
type MetricsSink interface {
	RecordTransition(res TransitionResult) error
}

// RetryRecorder is implemented by sinks that track conflict retries.
type RetryRecorder interface {
	RecordRetry(op string) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTransition(TransitionResult) error { return nil }

// Config holds observability sink settings.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
