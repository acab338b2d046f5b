package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetops/dispatchd/core/metrics"
)

// PromSink records trip transitions in Prometheus metrics.
type PromSink struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	retries     *prometheus.CounterVec
}

// NewPromSink registers transition metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_transitions_total",
		Help: "Total number of trip transition attempts",
	}, []string{"event", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_transition_duration_seconds",
		Help:    "Time spent applying a trip transition",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_conflict_retries_total",
		Help: "Number of operations retried after losing a concurrent update",
	}, []string{"event"})

	if err := reg.Register(transitions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			transitions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(retries); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			retries = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{transitions: transitions, duration: duration, retries: retries}, nil
}

// RecordTransition increments the transition counter and observes duration.
func (s *PromSink) RecordTransition(res coremetrics.TransitionResult) error {
	s.transitions.WithLabelValues(res.Event, res.Outcome).Inc()
	s.duration.WithLabelValues(res.Event).Observe(res.Duration.Seconds())
	return nil
}

// RecordRetry counts one conflict retry for the operation.
func (s *PromSink) RecordRetry(op string) error {
	s.retries.WithLabelValues(op).Inc()
	return nil
}
