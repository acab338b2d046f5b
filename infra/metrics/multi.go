package metrics

import coremetrics "github.com/fleetops/dispatchd/core/metrics"

// MultiSink fans out transition results to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTransition forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordTransition(res coremetrics.TransitionResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransition(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordRetry forwards retry counts when supported by the sink.
func (m *MultiSink) RecordRetry(op string) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(coremetrics.RetryRecorder); ok {
			if err := rr.RecordRetry(op); err != nil {
				return err
			}
		}
	}
	return nil
}
