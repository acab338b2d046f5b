package metrics_test

import (
	"errors"
	"testing"

	coremetrics "github.com/fleetops/dispatchd/core/metrics"
	inframetrics "github.com/fleetops/dispatchd/infra/metrics"
)

type recordingSink struct {
	transitions int
	retries     int
	err         error
}

func (s *recordingSink) RecordTransition(coremetrics.TransitionResult) error {
	s.transitions++
	return s.err
}

func (s *recordingSink) RecordRetry(string) error {
	s.retries++
	return s.err
}

// plainSink does not implement RetryRecorder.
type plainSink struct{ transitions int }

func (s *plainSink) RecordTransition(coremetrics.TransitionResult) error {
	s.transitions++
	return nil
}

func TestMultiSinkForwardsToAll(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	multi := inframetrics.NewMultiSink(a, b)

	if err := multi.RecordTransition(coremetrics.TransitionResult{Event: "create"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.transitions != 1 || b.transitions != 1 {
		t.Errorf("transitions = %d, %d, want 1, 1", a.transitions, b.transitions)
	}

	if err := multi.RecordRetry("dispatch"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if a.retries != 1 || b.retries != 1 {
		t.Errorf("retries = %d, %d, want 1, 1", a.retries, b.retries)
	}
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recordingSink{err: boom}, &recordingSink{}
	multi := inframetrics.NewMultiSink(a, b)
	if err := multi.RecordTransition(coremetrics.TransitionResult{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestMultiSinkSkipsSinksWithoutRetrySupport(t *testing.T) {
	plain := &plainSink{}
	rec := &recordingSink{}
	multi := inframetrics.NewMultiSink(plain, rec)
	if err := multi.RecordRetry("dispatch"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rec.retries != 1 {
		t.Errorf("retries = %d, want 1", rec.retries)
	}
	if plain.transitions != 0 {
		t.Errorf("plain sink touched unexpectedly")
	}
}
