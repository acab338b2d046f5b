package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetops/dispatchd/core/engine"
)

// MockNotifier records transition events in memory, used in tests.
type MockNotifier struct {
	mu     sync.Mutex
	events []engine.TransitionEvent
	Fail   bool
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

// TripTransition records the event or returns an error if configured to fail.
func (m *MockNotifier) TripTransition(_ context.Context, ev engine.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("notify failed")
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockNotifier) Events() []engine.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.TransitionEvent(nil), m.events...)
}
