package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/dispatchd/core/engine"
	"github.com/fleetops/dispatchd/core/model"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, "dispatchd", cfg.ClientID)
	assert.Equal(t, "fleet", cfg.TopicPrefix)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Enabled: true, Broker: "tcp://mqtt:1883"}.Validate())
	require.Error(t, Config{Enabled: true}.Validate())
}

func TestMockNotifierRecords(t *testing.T) {
	m := NewMockNotifier()
	ev := engine.TransitionEvent{
		TripID: "t1", Ref: "TRP-0001", Event: engine.EventDispatch,
		From: model.TripDraft, To: model.TripDispatched,
	}
	require.NoError(t, m.TripTransition(context.Background(), ev))
	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "t1", events[0].TripID)
	assert.Equal(t, model.TripDispatched, events[0].To)
}

func TestMockNotifierFailure(t *testing.T) {
	m := NewMockNotifier()
	m.Fail = true
	require.Error(t, m.TripTransition(context.Background(), engine.TransitionEvent{TripID: "t1"}))
	assert.Empty(t, m.Events())
}
