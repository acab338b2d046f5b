package engine

import "github.com/fleetops/dispatchd/core/model"

// Event is a requested trip lifecycle change.
type Event string

const (
	// EventCreate is recorded for trip creation. It is not an edge of the
	// state machine proper since creation has no source state.
	EventCreate   Event = "create"
	EventDispatch Event = "dispatch"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

// transition is a single allowed edge in the trip lifecycle state machine.
// completed and cancelled have no outgoing edges.
type transition struct {
	From  model.TripStatus
	Event Event
	To    model.TripStatus
}

var transitions = []transition{
	{From: model.TripDraft, Event: EventDispatch, To: model.TripDispatched},
	{From: model.TripDispatched, Event: EventComplete, To: model.TripCompleted},
	{From: model.TripDraft, Event: EventCancel, To: model.TripCancelled},
	{From: model.TripDispatched, Event: EventCancel, To: model.TripCancelled},
}

// transitionFor returns the target state for a state+event pair, or false
// when the edge does not exist.
func transitionFor(from model.TripStatus, ev Event) (model.TripStatus, bool) {
	for _, tr := range transitions {
		if tr.From == from && tr.Event == ev {
			return tr.To, true
		}
	}
	return "", false
}
