package chat

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventTurnAppended   EventKind = "turn_appended"
	EventPendingChanged EventKind = "pending_changed"
	EventReset          EventKind = "reset"
	EventDraftChanged   EventKind = "draft_changed"
)

// Event tells observers to refresh their view of a session. Snapshot is the
// state right after the mutation; Turn is set for EventTurnAppended.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
	Turn      *Turn     `json:"turn,omitempty"`
	Snapshot  Snapshot  `json:"snapshot"`
}
