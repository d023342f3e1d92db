// Event is the unit of input for a running machine.
//
// Events are plain values. Type is the tag reactions are registered against; Data is an
// optional payload that actions, guards and handlers may inspect. Once dispatched an Event
// should be treated as immutable.
//
// Example:
//
//	evt := NewEvent("door.open", DoorPayload{Force: 3})
package primitives

type Event struct {
	Type string `json:"type" yaml:"type"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEvent creates an Event with the given type tag and payload.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}

// String returns the event type tag.
func (e Event) String() string {
	return e.Type
}
