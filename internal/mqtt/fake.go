package mqtt

import "github.com/sweeney/fill-controller/internal/logic"

// FakePublisher records what would have been sent, for test assertions.
type FakePublisher struct {
	// Events holds published fill events, in order.
	Events []logic.Event

	// Payloads holds the JSON encoding of each entry in Events.
	Payloads [][]byte

	// SystemEvents holds published lifecycle events, in order.
	SystemEvents []SystemEvent

	// SystemPayloads holds the JSON encoding of each entry in SystemEvents.
	SystemPayloads [][]byte

	// PublishError, if set, is returned by Publish and nothing is recorded.
	PublishError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	// Connected is returned by IsConnected.
	Connected bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a connected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// Publish records the fill event and its payload.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the lifecycle event and its payload.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// EventTypes returns the types of the recorded fill events.
func (f *FakePublisher) EventTypes() []logic.EventType {
	types := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		types[i] = e.Type
	}
	return types
}

// SystemNames returns the names of the recorded lifecycle events.
func (f *FakePublisher) SystemNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// IsConnected reports the scripted connection state.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
