package core

// TransitionEvent is the structured record emitted on every state change for
// external logging/metrics collectors. Collaborator hand-off only; nothing
// in the engine depends on observers having run.
type TransitionEvent struct {
	ConversationID string `json:"conversation_id"`
	FromState      State  `json:"from_state"`
	ToState        State  `json:"to_state"`
	SequenceNo     int    `json:"sequence_no"`
}

// Observer receives transition events. Implementations must be safe for
// concurrent use: independent conversations transition in parallel.
type Observer interface {
	OnTransition(ev TransitionEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev TransitionEvent)

// OnTransition implements Observer.
func (f ObserverFunc) OnTransition(ev TransitionEvent) { f(ev) }

// NoOpObserver discards all transition events.
type NoOpObserver struct{}

// OnTransition implements Observer.
func (NoOpObserver) OnTransition(TransitionEvent) {}
