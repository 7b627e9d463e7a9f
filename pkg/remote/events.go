package remote

// EventKind enumerates the discrete push-event kinds the ingress delivers.
type EventKind string

const (
	EventMessageCreated  EventKind = "message_created"
	EventReactionAdded   EventKind = "reaction_added"
	EventReactionRemoved EventKind = "reaction_removed"
)

// Event is one real-time push event. The core's only contract with the
// ingress transport is that events apply idempotently through the cache
// store API.
type Event struct {
	Kind    EventKind
	Channel string
	TS      string
	// Reaction is the emoji code for reaction events.
	Reaction string
	// User is the acting user, when the event carries one.
	User string
	// Payload is the raw message body for message-created events.
	Payload []byte
}
