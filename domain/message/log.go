package message

// Log defines the interface for the append-only conversation history.
// This is a repository interface - implementations are in infrastructure.
type Log interface {
	// Append adds a message to the end of the log and returns it with
	// its assigned identity.
	Append(m Message) Message

	// Clear empties the log. Callers are responsible for re-seeding a
	// system message afterward.
	Clear()

	// Snapshot returns a copy of the log in insertion order.
	Snapshot() []Message

	// Len returns the number of messages in the log.
	Len() int
}
