package session

// EventKind identifies what the host is reporting to the running flow.
type EventKind string

// Event kinds accepted by Dispatch.
const (
	// EventTranscript carries one recognized utterance.
	EventTranscript EventKind = "transcript"

	// EventSkip advances past the current step without a scored attempt.
	EventSkip EventKind = "skip"

	// EventNext is the explicit "continue" action, equivalent to a skip
	// while a step is awaiting the user's turn.
	EventNext EventKind = "next"

	// EventListenError reports a speech-capture failure. The flow keeps
	// waiting; capture errors are never fatal.
	EventListenError EventKind = "listen_error"
)

// Event is one message from the host's input surfaces (voice capture,
// buttons) to the current flow. Events are interpreted only while a step
// is awaiting the user's turn; at any other time they are dropped.
type Event struct {
	Kind       EventKind
	Transcript string
	Err        error
}
