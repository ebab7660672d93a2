// Package rag answers questions from the indexed documents and falls back to
// the bare language model when the documents are not enough.
package rag

// State is a step in answering one question.
type State int

const (
	StateReceived State = iota
	StateRetrieving
	StateAnswering
	StateGrounded
	StateInsufficient
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRetrieving:
		return "retrieving"
	case StateAnswering:
		return "answering"
	case StateGrounded:
		return "grounded"
	case StateInsufficient:
		return "insufficient"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateGrounded || s == StateInsufficient
}

// StateObserver is notified of every transition, in order.
type StateObserver func(State)
