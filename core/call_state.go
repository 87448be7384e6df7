package core

type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateExecuting
	CallStateExecutingFailed
	CallStateRetrieving
	CallStateRetrievingFailed
	CallStateMaterialized
	CallStateCanceled
)

func (s CallState) String() string {
	switch s {
	case CallStateExecuting:
		return "executing"
	case CallStateExecutingFailed:
		return "executing_failed"

	case CallStateRetrieving:
		return "retrieving"
	case CallStateRetrievingFailed:
		return "retrieving_failed"

	case CallStateMaterialized:
		return "materialized"

	case CallStateCanceled:
		return "canceled"

	default:
		return "unknown"
	}
}

// IsFinal reports whether no more events follow this state.
func (s CallState) IsFinal() bool {
	switch s {
	case CallStateExecutingFailed, CallStateRetrievingFailed, CallStateMaterialized, CallStateCanceled:
		return true
	default:
		return false
	}
}

// IsFailed reports whether the call ended without a result.
func (s CallState) IsFailed() bool {
	return s == CallStateExecutingFailed || s == CallStateRetrievingFailed || s == CallStateCanceled
}
