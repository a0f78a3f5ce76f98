package refactor

// Phase identifies where an invocation is in the refactoring flow.
// Transitions are strictly forward; Aborted and Applying are terminal.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseCollectingOptions
	PhaseRequestingEdit
	PhaseEvaluatingConsent
	PhaseApplying
	PhaseAborted
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseCollectingOptions:
		return "collecting-options"
	case PhaseRequestingEdit:
		return "requesting-edit"
	case PhaseEvaluatingConsent:
		return "evaluating-consent"
	case PhaseApplying:
		return "applying"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one refactoring invocation. Every
// abort flavor gets its own code so journals and logs can tell a
// cancelled prompt from a stale document; the user-facing behavior of
// the silent flavors stays silent.
type Outcome int

const (
	// OutcomeApplied means the edit-set was applied.
	OutcomeApplied Outcome = iota
	// OutcomeAbortedClosed means the document was missing or closed at entry.
	OutcomeAbortedClosed
	// OutcomeAbortedFatal means FATAL problems blocked the refactoring.
	OutcomeAbortedFatal
	// OutcomeAbortedNoResolver means no resolver is registered for the kind.
	OutcomeAbortedNoResolver
	// OutcomeAbortedCancelled means the user cancelled an options prompt.
	OutcomeAbortedCancelled
	// OutcomeAbortedNoChange means the server returned no edit-set.
	OutcomeAbortedNoChange
	// OutcomeAbortedDeclined means the user did not consent past problems.
	OutcomeAbortedDeclined
	// OutcomeAbortedStale means the document changed since capture.
	OutcomeAbortedStale
	// OutcomeFailed means an infrastructure error ended the flow.
	OutcomeFailed
)

// String returns the outcome code used in journals and logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAbortedClosed:
		return "aborted-closed"
	case OutcomeAbortedFatal:
		return "aborted-fatal"
	case OutcomeAbortedNoResolver:
		return "aborted-no-resolver"
	case OutcomeAbortedCancelled:
		return "aborted-cancelled"
	case OutcomeAbortedNoChange:
		return "aborted-no-change"
	case OutcomeAbortedDeclined:
		return "aborted-declined"
	case OutcomeAbortedStale:
		return "aborted-stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Applied reports whether the invocation ended with the edit applied.
func (o Outcome) Applied() bool {
	return o == OutcomeApplied
}
