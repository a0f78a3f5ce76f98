package refactor

import "testing"

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseValidating, "validating"},
		{PhaseCollectingOptions, "collecting-options"},
		{PhaseRequestingEdit, "requesting-edit"},
		{PhaseEvaluatingConsent, "evaluating-consent"},
		{PhaseApplying, "applying"},
		{PhaseAborted, "aborted"},
		{Phase(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeApplied, "applied"},
		{OutcomeAbortedClosed, "aborted-closed"},
		{OutcomeAbortedFatal, "aborted-fatal"},
		{OutcomeAbortedNoResolver, "aborted-no-resolver"},
		{OutcomeAbortedCancelled, "aborted-cancelled"},
		{OutcomeAbortedNoChange, "aborted-no-change"},
		{OutcomeAbortedDeclined, "aborted-declined"},
		{OutcomeAbortedStale, "aborted-stale"},
		{OutcomeFailed, "failed"},
		{Outcome(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestOutcomeApplied(t *testing.T) {
	if !OutcomeApplied.Applied() {
		t.Error("OutcomeApplied.Applied() = false, want true")
	}
	for _, o := range []Outcome{OutcomeAbortedClosed, OutcomeAbortedFatal, OutcomeAbortedStale, OutcomeFailed} {
		if o.Applied() {
			t.Errorf("%v.Applied() = true, want false", o)
		}
	}
}
