package refactor

import (
	"context"
	"fmt"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/editor"
	"github.com/dshills/refract/internal/ui"
)

// Fixed user-facing strings.
const (
	choiceRefactorAnyway = "Refactor Anyway"
	msgDocumentChanged   = "This refactor cannot be applied because the document has changed."
	msgNotApplied        = " Refactoring not applied."
)

// RefactorService requests refactorings from the analysis server.
// *analysis.EditService satisfies it.
type RefactorService interface {
	GetRefactoring(ctx context.Context, kind analysis.RefactoringKind, file string, offset, length int, validateOnly bool, options any) (*analysis.RefactorResponse, error)
}

// Range is a byte span within a document.
type Range struct {
	Offset int
	Length int
}

// Request names a refactoring over a span of an open document.
type Request struct {
	Document editor.Document
	Range    Range
	Kind     analysis.RefactoringKind
}

// Orchestrator drives a refactoring from validation through consent to
// application. Each Perform call is independent; the orchestrator holds
// no per-invocation state, so concurrent calls are safe.
type Orchestrator struct {
	edits      RefactorService
	registry   *Registry
	applier    editor.Applier
	ui         ui.Interactor
	onPhase    func(Phase)
	onProblems func(fatals, actionable []string)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPhaseCallback registers a callback invoked at each phase
// transition. The callback runs synchronously on the Perform
// goroutine and must not block.
func WithPhaseCallback(fn func(Phase)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onPhase = fn
	}
}

// WithProblemCallback registers a callback invoked with the deduped
// problem messages the flow gates on: the first fatal at validation,
// or the partitioned lists at the edit stage. At most one call per
// Perform. Journaling hangs off this; the flow never depends on it.
func WithProblemCallback(fn func(fatals, actionable []string)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onProblems = fn
	}
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(edits RefactorService, registry *Registry, applier editor.Applier, interactor ui.Interactor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		edits:    edits,
		registry: registry,
		applier:  applier,
		ui:       interactor,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) setPhase(p Phase) {
	if o.onPhase != nil {
		o.onPhase(p)
	}
}

func (o *Orchestrator) reportProblems(fatals, actionable []string) {
	if o.onProblems != nil {
		o.onProblems(fatals, actionable)
	}
}

// Perform runs the full refactoring flow for req.
//
// The flow is: validate (validateOnly=true), surface the first fatal
// problem if any, collect options through the kind's resolver, request
// the edit (validateOnly=false), surface fatal problems and gather
// consent for actionable ones, re-check the document version captured
// at the start, and apply the change exactly once.
//
// A non-nil error reports an infrastructure failure (server call or
// edit application); every protocol-level stop is a nil error with an
// Outcome describing why nothing was applied.
func (o *Orchestrator) Perform(ctx context.Context, req Request) (Outcome, error) {
	doc := req.Document
	if doc == nil || doc.Closed() {
		o.setPhase(PhaseAborted)
		return OutcomeAbortedClosed, nil
	}

	// The baseline version is captured before any server traffic and
	// compared exactly once, at the final gate before applying.
	baseline, err := doc.Version()
	if err != nil {
		o.setPhase(PhaseAborted)
		return OutcomeFailed, fmt.Errorf("capture document version: %w", err)
	}

	o.setPhase(PhaseValidating)
	validation, err := o.edits.GetRefactoring(ctx, req.Kind, doc.Path(), req.Range.Offset, req.Range.Length, true, nil)
	if err != nil {
		o.setPhase(PhaseAborted)
		return OutcomeFailed, fmt.Errorf("validate refactoring: %w", err)
	}

	if fatal, found := FirstFatal(validation.AllProblems()); found {
		o.reportProblems([]string{fatal.Message}, nil)
		o.ui.ShowError(fatal.Message)
		o.setPhase(PhaseAborted)
		return OutcomeAbortedFatal, nil
	}

	o.setPhase(PhaseCollectingOptions)
	resolver, ok := o.registry.Lookup(req.Kind)
	if !ok {
		o.setPhase(PhaseAborted)
		return OutcomeAbortedNoResolver, nil
	}

	options, ok := resolver.Resolve(ctx, validation.Feedback)
	if !ok {
		o.setPhase(PhaseAborted)
		return OutcomeAbortedCancelled, nil
	}

	o.setPhase(PhaseRequestingEdit)
	edit, err := o.edits.GetRefactoring(ctx, req.Kind, doc.Path(), req.Range.Offset, req.Range.Length, false, options)
	if err != nil {
		o.setPhase(PhaseAborted)
		return OutcomeFailed, fmt.Errorf("request edit: %w", err)
	}

	o.setPhase(PhaseEvaluatingConsent)
	if proceed, outcome := o.evaluateConsent(edit); !proceed {
		o.setPhase(PhaseAborted)
		return outcome, nil
	}

	current, err := doc.Version()
	if err != nil {
		o.setPhase(PhaseAborted)
		return OutcomeFailed, fmt.Errorf("re-check document version: %w", err)
	}
	if !current.Equal(baseline) {
		o.ui.ShowError(msgDocumentChanged)
		o.setPhase(PhaseAborted)
		return OutcomeAbortedStale, nil
	}

	o.setPhase(PhaseApplying)
	if _, err := o.applier.Apply(ctx, edit.Change); err != nil {
		o.setPhase(PhaseAborted)
		return OutcomeFailed, fmt.Errorf("apply change: %w", err)
	}

	return OutcomeApplied, nil
}

// evaluateConsent inspects the edit-stage problems and decides whether
// the change may be applied. Fatal problems end the flow outright;
// actionable ones are shown with a single "Refactor Anyway" choice.
func (o *Orchestrator) evaluateConsent(edit *analysis.RefactorResponse) (bool, Outcome) {
	fatals, actionable := Partition(edit.AllProblems())
	fatalMsgs := DedupMessages(fatals)
	actionableMsgs := DedupMessages(actionable)
	o.reportProblems(fatalMsgs, actionableMsgs)

	if len(fatals) > 0 {
		o.ui.ShowError(JoinMessages(fatalMsgs) + msgNotApplied)
		return false, OutcomeAbortedFatal
	}

	if !edit.HasChange() {
		return false, OutcomeAbortedNoChange
	}

	if len(actionable) > 0 {
		msg := JoinMessages(actionableMsgs)
		var choice string
		var chosen bool
		if HasSeverity(actionable, analysis.SeverityError) {
			choice, chosen = o.ui.ShowErrorWithChoice(msg, choiceRefactorAnyway)
		} else {
			choice, chosen = o.ui.ShowWarningWithChoice(msg, choiceRefactorAnyway)
		}
		if !chosen || choice != choiceRefactorAnyway {
			return false, OutcomeAbortedDeclined
		}
	}

	return true, OutcomeApplied
}
