package refactor

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/editor"
)

type refactorCall struct {
	kind         analysis.RefactoringKind
	file         string
	offset       int
	length       int
	validateOnly bool
	options      any
}

// fakeService returns scripted responses in call order and records
// every request it sees.
type fakeService struct {
	calls     []refactorCall
	responses []*analysis.RefactorResponse
	errs      []error
}

func (s *fakeService) GetRefactoring(ctx context.Context, kind analysis.RefactoringKind, file string, offset, length int, validateOnly bool, options any) (*analysis.RefactorResponse, error) {
	i := len(s.calls)
	s.calls = append(s.calls, refactorCall{
		kind:         kind,
		file:         file,
		offset:       offset,
		length:       length,
		validateOnly: validateOnly,
		options:      options,
	})
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return &analysis.RefactorResponse{}, nil
}

// fakeDocument serves version tokens from a script, repeating the last
// one once the script runs out.
type fakeDocument struct {
	path           string
	closed         bool
	versions       []string
	versionErr     error
	versionErrCall int // 1-based Version() call that fails; 0 = never
	versionCalls   int
}

func newFakeDocument(path string) *fakeDocument {
	return &fakeDocument{path: path, versions: []string{"v1"}}
}

func (d *fakeDocument) Path() string { return d.path }
func (d *fakeDocument) Closed() bool { return d.closed }

func (d *fakeDocument) Version() (editor.VersionToken, error) {
	d.versionCalls++
	if d.versionErr != nil && d.versionCalls == d.versionErrCall {
		return editor.VersionToken{}, d.versionErr
	}
	i := d.versionCalls - 1
	if i >= len(d.versions) {
		i = len(d.versions) - 1
	}
	return editor.NewVersionToken(d.versions[i]), nil
}

func (d *fakeDocument) Content() ([]byte, error) { return nil, nil }

func (d *fakeDocument) OffsetAt(line, col int) (int, error) { return 0, nil }

type fakeApplier struct {
	applies int
	change  *analysis.SourceChange
	err     error
}

func (a *fakeApplier) Apply(ctx context.Context, change *analysis.SourceChange) (editor.ApplyResult, error) {
	a.applies++
	a.change = change
	if a.err != nil {
		return editor.ApplyResult{}, a.err
	}
	return editor.ApplyResult{FilesChanged: 1, EditsApplied: len(change.Edits)}, nil
}

// acceptRegistry resolves every kind to the given options without
// touching the UI.
func acceptRegistry(kind analysis.RefactoringKind, options any) *Registry {
	r := NewRegistry()
	r.Register(kind, ResolverFunc(func(ctx context.Context, feedback json.RawMessage) (any, bool) {
		return options, true
	}))
	return r
}

func nonEmptyChange() *analysis.SourceChange {
	return &analysis.SourceChange{
		Message: "Extract Method",
		Edits: []analysis.SourceFileEdit{{
			File:  "/work/lib/app.dart",
			Edits: []analysis.SourceEdit{{Offset: 42, Length: 7, Replacement: "computeTotal()"}},
		}},
	}
}

func testRequest(doc editor.Document) Request {
	return Request{
		Document: doc,
		Range:    Range{Offset: 42, Length: 7},
		Kind:     analysis.KindExtractMethod,
	}
}

func TestPerformApplies(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{Change: nonEmptyChange()},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{}
	doc := newFakeDocument("/work/lib/app.dart")
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, "opts"), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(doc))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("Perform() outcome = %v, want applied", outcome)
	}

	if len(svc.calls) != 2 {
		t.Fatalf("service calls = %d, want 2", len(svc.calls))
	}
	if !svc.calls[0].validateOnly || svc.calls[0].options != nil {
		t.Errorf("first call = %+v, want validateOnly with nil options", svc.calls[0])
	}
	if svc.calls[1].validateOnly {
		t.Error("second call validateOnly = true, want false")
	}
	if svc.calls[1].options != "opts" {
		t.Errorf("second call options = %v, want opts", svc.calls[1].options)
	}
	for i, call := range svc.calls {
		if call.file != "/work/lib/app.dart" || call.offset != 42 || call.length != 7 {
			t.Errorf("call %d = %+v, want the request's file and range", i, call)
		}
	}

	if app.applies != 1 {
		t.Errorf("applies = %d, want exactly 1", app.applies)
	}
	if app.change != svc.responses[1].Change {
		t.Error("applied change is not the edit response's change")
	}
	if ia.shownCount() != 0 {
		t.Errorf("messages shown = %d, want 0 on a clean run", ia.shownCount())
	}
	if doc.versionCalls != 2 {
		t.Errorf("Version() calls = %d, want 2 (capture and final gate)", doc.versionCalls)
	}
}

func TestPerformClosedDocument(t *testing.T) {
	closed := newFakeDocument("/work/lib/app.dart")
	closed.closed = true

	tests := []struct {
		name string
		doc  editor.Document
	}{
		{name: "nil document", doc: nil},
		{name: "closed document", doc: closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			app := &fakeApplier{}
			ia := &fakeInteractor{}
			o := NewOrchestrator(svc, NewRegistry(), app, ia)

			outcome, err := o.Perform(context.Background(), testRequest(tt.doc))
			if err != nil {
				t.Fatalf("Perform() error = %v", err)
			}
			if outcome != OutcomeAbortedClosed {
				t.Errorf("Perform() outcome = %v, want aborted-closed", outcome)
			}
			if len(svc.calls) != 0 {
				t.Errorf("service calls = %d, want 0", len(svc.calls))
			}
			if ia.shownCount() != 0 {
				t.Errorf("messages shown = %d, want 0", ia.shownCount())
			}
		})
	}
}

func TestPerformValidationFatal(t *testing.T) {
	resolved := false
	reg := NewRegistry()
	reg.Register(analysis.KindExtractMethod, ResolverFunc(func(ctx context.Context, feedback json.RawMessage) (any, bool) {
		resolved = true
		return nil, true
	}))

	svc := &fakeService{responses: []*analysis.RefactorResponse{{
		InitialProblems: []analysis.Problem{
			prob(analysis.SeverityWarning, "iffy"),
			prob(analysis.SeverityFatal, "cannot extract here"),
		},
		FinalProblems: []analysis.Problem{
			prob(analysis.SeverityFatal, "a later fatal"),
		},
	}}}
	app := &fakeApplier{}
	ia := &fakeInteractor{}
	o := NewOrchestrator(svc, reg, app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeAbortedFatal {
		t.Fatalf("Perform() outcome = %v, want aborted-fatal", outcome)
	}

	if len(ia.errors) != 1 || ia.errors[0] != "cannot extract here" {
		t.Errorf("errors = %v, want only the first fatal message", ia.errors)
	}
	if resolved {
		t.Error("resolver ran after a validation fatal")
	}
	if len(svc.calls) != 1 {
		t.Errorf("service calls = %d, want 1", len(svc.calls))
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformNoResolverSilent(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{{}}}
	app := &fakeApplier{}
	ia := &fakeInteractor{}
	o := NewOrchestrator(svc, NewRegistry(), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeAbortedNoResolver {
		t.Fatalf("Perform() outcome = %v, want aborted-no-resolver", outcome)
	}
	if len(svc.calls) != 1 {
		t.Errorf("service calls = %d, want 1 (validation only)", len(svc.calls))
	}
	if ia.shownCount() != 0 {
		t.Errorf("messages shown = %d, want 0", ia.shownCount())
	}
}

func TestPerformResolverCancelledSilent(t *testing.T) {
	reg := NewRegistry()
	reg.Register(analysis.KindExtractMethod, NewExtractMethodResolver(&fakeInteractor{promptOK: false}))

	svc := &fakeService{responses: []*analysis.RefactorResponse{{
		Feedback: json.RawMessage(`{"names":["extracted"]}`),
	}}}
	app := &fakeApplier{}
	ia := &fakeInteractor{}
	o := NewOrchestrator(svc, reg, app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeAbortedCancelled {
		t.Fatalf("Perform() outcome = %v, want aborted-cancelled", outcome)
	}
	if len(svc.calls) != 1 {
		t.Errorf("service calls = %d, want 1 (no edit request after cancel)", len(svc.calls))
	}
	if ia.shownCount() != 0 {
		t.Errorf("messages shown = %d, want 0", ia.shownCount())
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformEditFatalsJoined(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			InitialProblems: []analysis.Problem{prob(analysis.SeverityFatal, "name collides")},
			OptionsProblems: []analysis.Problem{
				prob(analysis.SeverityFatal, "invalid name"),
				prob(analysis.SeverityFatal, "name collides"),
			},
			Change: nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	// Consent scripted to accept: fatals must win regardless of user input.
	ia := &fakeInteractor{choiceResult: "Refactor Anyway", choiceOK: true}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeAbortedFatal {
		t.Fatalf("Perform() outcome = %v, want aborted-fatal", outcome)
	}

	want := "name collides\n\ninvalid name Refactoring not applied."
	if len(ia.errors) != 1 || ia.errors[0] != want {
		t.Errorf("errors = %q, want [%q]", ia.errors, want)
	}
	if len(ia.errorChoices)+len(ia.warnChoices) != 0 {
		t.Error("a consent choice was offered despite fatal problems")
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformMissingChangeSilent(t *testing.T) {
	tests := []struct {
		name   string
		change *analysis.SourceChange
	}{
		{name: "absent change", change: nil},
		{name: "empty change", change: &analysis.SourceChange{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{responses: []*analysis.RefactorResponse{
				{},
				{Change: tt.change},
			}}
			app := &fakeApplier{}
			ia := &fakeInteractor{}
			o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

			outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
			if err != nil {
				t.Fatalf("Perform() error = %v", err)
			}
			if outcome != OutcomeAbortedNoChange {
				t.Fatalf("Perform() outcome = %v, want aborted-no-change", outcome)
			}
			if ia.shownCount() != 0 {
				t.Errorf("messages shown = %d, want 0", ia.shownCount())
			}
			if app.applies != 0 {
				t.Errorf("applies = %d, want 0", app.applies)
			}
		})
	}
}

func TestPerformWarningsConsent(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			FinalProblems: []analysis.Problem{prob(analysis.SeverityWarning, "long method")},
			Change:        nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{choiceResult: "Refactor Anyway", choiceOK: true}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("Perform() outcome = %v, want applied", outcome)
	}

	if len(ia.warnChoices) != 1 || ia.warnChoices[0] != "long method" {
		t.Errorf("warnChoices = %v, want the warning at warning level", ia.warnChoices)
	}
	if len(ia.errorChoices) != 0 {
		t.Errorf("errorChoices = %v, want none for warnings only", ia.errorChoices)
	}
	if app.applies != 1 {
		t.Errorf("applies = %d, want exactly 1", app.applies)
	}
}

func TestPerformErrorsUseErrorLevelChoice(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			OptionsProblems: []analysis.Problem{
				prob(analysis.SeverityWarning, "long method"),
				prob(analysis.SeverityError, "shadows a field"),
			},
			Change: nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{choiceResult: "Refactor Anyway", choiceOK: true}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("Perform() outcome = %v, want applied", outcome)
	}

	want := "long method\n\nshadows a field"
	if len(ia.errorChoices) != 1 || ia.errorChoices[0] != want {
		t.Errorf("errorChoices = %q, want [%q]", ia.errorChoices, want)
	}
	if len(ia.warnChoices) != 0 {
		t.Errorf("warnChoices = %v, want none when an error is present", ia.warnChoices)
	}
}

func TestPerformConsentDeclined(t *testing.T) {
	tests := []struct {
		name         string
		choiceResult string
		choiceOK     bool
	}{
		{name: "dismissed", choiceResult: "", choiceOK: false},
		{name: "other choice", choiceResult: "Cancel", choiceOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{responses: []*analysis.RefactorResponse{
				{},
				{
					FinalProblems: []analysis.Problem{prob(analysis.SeverityWarning, "long method")},
					Change:        nonEmptyChange(),
				},
			}}
			app := &fakeApplier{}
			ia := &fakeInteractor{choiceResult: tt.choiceResult, choiceOK: tt.choiceOK}
			o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

			outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
			if err != nil {
				t.Fatalf("Perform() error = %v", err)
			}
			if outcome != OutcomeAbortedDeclined {
				t.Fatalf("Perform() outcome = %v, want aborted-declined", outcome)
			}
			if app.applies != 0 {
				t.Errorf("applies = %d, want 0", app.applies)
			}
		})
	}
}

func TestPerformStaleDocument(t *testing.T) {
	doc := newFakeDocument("/work/lib/app.dart")
	doc.versions = []string{"v1", "v2"}

	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			FinalProblems: []analysis.Problem{prob(analysis.SeverityWarning, "long method")},
			Change:        nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{choiceResult: "Refactor Anyway", choiceOK: true}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(doc))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeAbortedStale {
		t.Fatalf("Perform() outcome = %v, want aborted-stale", outcome)
	}

	// Consent was given; the stale check still wins.
	if len(ia.warnChoices) != 1 {
		t.Errorf("warnChoices = %v, want the consent prompt to have run", ia.warnChoices)
	}
	want := "This refactor cannot be applied because the document has changed."
	if len(ia.errors) != 1 || ia.errors[0] != want {
		t.Errorf("errors = %q, want [%q]", ia.errors, want)
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformDuplicateWarningsCollapse(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			InitialProblems: []analysis.Problem{prob(analysis.SeverityWarning, "needs review")},
			FinalProblems:   []analysis.Problem{prob(analysis.SeverityWarning, "needs review")},
			Change:          nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{choiceResult: "Refactor Anyway", choiceOK: true}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	if _, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart"))); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	if len(ia.warnChoices) != 1 || ia.warnChoices[0] != "needs review" {
		t.Errorf("warnChoices = %q, want the duplicate collapsed to one line", ia.warnChoices)
	}
}

func TestPerformInfoProblemsIgnored(t *testing.T) {
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{
			InitialProblems: []analysis.Problem{prob(analysis.SeverityInfo, "fyi")},
			Change:          nonEmptyChange(),
		},
	}}
	app := &fakeApplier{}
	ia := &fakeInteractor{}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, ia)

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("Perform() outcome = %v, want applied", outcome)
	}
	if ia.shownCount() != 0 {
		t.Errorf("messages shown = %d, want 0 for info-only problems", ia.shownCount())
	}
	if app.applies != 1 {
		t.Errorf("applies = %d, want 1", app.applies)
	}
}

func TestPerformExtractMethodFlow(t *testing.T) {
	resolverUI := &fakeInteractor{promptResult: "computeTotal", promptOK: true}
	reg := NewRegistry()
	reg.Register(analysis.KindExtractMethod, NewExtractMethodResolver(resolverUI))

	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{Feedback: json.RawMessage(`{"names":["extracted"],"parameters":[],"returnType":"void"}`)},
		{Change: nonEmptyChange()},
	}}
	app := &fakeApplier{}
	o := NewOrchestrator(svc, reg, app, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("Perform() outcome = %v, want applied", outcome)
	}

	want := analysis.ExtractMethodOptions{
		ReturnType:   "void",
		CreateGetter: false,
		Name:         "computeTotal",
		ExtractAll:   false,
		Parameters:   []analysis.ExtractMethodParameter{},
	}
	if !reflect.DeepEqual(svc.calls[1].options, want) {
		t.Errorf("edit request options = %+v, want %+v", svc.calls[1].options, want)
	}
	if resolverUI.defaults[0] != "extracted" {
		t.Errorf("prompt default = %q, want the server's first suggestion", resolverUI.defaults[0])
	}
}

func TestPerformValidationCallFails(t *testing.T) {
	boom := errors.New("server down")
	svc := &fakeService{errs: []error{boom}}
	app := &fakeApplier{}
	o := NewOrchestrator(svc, NewRegistry(), app, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if !errors.Is(err, boom) {
		t.Fatalf("Perform() error = %v, want wrapped %v", err, boom)
	}
	if outcome != OutcomeFailed {
		t.Errorf("Perform() outcome = %v, want failed", outcome)
	}
}

func TestPerformEditCallFails(t *testing.T) {
	boom := errors.New("server down")
	svc := &fakeService{
		responses: []*analysis.RefactorResponse{{}},
		errs:      []error{nil, boom},
	}
	app := &fakeApplier{}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if !errors.Is(err, boom) {
		t.Fatalf("Perform() error = %v, want wrapped %v", err, boom)
	}
	if outcome != OutcomeFailed {
		t.Errorf("Perform() outcome = %v, want failed", outcome)
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformApplyFails(t *testing.T) {
	boom := errors.New("write failed")
	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{Change: nonEmptyChange()},
	}}
	app := &fakeApplier{err: boom}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart")))
	if !errors.Is(err, boom) {
		t.Fatalf("Perform() error = %v, want wrapped %v", err, boom)
	}
	if outcome != OutcomeFailed {
		t.Errorf("Perform() outcome = %v, want failed", outcome)
	}
}

func TestPerformVersionCaptureFails(t *testing.T) {
	doc := newFakeDocument("/work/lib/app.dart")
	doc.versionErr = errors.New("buffer gone")
	doc.versionErrCall = 1

	svc := &fakeService{}
	o := NewOrchestrator(svc, NewRegistry(), &fakeApplier{}, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(doc))
	if !errors.Is(err, doc.versionErr) {
		t.Fatalf("Perform() error = %v, want wrapped %v", err, doc.versionErr)
	}
	if outcome != OutcomeFailed {
		t.Errorf("Perform() outcome = %v, want failed", outcome)
	}
	if len(svc.calls) != 0 {
		t.Errorf("service calls = %d, want 0 when the capture fails", len(svc.calls))
	}
}

func TestPerformVersionRecheckFails(t *testing.T) {
	doc := newFakeDocument("/work/lib/app.dart")
	doc.versionErr = errors.New("buffer gone")
	doc.versionErrCall = 2

	svc := &fakeService{responses: []*analysis.RefactorResponse{
		{},
		{Change: nonEmptyChange()},
	}}
	app := &fakeApplier{}
	o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), app, &fakeInteractor{})

	outcome, err := o.Perform(context.Background(), testRequest(doc))
	if !errors.Is(err, doc.versionErr) {
		t.Fatalf("Perform() error = %v, want wrapped %v", err, doc.versionErr)
	}
	if outcome != OutcomeFailed {
		t.Errorf("Perform() outcome = %v, want failed", outcome)
	}
	if app.applies != 0 {
		t.Errorf("applies = %d, want 0", app.applies)
	}
}

func TestPerformPhaseSequence(t *testing.T) {
	tests := []struct {
		name      string
		responses []*analysis.RefactorResponse
		want      []Phase
	}{
		{
			name: "applied",
			responses: []*analysis.RefactorResponse{
				{},
				{Change: nonEmptyChange()},
			},
			want: []Phase{PhaseValidating, PhaseCollectingOptions, PhaseRequestingEdit, PhaseEvaluatingConsent, PhaseApplying},
		},
		{
			name: "validation fatal",
			responses: []*analysis.RefactorResponse{
				{InitialProblems: []analysis.Problem{prob(analysis.SeverityFatal, "no")}},
			},
			want: []Phase{PhaseValidating, PhaseAborted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var phases []Phase
			svc := &fakeService{responses: tt.responses}
			o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), &fakeApplier{}, &fakeInteractor{},
				WithPhaseCallback(func(p Phase) { phases = append(phases, p) }))

			if _, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart"))); err != nil {
				t.Fatalf("Perform() error = %v", err)
			}
			if !reflect.DeepEqual(phases, tt.want) {
				t.Errorf("phases = %v, want %v", phases, tt.want)
			}
		})
	}
}

func TestPerformProblemCallback(t *testing.T) {
	t.Run("edit stage reports deduped lists", func(t *testing.T) {
		svc := &fakeService{responses: []*analysis.RefactorResponse{
			{},
			{
				OptionsProblems: []analysis.Problem{
					prob(analysis.SeverityFatal, "name collides"),
					prob(analysis.SeverityWarning, "long method"),
					prob(analysis.SeverityWarning, "long method"),
				},
				Change: nonEmptyChange(),
			},
		}}
		var gotFatals, gotActionable []string
		calls := 0
		o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), &fakeApplier{}, &fakeInteractor{},
			WithProblemCallback(func(fatals, actionable []string) {
				calls++
				gotFatals = fatals
				gotActionable = actionable
			}))

		if _, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart"))); err != nil {
			t.Fatalf("Perform() error = %v", err)
		}
		if calls != 1 {
			t.Fatalf("callback ran %d times, want 1", calls)
		}
		if !reflect.DeepEqual(gotFatals, []string{"name collides"}) {
			t.Errorf("fatals = %v, want [name collides]", gotFatals)
		}
		if !reflect.DeepEqual(gotActionable, []string{"long method"}) {
			t.Errorf("actionable = %v, want [long method]", gotActionable)
		}
	})

	t.Run("validation fatal reports first fatal only", func(t *testing.T) {
		svc := &fakeService{responses: []*analysis.RefactorResponse{
			{InitialProblems: []analysis.Problem{
				prob(analysis.SeverityFatal, "cannot extract here"),
				prob(analysis.SeverityFatal, "second fatal"),
			}},
		}}
		var gotFatals, gotActionable []string
		o := NewOrchestrator(svc, acceptRegistry(analysis.KindExtractMethod, nil), &fakeApplier{}, &fakeInteractor{},
			WithProblemCallback(func(fatals, actionable []string) {
				gotFatals = fatals
				gotActionable = actionable
			}))

		if _, err := o.Perform(context.Background(), testRequest(newFakeDocument("/work/lib/app.dart"))); err != nil {
			t.Fatalf("Perform() error = %v", err)
		}
		if !reflect.DeepEqual(gotFatals, []string{"cannot extract here"}) {
			t.Errorf("fatals = %v, want first fatal only", gotFatals)
		}
		if len(gotActionable) != 0 {
			t.Errorf("actionable = %v, want empty", gotActionable)
		}
	})
}
