package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RefactoringKind identifies the category of semantic transformation
// requested from the analysis server.
type RefactoringKind string

// Refactoring kinds understood by the analysis server.
const (
	KindConvertGetterToMethod RefactoringKind = "CONVERT_GETTER_TO_METHOD"
	KindConvertMethodToGetter RefactoringKind = "CONVERT_METHOD_TO_GETTER"
	KindExtractLocalVariable  RefactoringKind = "EXTRACT_LOCAL_VARIABLE"
	KindExtractMethod         RefactoringKind = "EXTRACT_METHOD"
	KindExtractWidget         RefactoringKind = "EXTRACT_WIDGET"
	KindInlineLocalVariable   RefactoringKind = "INLINE_LOCAL_VARIABLE"
	KindInlineMethod          RefactoringKind = "INLINE_METHOD"
	KindMoveFile              RefactoringKind = "MOVE_FILE"
	KindRename                RefactoringKind = "RENAME"
)

// Severity classifies a refactoring problem reported by the server.
// Ordering is by escalation: Info < Warning < Error < Fatal.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the wire name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its wire name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire severity name. Unknown names decode to
// SeverityError so an unrecognized problem still blocks without consent.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "INFO":
		*s = SeverityInfo
	case "WARNING":
		*s = SeverityWarning
	case "ERROR":
		*s = SeverityError
	case "FATAL":
		*s = SeverityFatal
	default:
		*s = SeverityError
	}
	return nil
}

// Location identifies a region of a file in a problem report.
type Location struct {
	File        string `json:"file"`
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	StartLine   int    `json:"startLine,omitempty"`
	StartColumn int    `json:"startColumn,omitempty"`
}

// Problem is a validation or execution concern reported by the server.
// Problems are data, not errors: the orchestrator branches on them.
type Problem struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

// Position is a file offset used in change metadata.
type Position struct {
	File   string `json:"file"`
	Offset int    `json:"offset"`
}

// SourceEdit is a single replacement within one file.
type SourceEdit struct {
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	Replacement string `json:"replacement"`
	ID          string `json:"id,omitempty"`
}

// NewFileStamp is the FileStamp the server sends for a file the edit
// will create.
const NewFileStamp int64 = -1

// SourceFileEdit groups the edits for one file.
type SourceFileEdit struct {
	File      string       `json:"file"`
	FileStamp int64        `json:"fileStamp"`
	Edits     []SourceEdit `json:"edits"`
}

// EditsDescending returns the file's edits sorted from highest offset to
// lowest. Applying in that order keeps earlier offsets valid, so callers
// never trust wire order.
func (fe *SourceFileEdit) EditsDescending() []SourceEdit {
	edits := make([]SourceEdit, len(fe.Edits))
	copy(edits, fe.Edits)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Offset > edits[j].Offset
	})
	return edits
}

// LinkedEditSuggestion is a candidate value for a linked edit group.
type LinkedEditSuggestion struct {
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

// LinkedEditGroup describes regions that should be edited together.
type LinkedEditGroup struct {
	Positions   []Position             `json:"positions"`
	Length      int                    `json:"length"`
	Suggestions []LinkedEditSuggestion `json:"suggestions,omitempty"`
}

// SourceChange is the edit-set produced by a successful refactoring
// request.
type SourceChange struct {
	Message          string            `json:"message"`
	Edits            []SourceFileEdit  `json:"edits"`
	LinkedEditGroups []LinkedEditGroup `json:"linkedEditGroups,omitempty"`
	Selection        *Position         `json:"selection,omitempty"`
	SelectionLength  int               `json:"selectionLength,omitempty"`
	ID               string            `json:"id,omitempty"`
}

// IsEmpty reports whether the change contains no edits at all.
func (c *SourceChange) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, fe := range c.Edits {
		if len(fe.Edits) > 0 {
			return false
		}
	}
	return true
}

// Files returns the paths touched by the change, in edit order.
func (c *SourceChange) Files() []string {
	if c == nil {
		return nil
	}
	files := make([]string, 0, len(c.Edits))
	for _, fe := range c.Edits {
		files = append(files, fe.File)
	}
	return files
}

// RefactorResponse is the result of an edit.getRefactoring request.
// The three problem lists are kept separate because the gating rules
// depend on list order; Feedback stays raw until a kind-typed decode is
// requested.
type RefactorResponse struct {
	InitialProblems []Problem       `json:"initialProblems"`
	OptionsProblems []Problem       `json:"optionsProblems"`
	FinalProblems   []Problem       `json:"finalProblems"`
	Feedback        json.RawMessage `json:"feedback,omitempty"`
	Change          *SourceChange   `json:"change,omitempty"`
	PotentialEdits  []string        `json:"potentialEdits,omitempty"`
}

// AllProblems returns the three problem lists concatenated in protocol
// order: initial, then options, then final.
func (r *RefactorResponse) AllProblems() []Problem {
	out := make([]Problem, 0, len(r.InitialProblems)+len(r.OptionsProblems)+len(r.FinalProblems))
	out = append(out, r.InitialProblems...)
	out = append(out, r.OptionsProblems...)
	out = append(out, r.FinalProblems...)
	return out
}

// HasChange reports whether the response carries a non-empty edit-set.
func (r *RefactorResponse) HasChange() bool {
	return r.Change != nil && !r.Change.IsEmpty()
}

// getRefactoringParams is the wire shape of an edit.getRefactoring
// request.
type getRefactoringParams struct {
	Kind         RefactoringKind `json:"kind"`
	File         string          `json:"file"`
	Offset       int             `json:"offset"`
	Length       int             `json:"length"`
	ValidateOnly bool            `json:"validateOnly"`
	Options      any             `json:"options,omitempty"`
}

// availableRefactoringsParams is the wire shape of an
// edit.getAvailableRefactorings request.
type availableRefactoringsParams struct {
	File   string `json:"file"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// availableRefactoringsResult is its result payload.
type availableRefactoringsResult struct {
	Kinds []RefactoringKind `json:"kinds"`
}

// setSubscriptionsParams selects which server notifications to receive.
type setSubscriptionsParams struct {
	Subscriptions []string `json:"subscriptions"`
}

// ConnectedEvent is the server.connected notification payload.
type ConnectedEvent struct {
	Version string `json:"version"`
	PID     int    `json:"pid,omitempty"`
}

// ErrorEvent is the server.error notification payload.
type ErrorEvent struct {
	IsFatal    bool   `json:"isFatal"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
}

// StatusEvent is the server.status notification payload.
type StatusEvent struct {
	Analysis *AnalysisStatus `json:"analysis,omitempty"`
}

// AnalysisStatus reports whether the server is mid-analysis.
type AnalysisStatus struct {
	IsAnalyzing    bool   `json:"isAnalyzing"`
	AnalysisTarget string `json:"analysisTarget,omitempty"`
}

// ExtractMethodParameter describes one parameter of a method being
// extracted. Copied verbatim between feedback and options.
type ExtractMethodParameter struct {
	Kind        string `json:"kind"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	IsDisplayed *bool  `json:"isDisplayed,omitempty"`
}

// ExtractMethodFeedback is the server's validation feedback for
// EXTRACT_METHOD.
type ExtractMethodFeedback struct {
	Offset          int                      `json:"offset"`
	Length          int                      `json:"length"`
	ReturnType      string                   `json:"returnType"`
	Names           []string                 `json:"names"`
	CanCreateGetter bool                     `json:"canCreateGetter"`
	Parameters      []ExtractMethodParameter `json:"parameters"`
	Occurrences     int                      `json:"occurrences"`
	Offsets         []int                    `json:"offsets"`
	Lengths         []int                    `json:"lengths"`
}

// ExtractMethodOptions is the options payload sent back for
// EXTRACT_METHOD.
type ExtractMethodOptions struct {
	ReturnType   string                   `json:"returnType"`
	CreateGetter bool                     `json:"createGetter"`
	Name         string                   `json:"name"`
	ExtractAll   bool                     `json:"extractAll"`
	Parameters   []ExtractMethodParameter `json:"parameters"`
}

// ExtractWidgetFeedback is the (empty) feedback for EXTRACT_WIDGET.
type ExtractWidgetFeedback struct{}

// ExtractWidgetOptions is the options payload for EXTRACT_WIDGET.
type ExtractWidgetOptions struct {
	Name string `json:"name"`
}

// DecodeFeedback unmarshals the raw feedback into a kind-typed value.
// Absent feedback leaves the target at its zero value; the server omits
// feedback for kinds that carry none.
func DecodeFeedback(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode feedback: %w", err)
	}
	return nil
}

// ExtractMethodFeedback decodes the response feedback as EXTRACT_METHOD
// feedback. Absent feedback yields the zero value.
func (r *RefactorResponse) ExtractMethodFeedback() (ExtractMethodFeedback, error) {
	var fb ExtractMethodFeedback
	err := DecodeFeedback(r.Feedback, &fb)
	return fb, err
}
