package analysis

import (
	"context"
	"fmt"
	"path/filepath"
)

// Caller issues requests against a ready analysis server. *Server
// implements it; tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// EditService provides the edit domain of the analysis protocol:
// refactoring validation, refactoring resolution, and kind discovery.
type EditService struct {
	caller Caller

	// allowedKinds restricts which kinds may be requested (empty = all).
	allowedKinds map[RefactoringKind]bool
}

// EditOption configures the EditService.
type EditOption func(*EditService)

// WithAllowedKinds restricts the service to the given refactoring kinds.
func WithAllowedKinds(kinds []RefactoringKind) EditOption {
	return func(es *EditService) {
		es.allowedKinds = make(map[RefactoringKind]bool, len(kinds))
		for _, k := range kinds {
			es.allowedKinds[k] = true
		}
	}
}

// NewEditService creates a new edit service over the given caller.
func NewEditService(caller Caller, opts ...EditOption) *EditService {
	es := &EditService{caller: caller}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// GetRefactoring requests a refactoring at the given range. With
// validateOnly=true and nil options the server reports feasibility and
// feedback only; with validateOnly=false and the collected options it
// produces the concrete edit-set. The same call shape serves both
// phases.
func (es *EditService) GetRefactoring(ctx context.Context, kind RefactoringKind, file string, offset, length int, validateOnly bool, options any) (*RefactorResponse, error) {
	if es.allowedKinds != nil && !es.allowedKinds[kind] {
		return nil, fmt.Errorf("refactoring kind %s not permitted", kind)
	}
	// The server rejects relative paths with INVALID_FILE_PATH_FORMAT;
	// catching it here saves the round-trip.
	if !filepath.IsAbs(file) {
		return nil, fmt.Errorf("file path must be absolute: %s", file)
	}

	params := getRefactoringParams{
		Kind:         kind,
		File:         file,
		Offset:       offset,
		Length:       length,
		ValidateOnly: validateOnly,
		Options:      options,
	}

	var result RefactorResponse
	if err := es.caller.Call(ctx, "edit.getRefactoring", params, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// AvailableKinds asks the server which refactoring kinds apply at the
// given range.
func (es *EditService) AvailableKinds(ctx context.Context, file string, offset, length int) ([]RefactoringKind, error) {
	params := availableRefactoringsParams{
		File:   file,
		Offset: offset,
		Length: length,
	}

	var result availableRefactoringsResult
	if err := es.caller.Call(ctx, "edit.getAvailableRefactorings", params, &result); err != nil {
		return nil, err
	}

	if es.allowedKinds == nil {
		return result.Kinds, nil
	}

	kinds := make([]RefactoringKind, 0, len(result.Kinds))
	for _, k := range result.Kinds {
		if es.allowedKinds[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
