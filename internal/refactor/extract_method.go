package refactor

import (
	"context"
	"encoding/json"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/ui"
)

const extractMethodPrompt = "Enter a name for the method"

// ExtractMethodResolver collects the options for EXTRACT_METHOD: it
// prompts for the method name (seeded with the server's first suggested
// name) and copies the parameter list and return type from feedback
// unchanged.
type ExtractMethodResolver struct {
	ui ui.Interactor
}

// NewExtractMethodResolver creates the EXTRACT_METHOD resolver.
func NewExtractMethodResolver(interactor ui.Interactor) *ExtractMethodResolver {
	return &ExtractMethodResolver{ui: interactor}
}

// Resolve implements Resolver. Exactly one prompt is shown; a dismissed
// or empty answer cancels.
func (r *ExtractMethodResolver) Resolve(ctx context.Context, feedback json.RawMessage) (any, bool) {
	var fb analysis.ExtractMethodFeedback
	if err := analysis.DecodeFeedback(feedback, &fb); err != nil {
		return nil, false
	}

	var suggested string
	if len(fb.Names) > 0 {
		suggested = fb.Names[0]
	}

	name, ok := r.ui.PromptText(extractMethodPrompt, suggested)
	if !ok || name == "" {
		return nil, false
	}

	return analysis.ExtractMethodOptions{
		ReturnType:   fb.ReturnType,
		CreateGetter: false,
		Name:         name,
		ExtractAll:   false,
		Parameters:   fb.Parameters,
	}, true
}
