package refactor

import (
	"context"
	"encoding/json"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/ui"
)

const extractWidgetPrompt = "Enter a name for the widget"

// ExtractWidgetResolver collects the options for EXTRACT_WIDGET: a
// single widget-name prompt with no server-suggested default.
type ExtractWidgetResolver struct {
	ui ui.Interactor
}

// NewExtractWidgetResolver creates the EXTRACT_WIDGET resolver.
func NewExtractWidgetResolver(interactor ui.Interactor) *ExtractWidgetResolver {
	return &ExtractWidgetResolver{ui: interactor}
}

// Resolve implements Resolver.
func (r *ExtractWidgetResolver) Resolve(ctx context.Context, feedback json.RawMessage) (any, bool) {
	name, ok := r.ui.PromptText(extractWidgetPrompt, "")
	if !ok || name == "" {
		return nil, false
	}

	return analysis.ExtractWidgetOptions{Name: name}, true
}
