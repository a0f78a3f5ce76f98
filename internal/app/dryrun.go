package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/editor"
)

// DiffApplier satisfies editor.Applier by rendering unified diffs
// instead of writing anything. The flow upstream of it runs unchanged,
// so a dry run exercises validation, consent, and the staleness gate
// exactly like a real one.
type DiffApplier struct {
	store *editor.Store

	mu    sync.Mutex
	diffs []string
}

// NewDiffApplier creates a diff-rendering applier that reads
// before-content through the given document store.
func NewDiffApplier(store *editor.Store) *DiffApplier {
	return &DiffApplier{store: store}
}

// Apply implements editor.Applier. Each file's edits are applied to an
// in-memory copy and the result diffed against the original.
func (d *DiffApplier) Apply(ctx context.Context, change *analysis.SourceChange) (editor.ApplyResult, error) {
	var result editor.ApplyResult
	if change == nil {
		return result, nil
	}

	for _, fileEdit := range change.Edits {
		if len(fileEdit.Edits) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		before, err := d.contentOf(fileEdit)
		if err != nil {
			return result, fmt.Errorf("read %s: %w", fileEdit.File, err)
		}
		after, n, err := editor.ApplyEdits(before, fileEdit.Edits)
		if err != nil {
			return result, fmt.Errorf("apply edits to %s: %w", fileEdit.File, err)
		}

		d.mu.Lock()
		d.diffs = append(d.diffs, editor.UnifiedDiff(fileEdit.File, before, after))
		d.mu.Unlock()

		result.FilesChanged++
		result.EditsApplied += n
	}
	return result, nil
}

// contentOf reads a file's current content through the store, so an
// attached editor's unsaved buffer is diffed rather than the disk. A
// missing file carrying the new-file stamp diffs against empty.
func (d *DiffApplier) contentOf(fileEdit analysis.SourceFileEdit) ([]byte, error) {
	doc, err := d.store.Open(fileEdit.File)
	if err != nil {
		if fileEdit.FileStamp == analysis.NewFileStamp {
			return nil, nil
		}
		return nil, err
	}
	return doc.Content()
}

// Diff returns every rendered diff joined in application order, empty
// when nothing was applied.
func (d *DiffApplier) Diff() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.diffs, "\n")
}
