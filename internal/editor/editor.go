// Package editor abstracts the document store a refactoring is applied
// to. Two implementations exist: plain files on disk and live Neovim
// buffers (editor/nvim). The refactor orchestrator only sees the
// interfaces here, so its staleness and application rules hold for
// both.
package editor

import (
	"context"

	"github.com/dshills/refract/internal/analysis"
)

// VersionToken is an opaque staleness stamp for a document. Tokens are
// captured once at the start of an operation and compared once at the
// final gate; the core never interprets their contents.
type VersionToken struct {
	stamp string
}

// NewVersionToken creates a token from an implementation-defined stamp.
func NewVersionToken(stamp string) VersionToken {
	return VersionToken{stamp: stamp}
}

// Equal reports whether two tokens denote the same document version.
func (v VersionToken) Equal(o VersionToken) bool {
	return v.stamp == o.stamp
}

// IsZero reports whether the token is the zero token.
func (v VersionToken) IsZero() bool {
	return v.stamp == ""
}

// String returns the stamp for logging.
func (v VersionToken) String() string {
	return v.stamp
}

// Document is a refactoring target owned by an external editor or the
// filesystem. Implementations must compute Version from current state
// on every call; the caller decides when to capture and when to
// compare.
type Document interface {
	// Path returns the absolute file path behind the document.
	Path() string

	// Version returns the document's current version token.
	Version() (VersionToken, error)

	// Closed reports whether the document is no longer available.
	Closed() bool

	// Content returns the document's current bytes.
	Content() ([]byte, error)

	// OffsetAt converts a 1-based line and byte column to a byte
	// offset.
	OffsetAt(line, col int) (int, error)
}

// ApplyResult summarizes an edit-set application.
type ApplyResult struct {
	FilesChanged int
	EditsApplied int
}

// Applier applies a server-produced edit-set to its backing store.
type Applier interface {
	// Apply applies every file edit in the change. Within one file,
	// edits are applied from highest offset to lowest.
	Apply(ctx context.Context, change *analysis.SourceChange) (ApplyResult, error)
}

// Editor opens documents and applies edit-sets to them.
type Editor interface {
	Applier

	// Open returns the document for the given absolute path.
	Open(path string) (Document, error)
}
