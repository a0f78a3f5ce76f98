package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/refract/internal/analysis"
)

// ContentToken derives a version token from a content snapshot: the
// first 16 hex digits of its SHA-256. Any byte change flips the token.
func ContentToken(content []byte) VersionToken {
	sum := sha256.Sum256(content)
	return NewVersionToken(hex.EncodeToString(sum[:8]))
}

// FileDocument is a Document backed by a file on disk. Nothing is
// cached: every call reads current state, so edits made by other
// processes are always visible to the staleness gate.
type FileDocument struct {
	path string
}

// Path implements Document.
func (d *FileDocument) Path() string { return d.path }

// Closed implements Document. A file document is closed once the file
// no longer exists.
func (d *FileDocument) Closed() bool {
	_, err := os.Stat(d.path)
	return err != nil
}

// Content implements Document.
func (d *FileDocument) Content() ([]byte, error) {
	return os.ReadFile(d.path)
}

// Version implements Document.
func (d *FileDocument) Version() (VersionToken, error) {
	content, err := os.ReadFile(d.path)
	if err != nil {
		return VersionToken{}, fmt.Errorf("read %s: %w", d.path, err)
	}
	return ContentToken(content), nil
}

// OffsetAt implements Document.
func (d *FileDocument) OffsetAt(line, col int) (int, error) {
	content, err := d.Content()
	if err != nil {
		return 0, err
	}
	return NewLineIndex(content).Offset(line, col)
}

// FileEditor is an Editor over plain files on disk.
type FileEditor struct{}

// NewFileEditor creates a file-backed editor.
func NewFileEditor() *FileEditor {
	return &FileEditor{}
}

// Open implements Editor. The path is resolved to an absolute path and
// must exist.
func (e *FileEditor) Open(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &FileDocument{path: abs}, nil
}

// Apply implements Applier. Each file is rewritten atomically; a
// failure on one file stops the pass with earlier files already
// written.
func (e *FileEditor) Apply(ctx context.Context, change *analysis.SourceChange) (ApplyResult, error) {
	var result ApplyResult
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

		n, err := applyToFile(fileEdit)
		if err != nil {
			return result, fmt.Errorf("apply edits to %s: %w", fileEdit.File, err)
		}
		result.FilesChanged++
		result.EditsApplied += n
	}
	return result, nil
}

// ApplyEdits applies edits to a content snapshot from highest offset to
// lowest and returns the edited copy with the count applied. Wire order
// is never trusted; sorting happens here.
func ApplyEdits(content []byte, edits []analysis.SourceEdit) ([]byte, int, error) {
	fileEdit := analysis.SourceFileEdit{Edits: edits}

	out := content
	applied := 0
	for _, edit := range fileEdit.EditsDescending() {
		if edit.Offset < 0 || edit.Length < 0 || edit.Offset+edit.Length > len(out) {
			return nil, 0, fmt.Errorf("edit %d+%d out of range for %d bytes", edit.Offset, edit.Length, len(out))
		}

		next := make([]byte, 0, len(out)-edit.Length+len(edit.Replacement))
		next = append(next, out[:edit.Offset]...)
		next = append(next, edit.Replacement...)
		next = append(next, out[edit.Offset+edit.Length:]...)
		out = next
		applied++
	}
	return out, applied, nil
}

func applyToFile(fileEdit analysis.SourceFileEdit) (int, error) {
	mode := os.FileMode(0o644)
	creating := false

	info, err := os.Stat(fileEdit.File)
	switch {
	case err == nil:
		mode = info.Mode().Perm()
	case os.IsNotExist(err) && fileEdit.FileStamp == analysis.NewFileStamp:
		creating = true
	default:
		return 0, err
	}

	var content []byte
	if !creating {
		content, err = os.ReadFile(fileEdit.File)
		if err != nil {
			return 0, err
		}
	}

	edited, n, err := ApplyEdits(content, fileEdit.Edits)
	if err != nil {
		return 0, err
	}

	if creating {
		if err := os.MkdirAll(filepath.Dir(fileEdit.File), 0o755); err != nil {
			return 0, err
		}
	}
	if err := writeAtomic(fileEdit.File, edited, mode); err != nil {
		return 0, err
	}
	return n, nil
}

// writeAtomic replaces path through a temp file in the same directory,
// so a crash mid-write never leaves a truncated file behind.
func writeAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".refract-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
