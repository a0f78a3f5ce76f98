// Package nvim adapts a live Neovim instance to the editor interfaces.
// Documents are buffers, versions are b:changedtick, and edits land in
// the buffer only. Nothing is written to disk; saving stays with the
// user.
package nvim

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/editor"
)

// Adapter drives one Neovim instance over msgpack-rpc.
type Adapter struct {
	v           *nvim.Nvim
	selfStarted bool
	cmd         *exec.Cmd
	socketPath  string
}

// Connect attaches to Neovim. A non-empty addr wins; otherwise
// $NVIM_LISTEN_ADDRESS is tried, and failing that a headless instance
// is spawned and owned by the adapter.
func Connect(ctx context.Context, addr string) (*Adapter, error) {
	if addr == "" {
		addr = os.Getenv("NVIM_LISTEN_ADDRESS")
	}
	if addr != "" {
		v, err := nvim.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("dial nvim at %s: %w", addr, err)
		}
		return &Adapter{v: v}, nil
	}

	return spawn(ctx)
}

func spawn(ctx context.Context) (*Adapter, error) {
	tmpDir, err := os.MkdirTemp("", "refract-nvim-")
	if err != nil {
		return nil, err
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("spawn nvim: %w", err)
	}

	// The socket appears once nvim finishes booting.
	for i := 0; i < 40; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			cmd.Process.Kill()
			os.RemoveAll(tmpDir)
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("dial spawned nvim: %w", err)
	}

	a := &Adapter{v: v, selfStarted: true, cmd: cmd, socketPath: socketPath}
	a.configureSpawned()
	return a, nil
}

// configureSpawned keeps a spawned instance from littering swap files.
func (a *Adapter) configureSpawned() {
	b := a.v.NewBatch()
	b.Command("set noswapfile")
	b.Command("set hidden")
	b.Execute()
}

// Close disconnects and tears down a self-started instance.
func (a *Adapter) Close() error {
	var err error
	if a.v != nil {
		err = a.v.Close()
	}
	if a.selfStarted && a.cmd != nil && a.cmd.Process != nil {
		a.cmd.Process.Kill()
		a.cmd.Wait()
		os.RemoveAll(filepath.Dir(a.socketPath))
	}
	return err
}

// Open implements editor.Editor. The file is loaded into a buffer if no
// buffer has it yet.
func (a *Adapter) Open(path string) (editor.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	buf, err := a.bufferFor(abs)
	if err != nil {
		return nil, err
	}
	return &BufferDocument{adapter: a, buffer: buf, path: abs}, nil
}

// bufferFor finds the buffer holding path, loading it on first use.
func (a *Adapter) bufferFor(abs string) (nvim.Buffer, error) {
	bufs, err := a.v.Buffers()
	if err != nil {
		return 0, fmt.Errorf("list buffers: %w", err)
	}
	for _, buf := range bufs {
		name, err := a.v.BufferName(buf)
		if err != nil {
			continue
		}
		if name == abs {
			return buf, nil
		}
	}

	if err := a.v.Command(fmt.Sprintf("edit %s", abs)); err != nil {
		return 0, fmt.Errorf("edit %s: %w", abs, err)
	}
	buf, err := a.v.CurrentBuffer()
	if err != nil {
		return 0, fmt.Errorf("current buffer: %w", err)
	}
	return buf, nil
}

// Apply implements editor.Applier. Each file's edits are converted to
// buffer positions against current content and issued highest offset
// first through one batch per file.
func (a *Adapter) Apply(ctx context.Context, change *analysis.SourceChange) (editor.ApplyResult, error) {
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

		n, err := a.applyToBuffer(fileEdit)
		if err != nil {
			return result, fmt.Errorf("apply edits to %s: %w", fileEdit.File, err)
		}
		result.FilesChanged++
		result.EditsApplied += n
	}
	return result, nil
}

func (a *Adapter) applyToBuffer(fileEdit analysis.SourceFileEdit) (int, error) {
	buf, err := a.bufferFor(fileEdit.File)
	if err != nil {
		return 0, err
	}

	lines, err := a.v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return 0, fmt.Errorf("read buffer: %w", err)
	}
	li := editor.NewLineIndex(joinLines(lines))

	b := a.v.NewBatch()
	applied := 0
	for _, edit := range fileEdit.EditsDescending() {
		startRow, startCol, err := li.Position(edit.Offset)
		if err != nil {
			return 0, fmt.Errorf("edit start: %w", err)
		}
		endRow, endCol, err := li.Position(edit.Offset + edit.Length)
		if err != nil {
			return 0, fmt.Errorf("edit end: %w", err)
		}

		// nvim rows and byte columns are 0-based.
		b.SetBufferText(buf, startRow-1, startCol-1, endRow-1, endCol-1, replacementLines(edit.Replacement))
		applied++
	}
	if err := b.Execute(); err != nil {
		return 0, fmt.Errorf("batch edits: %w", err)
	}
	return applied, nil
}

// BufferDocument is an editor.Document over one Neovim buffer.
type BufferDocument struct {
	adapter *Adapter
	buffer  nvim.Buffer
	path    string
}

// Path implements editor.Document.
func (d *BufferDocument) Path() string { return d.path }

// Closed implements editor.Document.
func (d *BufferDocument) Closed() bool {
	loaded, err := d.adapter.v.IsBufferLoaded(d.buffer)
	if err != nil {
		return true
	}
	return !loaded
}

// Version implements editor.Document. The token is the buffer's
// b:changedtick, which Neovim bumps on every buffer mutation.
func (d *BufferDocument) Version() (editor.VersionToken, error) {
	var tick int64
	if err := d.adapter.v.BufferVar(d.buffer, "changedtick", &tick); err != nil {
		return editor.VersionToken{}, fmt.Errorf("read changedtick: %w", err)
	}
	return editor.NewVersionToken(strconv.FormatInt(tick, 10)), nil
}

// Content implements editor.Document. Buffer lines are joined with
// newlines and newline-terminated, matching what the file would hold on
// save.
func (d *BufferDocument) Content() ([]byte, error) {
	lines, err := d.adapter.v.BufferLines(d.buffer, 0, -1, true)
	if err != nil {
		return nil, fmt.Errorf("read buffer: %w", err)
	}
	return joinLines(lines), nil
}

// OffsetAt implements editor.Document.
func (d *BufferDocument) OffsetAt(line, col int) (int, error) {
	content, err := d.Content()
	if err != nil {
		return 0, err
	}
	return editor.NewLineIndex(content).Offset(line, col)
}

// joinLines rebuilds file content from buffer lines. Neovim buffers
// imply a final newline, so one is appended.
func joinLines(lines [][]byte) []byte {
	if len(lines) == 0 {
		return nil
	}
	joined := bytes.Join(lines, []byte("\n"))
	return append(joined, '\n')
}

// replacementLines splits replacement text on newlines for
// nvim_buf_set_text, which takes the replacement as a line list.
func replacementLines(replacement string) [][]byte {
	parts := strings.Split(replacement, "\n")
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}
