package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"fortio.org/safecast"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/app"
)

var refactorOpts struct {
	file       string
	kind       string
	offset     int
	length     int
	at         string
	server     string
	serverArgs []string
	nvim       bool
	nvimAddr   string
	yes        bool
	dryRun     bool
	copyDiff   bool
	watch      bool
}

var refactorCmd = &cobra.Command{
	Use:   "refactor --file FILE --kind KIND (--at LINE:COL[+LEN] | --offset N [--length N])",
	Short: "Validate and apply a refactoring at a position",
	Long: `Validate a refactoring at a position in a file, collect its options,
and apply the resulting edits. Problems the server reports are shown
first; warnings can be overridden, fatal problems cannot.

The selection is a byte range, given either directly (--offset/--length)
or as a 1-based line and column (--at 12:5, optionally with a length as
--at 12:5+8).`,
	Args: cobra.NoArgs,
	RunE: runRefactor,
}

func init() {
	f := refactorCmd.Flags()
	f.StringVarP(&refactorOpts.file, "file", "f", "", "file to refactor (required)")
	f.StringVarP(&refactorOpts.kind, "kind", "k", "", "refactoring kind, e.g. extract-method (required)")
	f.IntVar(&refactorOpts.offset, "offset", -1, "byte offset of the selection")
	f.IntVar(&refactorOpts.length, "length", 0, "byte length of the selection")
	f.StringVar(&refactorOpts.at, "at", "", "selection as LINE:COL[+LENGTH], 1-based")
	f.StringVar(&refactorOpts.server, "server", "", "analysis server command (overrides config and manifest)")
	f.StringSliceVar(&refactorOpts.serverArgs, "server-arg", nil, "argument for the analysis server (repeatable)")
	f.BoolVar(&refactorOpts.nvim, "nvim", false, "apply edits to a running Neovim instead of disk")
	f.StringVar(&refactorOpts.nvimAddr, "nvim-addr", "", "Neovim socket address (default $NVIM_LISTEN_ADDRESS)")
	f.BoolVarP(&refactorOpts.yes, "yes", "y", false, "answer consent prompts with Refactor Anyway")
	f.BoolVar(&refactorOpts.dryRun, "dry-run", false, "print unified diffs instead of writing")
	f.BoolVar(&refactorOpts.copyDiff, "copy", false, "also copy the dry-run diff to the clipboard")
	f.BoolVar(&refactorOpts.watch, "watch-config", false, "pick up config-file changes while running")

	_ = refactorCmd.MarkFlagRequired("file")
	_ = refactorCmd.MarkFlagRequired("kind")
}

func runRefactor(cmd *cobra.Command, args []string) error {
	if refactorOpts.copyDiff && !refactorOpts.dryRun {
		return exitf(exitUsage, "--copy requires --dry-run")
	}
	if refactorOpts.at != "" && refactorOpts.offset >= 0 {
		return exitf(exitUsage, "--at and --offset are mutually exclusive")
	}
	if refactorOpts.at == "" && refactorOpts.offset < 0 {
		return exitf(exitUsage, "a selection is required: pass --at LINE:COL or --offset N")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx, app.Options{
		ConfigPath:    rootOpts.configPath,
		TargetFile:    refactorOpts.file,
		ServerCommand: refactorOpts.server,
		ServerArgs:    refactorOpts.serverArgs,
		Nvim:          refactorOpts.nvim,
		NvimAddr:      refactorOpts.nvimAddr,
		LogLevel:      rootOpts.logLevel,
		AssumeYes:     refactorOpts.yes,
		NoColor:       rootOpts.noColor,
		DryRun:        refactorOpts.dryRun,
		WatchConfig:   refactorOpts.watch,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	offset, length := refactorOpts.offset, refactorOpts.length
	if refactorOpts.at != "" {
		offset, length, err = resolveAt(application, refactorOpts.file, refactorOpts.at)
		if err != nil {
			return exitf(exitUsage, "%v", err)
		}
	}

	outcome, err := application.Perform(ctx, refactorOpts.file, offset, length, parseKind(refactorOpts.kind))
	if err != nil {
		return &exitError{code: exitServer, message: err.Error()}
	}
	if !outcome.Applied() {
		// The flow already said why, when there was anything to say.
		return &exitError{code: exitAborted}
	}

	if refactorOpts.dryRun {
		diff := application.Diff()
		if diff != "" {
			fmt.Fprint(cmd.OutOrStdout(), diff)
		}
		if refactorOpts.copyDiff {
			if err := clipboard.WriteAll(diff); err != nil {
				fmt.Fprintf(os.Stderr, "warning: copy to clipboard failed: %v\n", err)
			}
		}
	}
	return nil
}

// newApp builds the App and maps construction failures onto exit
// codes: a server that would not come up is operational trouble,
// anything else is the invocation's fault.
func newApp(ctx context.Context, opts app.Options) (*app.App, error) {
	application, err := app.New(ctx, opts)
	if err != nil {
		if errors.Is(err, app.ErrServerStart) {
			return nil, &exitError{code: exitServer, message: err.Error()}
		}
		return nil, &exitError{code: exitUsage, message: err.Error()}
	}
	return application, nil
}

// kindAliases maps CLI-friendly spellings to wire kinds. Anything not
// listed is normalized (upper-cased, hyphens to underscores) and passed
// through, so script-registered kinds need no table entry.
var kindAliases = map[string]analysis.RefactoringKind{
	"rename":                 analysis.KindRename,
	"extract-method":         analysis.KindExtractMethod,
	"extract-widget":         analysis.KindExtractWidget,
	"extract-local":          analysis.KindExtractLocalVariable,
	"extract-local-variable": analysis.KindExtractLocalVariable,
	"inline-local":           analysis.KindInlineLocalVariable,
	"inline-local-variable":  analysis.KindInlineLocalVariable,
	"inline-method":          analysis.KindInlineMethod,
	"move-file":              analysis.KindMoveFile,
	"getter-to-method":       analysis.KindConvertGetterToMethod,
	"method-to-getter":       analysis.KindConvertMethodToGetter,
}

func parseKind(s string) analysis.RefactoringKind {
	if kind, ok := kindAliases[strings.ToLower(s)]; ok {
		return kind
	}
	return analysis.RefactoringKind(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
}

// resolveAt converts a LINE:COL[+LENGTH] spec to a byte range using the
// document's own content, so offsets agree with what the server sees.
func resolveAt(application *app.App, file, spec string) (offset, length int, err error) {
	line, col, length, err := parseAtSpec(spec)
	if err != nil {
		return 0, 0, err
	}

	doc, err := application.Store().Open(file)
	if err != nil {
		return 0, 0, err
	}
	offset, err = doc.OffsetAt(line, col)
	if err != nil {
		return 0, 0, err
	}
	return offset, length, nil
}

func parseAtSpec(spec string) (line, col, length int, err error) {
	pos := spec
	if plus := strings.IndexByte(spec, '+'); plus >= 0 {
		pos = spec[:plus]
		length, err = parseSpan(spec[plus+1:])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("bad length in --at %q: %v", spec, err)
		}
	}

	linePart, colPart, ok := strings.Cut(pos, ":")
	if !ok {
		return 0, 0, 0, fmt.Errorf("bad --at %q: want LINE:COL[+LENGTH]", spec)
	}
	line, err = parseSpan(linePart)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad line in --at %q: %v", spec, err)
	}
	col, err = parseSpan(colPart)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad column in --at %q: %v", spec, err)
	}
	return line, col, length, nil
}

// parseSpan parses a non-negative integer, guarding the narrowing on
// 32-bit platforms.
func parseSpan(s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.Conv[int](v)
}
