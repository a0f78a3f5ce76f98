package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/config"
	"github.com/dshills/refract/internal/editor"
	"github.com/dshills/refract/internal/editor/nvim"
	"github.com/dshills/refract/internal/history"
	"github.com/dshills/refract/internal/refactor"
	"github.com/dshills/refract/internal/script"
	"github.com/dshills/refract/internal/ui"
)

// ErrServerStart wraps analysis-server startup failures, so callers
// can distinguish "server would not come up" from configuration
// mistakes.
var ErrServerStart = errors.New("start analysis server")

// Options configures an App. Zero values defer to the config file.
type Options struct {
	// ConfigPath overrides the default config-file location.
	ConfigPath string

	// TargetFile is the file being refactored. Its directory anchors
	// the project-manifest search and its extension picks the server
	// entry when a manifest lists several.
	TargetFile string

	// ServerCommand and ServerArgs name the analysis server to spawn,
	// overriding both the manifest and the config file.
	ServerCommand string
	ServerArgs    []string

	// Nvim attaches to a running Neovim instance instead of editing
	// files on disk. NvimAddr is the msgpack-rpc socket; empty falls
	// back to $NVIM_LISTEN_ADDRESS.
	Nvim     bool
	NvimAddr string

	// LogLevel overrides the configured level when non-empty.
	LogLevel string

	// AssumeYes answers consent prompts affirmatively without showing
	// them. NoColor strips severity colors from terminal output.
	AssumeYes bool
	NoColor   bool

	// DryRun renders unified diffs instead of writing changes.
	DryRun bool

	// WatchConfig reloads the config file while the invocation runs,
	// so a session parked at a consent prompt can have its log level
	// adjusted. One-shot invocations leave this off.
	WatchConfig bool
}

// App owns one wired-up refactoring session: config, logging, the
// editor backend, the analysis server, resolvers, and the journal.
type App struct {
	opts Options

	// Configuration and logging.
	cfg     *config.Config
	logger  *Logger
	logFile *os.File
	watcher *config.Watcher

	// User interaction.
	interactor ui.Interactor

	// Editor backend and open-document cache.
	ed    editor.Editor
	nv    *nvim.Adapter
	store *editor.Store

	// Analysis server.
	serverName string
	sup        *analysis.Supervisor
	edits      *analysis.EditService

	// Refactoring resolvers and flow.
	scripts  *script.Engine
	registry *refactor.Registry
	diff     *DiffApplier
	orch     *refactor.Orchestrator

	// Outcome journal, nil when disabled or unavailable.
	journal *history.Journal

	// performMu serializes Perform so the problem capture below is
	// unambiguous per invocation.
	performMu      sync.Mutex
	lastFatals     []string
	lastActionable []string
}

// New builds a fully wired App. Components come up in dependency
// order; on failure everything already started is torn down.
func New(ctx context.Context, opts Options) (*App, error) {
	a := &App{opts: opts}
	if err := a.bootstrap(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) bootstrap(ctx context.Context) error {
	// 1. Config file, env overlay, then flag overrides on top.
	path := a.opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if a.opts.AssumeYes {
		cfg.UI.AssumeYes = true
	}
	if a.opts.NoColor {
		cfg.UI.NoColor = true
	}
	a.cfg = cfg

	// 2. Logger, before anything that can fail and want to report it.
	if err := a.setupLogger(); err != nil {
		return err
	}

	// 3. User interaction surface.
	a.interactor = a.buildInteractor()

	// 4. Editor backend and document store.
	if err := a.setupEditor(ctx); err != nil {
		return err
	}

	// 5. Analysis server under supervision.
	if err := a.setupServer(ctx); err != nil {
		return err
	}

	// 6. Resolvers: built-ins first, Lua scripts layered on top.
	a.registry = refactor.DefaultRegistry(a.interactor)
	a.setupScripts()

	// 7. The flow itself, with taps for logging and the journal.
	a.setupOrchestrator()

	// 8. Outcome journal, best-effort.
	a.setupJournal()

	// 9. Live config reload for sessions that sit at prompts.
	if a.opts.WatchConfig {
		a.setupWatcher(path)
	}

	return nil
}

func (a *App) setupLogger() error {
	lcfg := DefaultLoggerConfig()
	lcfg.Level = ParseLogLevel(a.cfg.Log.Level)
	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		lcfg.Output = f
	}
	a.logger = NewLogger(lcfg)
	return nil
}

// buildInteractor picks the consent surface. Without a terminal on
// stdin there is nobody to prompt, so the flow runs non-interactive
// and "Refactor Anyway" questions resolve to the --yes flag.
func (a *App) buildInteractor() ui.Interactor {
	if a.cfg.UI.AssumeYes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return ui.NewNonInteractive(os.Stderr, a.cfg.UI.AssumeYes)
	}
	var topts []ui.TerminalOption
	if a.cfg.UI.NoColor {
		topts = append(topts, ui.WithNoColor())
	}
	return ui.NewTerminal(topts...)
}

func (a *App) setupEditor(ctx context.Context) error {
	if a.opts.Nvim {
		adapter, err := nvim.Connect(ctx, a.opts.NvimAddr)
		if err != nil {
			return fmt.Errorf("connect to nvim: %w", err)
		}
		a.nv = adapter
		a.ed = adapter
	} else {
		a.ed = editor.NewFileEditor()
	}
	a.store = editor.NewStore(a.ed)
	return nil
}

// setupServer resolves which analysis server to run. A project
// manifest covering the target file overrides the config file, and an
// explicit --server command overrides both.
func (a *App) setupServer(ctx context.Context) error {
	serverCfg := analysis.DefaultServerConfig()
	serverCfg.Command = a.cfg.Server.Command
	serverCfg.Args = a.cfg.Server.Args
	serverCfg.WorkDir = a.cfg.Server.WorkDir
	if a.cfg.Server.RequestTimeoutMS > 0 {
		serverCfg.RequestTimeout = a.cfg.Server.RequestTimeout()
	}
	if a.cfg.Server.StartTimeoutMS > 0 {
		serverCfg.StartTimeout = a.cfg.Server.StartTimeout()
	}

	if a.opts.TargetFile != "" {
		manifest, err := config.FindManifest(filepath.Dir(a.opts.TargetFile))
		if err != nil {
			a.logger.Warn("manifest lookup failed: %v", err)
		} else if srv := manifest.ServerFor(config.DetectLanguage(a.opts.TargetFile)); srv != nil {
			a.logger.Debug("using server %q from %s", srv.Name, manifest.Path)
			serverCfg.Command = srv.Command
			serverCfg.Args = srv.Args
			a.serverName = srv.Name
		}
	}

	if a.opts.ServerCommand != "" {
		serverCfg.Command = a.opts.ServerCommand
		serverCfg.Args = a.opts.ServerArgs
		a.serverName = ""
	}

	if serverCfg.Command == "" {
		return errors.New("no analysis server configured: set server.command in the config, add a refract.yaml manifest, or pass --server")
	}
	if a.serverName == "" {
		a.serverName = filepath.Base(serverCfg.Command)
	}

	log := a.logger.WithComponent("server")
	sup := analysis.NewSupervisor(serverCfg, analysis.DefaultSupervisorConfig(),
		analysis.WithServerError(func(ev analysis.ErrorEvent) {
			if ev.IsFatal {
				log.Error("%s", ev.Message)
			} else {
				log.Warn("%s", ev.Message)
			}
		}))
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	a.sup = sup
	a.edits = analysis.NewEditService(sup)
	return nil
}

func (a *App) setupScripts() {
	a.scripts = script.NewEngine(a.interactor)

	dirs := a.cfg.Script.Paths
	if len(dirs) == 0 {
		if d := config.DefaultScriptDir(); d != "" {
			dirs = []string{d}
		}
	}
	for _, dir := range dirs {
		if err := a.scripts.LoadDir(dir); err != nil {
			a.logger.Warn("load scripts from %s: %v", dir, err)
		}
	}
	a.scripts.RegisterInto(a.registry)
}

func (a *App) setupOrchestrator() {
	applier := editor.Applier(a.ed)
	if a.opts.DryRun {
		a.diff = NewDiffApplier(a.store)
		applier = a.diff
	}
	log := a.logger.WithComponent("flow")
	a.orch = refactor.NewOrchestrator(a.edits, a.registry, applier, a.interactor,
		refactor.WithPhaseCallback(func(p refactor.Phase) {
			log.Debug("phase %s", p)
		}),
		refactor.WithProblemCallback(func(fatals, actionable []string) {
			a.lastFatals = fatals
			a.lastActionable = actionable
		}),
	)
}

func (a *App) setupJournal() {
	if a.cfg.History.Disabled {
		return
	}
	j, err := history.Open(a.cfg.History.Path)
	if err != nil {
		a.logger.Warn("journal unavailable: %v", err)
		return
	}
	a.journal = j
}

func (a *App) setupWatcher(path string) {
	w, err := config.NewWatcher(path, 0, func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Warn("config reload failed: %v", err)
			return
		}
		a.logger.SetLevel(ParseLogLevel(cfg.Log.Level))
		a.logger.Debug("config reloaded from %s", path)
	})
	if err != nil {
		a.logger.Debug("config watch unavailable: %v", err)
		return
	}
	a.watcher = w
}

// Perform runs one refactoring through the full validate-consent-apply
// flow and journals the outcome. Invocations are serialized.
func (a *App) Perform(ctx context.Context, file string, offset, length int, kind analysis.RefactoringKind) (refactor.Outcome, error) {
	a.performMu.Lock()
	defer a.performMu.Unlock()

	abs, err := filepath.Abs(file)
	if err != nil {
		return refactor.OutcomeFailed, err
	}

	a.lastFatals, a.lastActionable = nil, nil

	doc, err := a.store.Open(abs)
	if err != nil {
		// A document we cannot open is treated like a closed one:
		// abort without user-facing noise.
		a.logger.Debug("open %s: %v", abs, err)
		a.journalOutcome(kind, abs, offset, length, refactor.OutcomeAbortedClosed)
		return refactor.OutcomeAbortedClosed, nil
	}

	outcome, err := a.orch.Perform(ctx, refactor.Request{
		Document: doc,
		Range:    refactor.Range{Offset: offset, Length: length},
		Kind:     kind,
	})

	// Silent aborts stay silent for the user; the cause is still
	// recorded here and in the journal.
	a.logger.Debug("%s on %s at %d+%d: %s", kind, abs, offset, length, outcome)
	a.journalOutcome(kind, abs, offset, length, outcome)
	return outcome, err
}

func (a *App) journalOutcome(kind analysis.RefactoringKind, file string, offset, length int, outcome refactor.Outcome) {
	if a.journal == nil {
		return
	}
	err := a.journal.Append(history.Entry{
		Kind:       string(kind),
		File:       file,
		Offset:     offset,
		Length:     length,
		Outcome:    outcome.String(),
		Fatals:     a.lastFatals,
		Actionable: a.lastActionable,
		Applied:    outcome.Applied(),
		Server:     a.serverName,
	})
	if err != nil {
		a.logger.Warn("journal append failed: %v", err)
	}
}

// Close tears everything down in reverse initialization order. Safe to
// call on a partially constructed App and safe to call twice.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
		a.watcher = nil
	}
	if a.scripts != nil {
		a.scripts.Close()
		a.scripts = nil
	}
	if a.sup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.sup.Stop(ctx)
		cancel()
		a.sup = nil
	}
	if a.nv != nil {
		_ = a.nv.Close()
		a.nv = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *Logger { return a.logger }

// UI returns the active interaction surface.
func (a *App) UI() ui.Interactor { return a.interactor }

// Edits exposes the analysis server's edit domain, for commands that
// query it outside the refactoring flow.
func (a *App) Edits() *analysis.EditService { return a.edits }

// Store returns the open-document cache.
func (a *App) Store() *editor.Store { return a.store }

// Journal returns the outcome journal, or nil when history is
// disabled or unavailable.
func (a *App) Journal() *history.Journal { return a.journal }

// ServerName identifies the analysis server for journal entries.
func (a *App) ServerName() string { return a.serverName }

// Diff returns the rendered diffs of a dry run, empty otherwise.
func (a *App) Diff() string {
	if a.diff == nil {
		return ""
	}
	return a.diff.Diff()
}
