package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ServerStatus indicates the current state of the analysis server
// connection.
type ServerStatus int

const (
	ServerStatusStopped ServerStatus = iota
	ServerStatusStarting
	ServerStatusReady
	ServerStatusStopping
	ServerStatusFailed
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case ServerStatusStopped:
		return "stopped"
	case ServerStatusStarting:
		return "starting"
	case ServerStatusReady:
		return "ready"
	case ServerStatusStopping:
		return "stopping"
	case ServerStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ServerConfig defines how to start and talk to an analysis server.
type ServerConfig struct {
	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory (defaults to the process cwd).
	WorkDir string

	// RequestTimeout bounds each request (default: 30s).
	RequestTimeout time.Duration

	// StartTimeout bounds the wait for server.connected (default: 10s).
	StartTimeout time.Duration
}

// DefaultServerConfig returns a config with the standard timeouts.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RequestTimeout: 30 * time.Second,
		StartTimeout:   10 * time.Second,
	}
}

// Server represents a connection to a single analysis server process.
type Server struct {
	mu sync.Mutex

	config    ServerConfig
	sessionID string

	// Process management
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	transport *Transport

	// State
	status    atomic.Int32
	version   string
	lastError error

	// Callbacks
	onServerError func(ErrorEvent)
	onAnalyzing   func(bool)

	// Lifecycle
	ctx         context.Context
	cancel      context.CancelFunc
	connectedCh chan ConnectedEvent
	exitCh      chan error
	closeOnce   sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerError registers a callback for server.error events.
func WithServerError(fn func(ErrorEvent)) ServerOption {
	return func(s *Server) { s.onServerError = fn }
}

// WithAnalyzing registers a callback for analysis-status changes.
func WithAnalyzing(fn func(bool)) ServerOption {
	return func(s *Server) { s.onAnalyzing = fn }
}

// NewServer creates a new server instance (not yet started).
func NewServer(config ServerConfig, opts ...ServerOption) *Server {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.StartTimeout == 0 {
		config.StartTimeout = 10 * time.Second
	}

	s := &Server{
		config:      config,
		sessionID:   uuid.New().String(),
		connectedCh: make(chan ConnectedEvent, 1),
		exitCh:      make(chan error, 1),
	}
	s.status.Store(int32(ServerStatusStopped))

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the analysis server process and waits for it to announce
// itself with server.connected.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != ServerStatusStopped {
		return ErrAlreadyStarted
	}

	s.status.Store(int32(ServerStatusStarting))
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.startProcess(); err != nil {
		s.status.Store(int32(ServerStatusFailed))
		s.lastError = err
		return err
	}

	s.transport = NewTransport(s.stdout, s.stdin, nil)
	s.registerEventHandlers()
	s.transport.Start(s.ctx)

	go s.monitorProcess()

	// The server opens the conversation: nothing may be sent until
	// server.connected arrives.
	select {
	case ev := <-s.connectedCh:
		s.version = ev.Version
	case err := <-s.exitCh:
		s.status.Store(int32(ServerStatusFailed))
		s.lastError = fmt.Errorf("%w: %v", ErrServerCrashed, err)
		s.stopProcess()
		return s.lastError
	case <-time.After(s.config.StartTimeout):
		s.status.Store(int32(ServerStatusFailed))
		s.lastError = ErrHandshakeTimeout
		s.stopProcess()
		return ErrHandshakeTimeout
	case <-s.ctx.Done():
		s.status.Store(int32(ServerStatusFailed))
		s.lastError = s.ctx.Err()
		s.stopProcess()
		return s.ctx.Err()
	}

	// Status events are informational; a refused subscription is not
	// fatal.
	_ = s.transport.Notify("server.setSubscriptions", setSubscriptionsParams{
		Subscriptions: []string{"STATUS"},
	})

	s.status.Store(int32(ServerStatusReady))
	return nil
}

// startProcess starts the analysis server executable.
func (s *Server) startProcess() error {
	cmd := exec.CommandContext(s.ctx, s.config.Command, s.config.Args...)

	cmd.Env = os.Environ()
	for k, v := range s.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start process: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr

	// Drain stderr so the child never blocks on a full pipe.
	go func() { _, _ = io.Copy(io.Discard, stderr) }()

	return nil
}

// monitorProcess watches the process and signals when it exits.
func (s *Server) monitorProcess() {
	if s.cmd == nil {
		return
	}

	err := s.cmd.Wait()
	select {
	case s.exitCh <- err:
	default:
	}

	if s.transport != nil {
		s.transport.Close()
	}
}

// stopProcess stops the server process.
func (s *Server) stopProcess() {
	if s.transport != nil {
		s.transport.Close()
	}

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.stderr != nil {
		s.stderr.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

// registerEventHandlers sets up handlers for server notifications.
func (s *Server) registerEventHandlers() {
	s.transport.OnEvent("server.connected", func(_ string, params json.RawMessage) {
		var ev ConnectedEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			return
		}
		select {
		case s.connectedCh <- ev:
		default:
		}
	})

	s.transport.OnEvent("server.error", func(_ string, params json.RawMessage) {
		var ev ErrorEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			return
		}
		s.mu.Lock()
		handler := s.onServerError
		s.mu.Unlock()
		if handler != nil {
			handler(ev)
		}
	})

	s.transport.OnEvent("server.status", func(_ string, params json.RawMessage) {
		var ev StatusEvent
		if err := json.Unmarshal(params, &ev); err != nil {
			return
		}
		if ev.Analysis == nil {
			return
		}
		s.mu.Lock()
		handler := s.onAnalyzing
		s.mu.Unlock()
		if handler != nil {
			handler(ev.Analysis.IsAnalyzing)
		}
	})
}

// Call issues a request with the configured per-request timeout.
func (s *Server) Call(ctx context.Context, method string, params any, result any) error {
	if s.Status() != ServerStatusReady {
		return ErrServerNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	return s.transport.Call(ctx, method, params, result)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := ServerStatus(s.status.Load())
	if status == ServerStatusStopped || status == ServerStatusStopping {
		return nil
	}

	s.status.Store(int32(ServerStatusStopping))

	if s.transport != nil && !s.transport.IsClosed() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_ = s.transport.Call(shutdownCtx, "server.shutdown", nil, nil)
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.stopProcess()

	s.status.Store(int32(ServerStatusStopped))
	return nil
}

// Status returns the current server status.
func (s *Server) Status() ServerStatus {
	return ServerStatus(s.status.Load())
}

// Version returns the server version reported at handshake.
func (s *Server) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SessionID returns the unique ID for this server session.
func (s *Server) SessionID() string {
	return s.sessionID
}

// LastError returns the last lifecycle error that occurred.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ExitChannel returns a channel that receives when the process exits.
func (s *Server) ExitChannel() <-chan error {
	return s.exitCh
}

// Command returns the configured server command.
func (s *Server) Command() string {
	return s.config.Command
}
