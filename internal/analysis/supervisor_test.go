package analysis

import (
	"context"
	"testing"
	"time"
)

func TestDefaultSupervisorConfig(t *testing.T) {
	config := DefaultSupervisorConfig()

	if config.MaxRestarts != 5 {
		t.Errorf("expected MaxRestarts 5, got %d", config.MaxRestarts)
	}

	if config.InitialBackoff != 1*time.Second {
		t.Errorf("expected InitialBackoff 1s, got %v", config.InitialBackoff)
	}

	if config.MaxBackoff != 60*time.Second {
		t.Errorf("expected MaxBackoff 60s, got %v", config.MaxBackoff)
	}

	if config.BackoffMultiplier != 2.0 {
		t.Errorf("expected BackoffMultiplier 2.0, got %v", config.BackoffMultiplier)
	}

	if config.ResetWindow != 5*time.Minute {
		t.Errorf("expected ResetWindow 5m, got %v", config.ResetWindow)
	}
}

func TestNewSupervisor(t *testing.T) {
	config := ServerConfig{Command: "test-server"}

	supervisor := NewSupervisor(config, DefaultSupervisorConfig())

	if supervisor == nil {
		t.Fatal("expected non-nil supervisor")
	}

	if supervisor.State() != SupervisorStateIdle {
		t.Errorf("expected state Idle, got %v", supervisor.State())
	}

	if supervisor.RestartCount() != 0 {
		t.Errorf("expected restart count 0, got %d", supervisor.RestartCount())
	}
}

func TestSupervisorState_String(t *testing.T) {
	tests := []struct {
		state    SupervisorState
		expected string
	}{
		{SupervisorStateIdle, "idle"},
		{SupervisorStateRunning, "running"},
		{SupervisorStateRestarting, "restarting"},
		{SupervisorStateFailed, "failed"},
		{SupervisorStateStopped, "stopped"},
		{SupervisorState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestSupervisorEventType_String(t *testing.T) {
	tests := []struct {
		eventType SupervisorEventType
		expected  string
	}{
		{SupervisorEventCrash, "crash"},
		{SupervisorEventRestarting, "restarting"},
		{SupervisorEventRecovered, "recovered"},
		{SupervisorEventFailed, "failed"},
		{SupervisorEventType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.expected {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.eventType, got, tt.expected)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 1 * time.Second
	max := 60 * time.Second
	multiplier := 2.0

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{7, 60 * time.Second},  // capped
		{20, 60 * time.Second}, // still capped
	}

	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, initial, max, multiplier)
		if got != tt.expected {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestSupervisorIsReadyBeforeStart(t *testing.T) {
	supervisor := NewSupervisor(ServerConfig{Command: "test-server"}, DefaultSupervisorConfig())

	if supervisor.IsReady() {
		t.Error("supervisor should not be ready before Start")
	}

	if supervisor.Server() != nil {
		t.Error("expected nil server before Start")
	}
}

func TestSupervisorStopBeforeStart(t *testing.T) {
	supervisor := NewSupervisor(ServerConfig{Command: "test-server"}, DefaultSupervisorConfig())

	if err := supervisor.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}

	if supervisor.State() != SupervisorStateIdle {
		t.Errorf("expected state Idle after no-op stop, got %v", supervisor.State())
	}
}

func TestSupervisorEventsChannel(t *testing.T) {
	supervisor := NewSupervisor(ServerConfig{Command: "test-server"}, DefaultSupervisorConfig())

	events := supervisor.Events()
	if events == nil {
		t.Fatal("expected non-nil events channel")
	}

	select {
	case <-events:
		t.Error("expected no events before start")
	default:
	}
}
