package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
)

func unreachable() error {
	return apperrors.TransportError("connection refused", errors.New("dial tcp"))
}

func providerConfig() Config {
	return Config{
		MaxFailures: 3,
		CoolOff:     50 * time.Millisecond,
		ProbeQuota:  1,
		TripsOn:     apperrors.IsRetryable,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxFailures != 5 {
		t.Errorf("expected MaxFailures 5, got %d", cfg.MaxFailures)
	}
	if cfg.CoolOff != 60*time.Second {
		t.Errorf("expected CoolOff 60s, got %v", cfg.CoolOff)
	}
	if cfg.ProbeQuota != 1 {
		t.Errorf("expected ProbeQuota 1, got %d", cfg.ProbeQuota)
	}
}

func TestExecutePassesResultThrough(t *testing.T) {
	reg := NewRegistry(providerConfig())

	if err := reg.Execute("portal.example.com", func() error { return nil }); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	failure := unreachable()
	err := reg.Execute("portal.example.com", func() error { return failure })
	if err != failure {
		t.Errorf("expected the provider error back, got %v", err)
	}
	if reg.State("portal.example.com") != StateClosed {
		t.Errorf("one failure must not open the circuit, got %s", reg.State("portal.example.com"))
	}
}

func TestOpensAfterRepeatedHostFailures(t *testing.T) {
	reg := NewRegistry(providerConfig())

	for i := 0; i < 3; i++ {
		reg.Execute("portal.example.com", unreachable)
	}

	if reg.State("portal.example.com") != StateOpen {
		t.Fatalf("expected state open after repeated failures, got %s", reg.State("portal.example.com"))
	}

	err := reg.Execute("portal.example.com", func() error { return nil })
	if err != ErrOpenState {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestHostsTripIndependently(t *testing.T) {
	reg := NewRegistry(providerConfig())

	for i := 0; i < 3; i++ {
		reg.Execute("dead.example.com", unreachable)
	}

	if reg.State("dead.example.com") != StateOpen {
		t.Fatalf("expected the failing host to open, got %s", reg.State("dead.example.com"))
	}

	// A different provider keeps fetching
	called := false
	if err := reg.Execute("alive.example.com", func() error { called = true; return nil }); err != nil {
		t.Errorf("expected no error for the healthy host, got %v", err)
	}
	if !called {
		t.Error("the healthy host's request must go out")
	}
	if reg.State("alive.example.com") != StateClosed {
		t.Errorf("expected the healthy host to stay closed, got %s", reg.State("alive.example.com"))
	}
}

func TestAnsweringProviderDoesNotTrip(t *testing.T) {
	reg := NewRegistry(providerConfig())

	// A 500 means the host answered; it must not count as unreachable
	for i := 0; i < 5; i++ {
		reg.Execute("portal.example.com", func() error {
			return apperrors.ServerError(500, "http://portal.example.com/player_api.php")
		})
	}

	if reg.State("portal.example.com") != StateClosed {
		t.Errorf("server-side errors must not open the circuit, got %s", reg.State("portal.example.com"))
	}
}

func TestProbeClosesAfterCoolOff(t *testing.T) {
	reg := NewRegistry(providerConfig())

	for i := 0; i < 3; i++ {
		reg.Execute("portal.example.com", unreachable)
	}

	time.Sleep(80 * time.Millisecond)

	// First request after the cool-off is the probe
	if err := reg.Execute("portal.example.com", func() error { return nil }); err != nil {
		t.Errorf("expected the probe to go out, got %v", err)
	}
	if reg.State("portal.example.com") != StateClosed {
		t.Errorf("expected state closed after a successful probe, got %s", reg.State("portal.example.com"))
	}
}

func TestFailedProbeReopens(t *testing.T) {
	reg := NewRegistry(providerConfig())

	for i := 0; i < 3; i++ {
		reg.Execute("portal.example.com", unreachable)
	}

	time.Sleep(80 * time.Millisecond)

	reg.Execute("portal.example.com", unreachable)

	if reg.State("portal.example.com") != StateOpen {
		t.Errorf("expected state open after a failed probe, got %s", reg.State("portal.example.com"))
	}
}

func TestProbeQuotaRejectsExtraRequests(t *testing.T) {
	cfg := providerConfig()
	cfg.CoolOff = 10 * time.Millisecond
	reg := NewRegistry(cfg)

	for i := 0; i < 3; i++ {
		reg.Execute("portal.example.com", unreachable)
	}

	time.Sleep(30 * time.Millisecond)

	// Hold the probe slot open while a second request arrives
	release := make(chan struct{})
	probeStarted := make(chan struct{})
	go func() {
		reg.Execute("portal.example.com", func() error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	err := reg.Execute("portal.example.com", func() error { return nil })
	close(release)

	if err != ErrProbeLimit {
		t.Errorf("expected ErrProbeLimit while the probe is in flight, got %v", err)
	}
}

func TestReset(t *testing.T) {
	reg := NewRegistry(providerConfig())

	for i := 0; i < 3; i++ {
		reg.Execute("portal.example.com", unreachable)
	}
	if reg.State("portal.example.com") != StateOpen {
		t.Fatalf("expected state open, got %s", reg.State("portal.example.com"))
	}

	reg.Reset("portal.example.com")

	if reg.State("portal.example.com") != StateClosed {
		t.Errorf("expected state closed after reset, got %s", reg.State("portal.example.com"))
	}
	if err := reg.Execute("portal.example.com", func() error { return nil }); err != nil {
		t.Errorf("expected requests to flow after reset, got %v", err)
	}
}

func TestNilTripsOnTreatsAnyErrorAsFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFailures = 2
	reg := NewRegistry(cfg)

	someErr := errors.New("boom")
	for i := 0; i < 2; i++ {
		reg.Execute("host", func() error { return someErr })
	}

	if reg.State("host") != StateOpen {
		t.Errorf("expected any error to trip without a classifier, got %s", reg.State("host"))
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State.String() = %v, want %v", got, tt.expected)
		}
	}
}
