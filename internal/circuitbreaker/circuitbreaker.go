package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpenState is returned while a host's circuit is open
	ErrOpenState = errors.New("circuit breaker is open")

	// ErrProbeLimit is returned when the half-open probe quota is spent
	ErrProbeLimit = errors.New("probe quota exhausted in half-open state")
)

// State represents the circuit state for one host
type State int

const (
	// StateClosed allows all requests through
	StateClosed State = iota

	// StateOpen rejects all requests until the cool-off elapses
	StateOpen

	// StateHalfOpen admits a bounded number of probe requests
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	// MaxFailures is the number of tripping failures before the
	// host's circuit opens
	MaxFailures uint

	// CoolOff is how long an open circuit waits before admitting
	// probe requests
	CoolOff time.Duration

	// ProbeQuota is the number of requests admitted while half-open
	ProbeQuota uint

	// TripsOn reports whether an error counts against the host.
	// A provider answering with an error payload is alive; only
	// failures that indicate the host itself is unreachable should
	// trip. Nil means every non-nil error trips.
	TripsOn func(error) bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		CoolOff:     60 * time.Second,
		ProbeQuota:  1,
	}
}

// Registry keeps one circuit per host. A playlist collection spans
// several providers; a flapping portal must not block fetches from an
// unrelated host.
type Registry struct {
	mu    sync.Mutex
	cfg   Config
	hosts map[string]*breaker
}

// NewRegistry creates a registry applying cfg to every host
func NewRegistry(cfg Config) *Registry {
	if cfg.TripsOn == nil {
		cfg.TripsOn = func(err error) bool {
			return err != nil
		}
	}
	return &Registry{
		cfg:   cfg,
		hosts: make(map[string]*breaker),
	}
}

// Execute runs fn through the circuit of the given host
func (r *Registry) Execute(host string, fn func() error) error {
	b := r.breaker(host)

	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.record(err)

	return err
}

// State returns the current state of a host's circuit. Hosts never
// seen before are closed.
func (r *Registry) State(host string) State {
	return r.breaker(host).currentState()
}

// Reset closes a host's circuit and clears its failure count
func (r *Registry) Reset(host string) {
	b := r.breaker(host)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
}

func (r *Registry) breaker(host string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.hosts[host]
	if !ok {
		b = &breaker{cfg: r.cfg, changedAt: time.Now()}
		r.hosts[host] = b
	}
	return b
}

// breaker tracks one host. It trips after repeated unreachable-host
// failures so a dead provider does not absorb the whole retry budget
// on every fetch.
type breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  uint
	probes    uint
	probeWins uint
	changedAt time.Time
}

// admit decides whether a request may go out
func (b *breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.changedAt) > b.cfg.CoolOff {
			b.setState(StateHalfOpen)
			b.probes++
			return nil
		}
		return ErrOpenState

	case StateHalfOpen:
		if b.probes >= b.cfg.ProbeQuota {
			return ErrProbeLimit
		}
		b.probes++
		return nil

	default:
		return ErrOpenState
	}
}

// record feeds the request outcome back into the state machine
func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.TripsOn(err) {
		b.onFailure()
		return
	}
	b.onSuccess()
}

func (b *breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.probeWins++
		if b.probeWins >= b.cfg.ProbeQuota {
			b.setState(StateClosed)
		}
	}
}

func (b *breaker) onFailure() {
	b.failures++

	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.MaxFailures {
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

func (b *breaker) setState(state State) {
	b.state = state
	b.changedAt = time.Now()
	b.probes = 0
	b.probeWins = 0
	if state != StateOpen {
		b.failures = 0
	}
}

func (b *breaker) currentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
