// Package resilience provides retries, circuit breaking and error
// classification for calls to external services.
package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout passes.
	StateOpen
	// StateHalfOpen lets probe calls through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned for calls rejected by an open breaker.
var ErrOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration

	// Probes successful half-open calls close the breaker again.
	Probes int

	// Counts decides which errors count as failures. Defaults to any error.
	Counts func(err error) bool
}

// DefaultBreakerConfig returns the breaker settings used for fallbacks.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		Probes:           1,
	}
}

// Breaker is a circuit breaker guarding one external service.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	probesOK    int
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	d := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = d.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = d.ResetTimeout
	}
	if cfg.Probes <= 0 {
		cfg.Probes = d.Probes
	}
	if cfg.Counts == nil {
		cfg.Counts = func(err error) bool { return err != nil }
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Call runs fn unless the breaker is open.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := CallVal(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// CallVal is Call for functions that return a value.
func CallVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the current state, reporting an expired open breaker as
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveTo(StateClosed)
	b.failures = 0
	b.probesOK = 0
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.moveTo(StateHalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "resilience: %s", b.name)
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Counts(err) {
		switch b.state {
		case StateHalfOpen:
			b.probesOK++
			if b.probesOK >= b.cfg.Probes {
				b.moveTo(StateClosed)
				b.failures = 0
				b.probesOK = 0
			}
		case StateClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.moveTo(StateOpen)
		}
	case StateHalfOpen:
		b.moveTo(StateOpen)
		b.probesOK = 0
	}
}

func (b *Breaker) moveTo(to State) {
	if b.state == to {
		return
	}
	zap.L().Info("circuit breaker state change",
		zap.String("service", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

// Breakers hands out one Breaker per service name.
type Breakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakers creates a registry whose breakers share cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for service, creating it on first use.
func (r *Breakers) For(service string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[service]
	if !ok {
		b = NewBreaker(service, r.cfg)
		r.breakers[service] = b
	}
	return b
}

// Snapshot returns each known service with its state, sorted by name.
func (r *Breakers) Snapshot() []ServiceState {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	out := make([]ServiceState, 0, len(names))
	for _, name := range names {
		out = append(out, ServiceState{Service: name, State: r.For(name).State().String()})
	}
	return out
}

// ServiceState pairs a service with its breaker state.
type ServiceState struct {
	Service string `json:"service"`
	State   string `json:"state"`
}
