package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
)

// State is a circuit breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

func (s State) String() string { return string(s) }

const (
	eventTrip    statekit.EventType = "TRIP"
	eventProbe   statekit.EventType = "PROBE"
	eventRecover statekit.EventType = "RECOVER"
	eventReset   statekit.EventType = "RESET"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// Name identifies the guarded resource in errors and logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes that
	// close it again.
	SuccessThreshold int

	// Cooldown is how long the breaker stays open after the last failure.
	Cooldown time.Duration

	// IsFailure decides whether an error counts against the breaker. Errors
	// it rejects count as neither success nor failure. Defaults to every
	// non-nil error.
	IsFailure func(error) bool

	// OnStateChange is called after each transition, outside the lock.
	OnStateChange func(from, to State)

	// Now overrides the clock.
	Now func() time.Time
}

// DefaultBreakerConfig returns thresholds 5 and 2 with a 60s cooldown.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "database",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         60 * time.Second,
	}
}

// Counts is a snapshot of breaker bookkeeping.
type Counts struct {
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
}

// breakerData is the statechart context. Actions mutate it in place.
type breakerData struct {
	failures    int
	successes   int
	lastFailure time.Time
}

// CircuitBreaker stops calling a failing dependency for a cooldown period,
// then lets a single probe through at a time until it has seen enough
// consecutive successes. Callers arriving while a probe is in flight wait
// for its outcome.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	interp    *statekit.Interpreter[*breakerData]
	data      *breakerData
	probing   bool
	probeDone chan struct{}
}

// NewCircuitBreaker builds a breaker in the CLOSED state.
func NewCircuitBreaker(cfg BreakerConfig) (*CircuitBreaker, error) {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	machine, err := newBreakerMachine()
	if err != nil {
		return nil, fmt.Errorf("build breaker statechart: %w", err)
	}

	data := &breakerData{}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **breakerData) {
		*c = data
	})
	interp.Start()

	return &CircuitBreaker{cfg: cfg, interp: interp, data: data}, nil
}

func newBreakerMachine() (*statekit.MachineConfig[*breakerData], error) {
	closed := statekit.StateID(StateClosed)
	open := statekit.StateID(StateOpen)
	halfOpen := statekit.StateID(StateHalfOpen)

	return statekit.NewMachine[*breakerData]("circuit-breaker").
		WithInitial(closed).
		WithContext(&breakerData{}).
		WithAction("recordTrip", recordTrip).
		WithAction("startProbing", startProbing).
		WithAction("resetCounts", resetCounts).
		State(closed).
			On(eventTrip).Target(open).Do("recordTrip").
			Done().
		State(open).
			On(eventProbe).Target(halfOpen).Do("startProbing").
			On(eventReset).Target(closed).Do("resetCounts").
			Done().
		State(halfOpen).
			On(eventRecover).Target(closed).Do("resetCounts").
			On(eventTrip).Target(open).Do("recordTrip").
			On(eventReset).Target(closed).Do("resetCounts").
			Done().
		Build()
}

func recordTrip(c **breakerData, ev statekit.Event) {
	if at, ok := ev.Payload.(time.Time); ok {
		(*c).lastFailure = at
	}
	(*c).successes = 0
}

func startProbing(c **breakerData, _ statekit.Event) {
	(*c).successes = 0
}

func resetCounts(c **breakerData, _ statekit.Event) {
	(*c).failures = 0
	(*c).successes = 0
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state()
}

func (cb *CircuitBreaker) state() State {
	return State(cb.interp.State().Value)
}

// Counts returns a snapshot of the counters.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Counts{
		State:       cb.state(),
		Failures:    cb.data.failures,
		Successes:   cb.data.successes,
		LastFailure: cb.data.lastFailure,
	}
}

// Reset forces the breaker back to CLOSED with zeroed counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state()
	if from != StateClosed {
		cb.interp.Send(statekit.Event{Type: eventReset})
	}
	cb.data.failures, cb.data.successes = 0, 0
	cb.endProbe()
	cb.mu.Unlock()
	cb.notify(from, StateClosed)
}

// startProbe and endProbe must be called with mu held.
func (cb *CircuitBreaker) startProbe() {
	cb.probing = true
	cb.probeDone = make(chan struct{})
}

func (cb *CircuitBreaker) endProbe() {
	if !cb.probing {
		return
	}
	cb.probing = false
	close(cb.probeDone)
}

// admit decides whether a call may run. It reports whether the call is the
// half-open probe. While a probe is in flight other callers block until it
// settles and then try again, so they either become the next probe, run
// against a closed breaker or are rejected by a reopened one.
func (cb *CircuitBreaker) admit(ctx context.Context) (probe bool, err error) {
	for {
		cb.mu.Lock()
		from := cb.state()
		switch from {
		case StateClosed:
			cb.mu.Unlock()
			return false, nil
		case StateOpen:
			if cb.cfg.Now().Sub(cb.data.lastFailure) < cb.cfg.Cooldown {
				cb.mu.Unlock()
				return false, fault.Unavailable(cb.cfg.Name)
			}
			cb.interp.Send(statekit.Event{Type: eventProbe})
			cb.startProbe()
			cb.mu.Unlock()
			cb.notify(from, StateHalfOpen)
			return true, nil
		}

		if !cb.probing {
			cb.startProbe()
			cb.mu.Unlock()
			return true, nil
		}
		settled := cb.probeDone
		cb.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

type callOutcome int

const (
	outcomeSuccess callOutcome = iota
	outcomeFailure
	outcomeIgnored
)

func (cb *CircuitBreaker) classify(err error) callOutcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case cb.cfg.IsFailure(err):
		return outcomeFailure
	default:
		return outcomeIgnored
	}
}

// record folds the outcome of an admitted call into the counters. Errors
// that IsFailure rejects leave counters and state untouched.
func (cb *CircuitBreaker) record(probe bool, err error) {
	result := cb.classify(err)

	cb.mu.Lock()
	if probe {
		cb.endProbe()
	}
	if result == outcomeIgnored {
		cb.mu.Unlock()
		return
	}
	failed := result == outcomeFailure
	from := cb.state()
	now := cb.cfg.Now()
	switch from {
	case StateClosed:
		if !failed {
			cb.data.failures = 0
			break
		}
		cb.data.failures++
		if cb.data.failures >= cb.cfg.FailureThreshold {
			cb.interp.Send(statekit.Event{Type: eventTrip, Payload: now})
		}
	case StateHalfOpen:
		if failed {
			cb.data.failures++
			cb.interp.Send(statekit.Event{Type: eventTrip, Payload: now})
			break
		}
		cb.data.successes++
		if cb.data.successes >= cb.cfg.SuccessThreshold {
			cb.interp.Send(statekit.Event{Type: eventRecover})
		}
	case StateOpen:
		// A straggler admitted before the breaker opened.
		if failed {
			cb.data.failures++
			cb.data.lastFailure = now
		}
	}
	to := cb.state()
	cb.mu.Unlock()

	if to != from {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to || cb.cfg.OnStateChange == nil {
		return
	}
	cb.cfg.OnStateChange(from, to)
}

// Execute runs op through cb. A rejected call returns a non-retryable
// RATE_LIMIT_ERROR and op is not invoked. A call that gives up waiting for a
// half-open probe returns the context error.
func Execute[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	probe, err := cb.admit(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := op(ctx)
	cb.record(probe, err)
	return v, err
}
