package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// CircuitBreaker stops calling a failing dependency once more than
// maxFailures errors land inside window, and lets a single trial call through
// after timeout.
type CircuitBreaker struct {
	name            string
	maxFailures     int
	window          time.Duration
	timeout         time.Duration
	failures        []time.Time
	lastFailureTime time.Time
	state           State
	probing         bool
	log             logrus.FieldLogger
	now             func() time.Time
	mu              sync.Mutex
}

func New(name string, maxFailures int, timeout time.Duration, log logrus.FieldLogger) *CircuitBreaker {
	return NewWithWindow(name, maxFailures, timeout, 60*time.Second, log)
}

func NewWithWindow(name string, maxFailures int, timeout, window time.Duration, log logrus.FieldLogger) *CircuitBreaker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
		log:         log,
		now:         time.Now,
	}
}

// Do runs fn unless the breaker is open, in which case it returns ErrOpen
// without calling fn. fn runs without the lock held.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.timeout {
			return ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.failures = cb.failures[:0]
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			return ErrOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.probing = false
	if err != nil {
		cb.lastFailureTime = now
		cb.failures = append(cb.failures, now)
		cb.cleanOldFailures(now)
		if len(cb.failures) > cb.maxFailures || cb.state == StateHalfOpen {
			cb.setState(StateOpen)
		}
		return
	}

	cb.cleanOldFailures(now)
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.failures = cb.failures[:0]
	}
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.log.WithFields(logrus.Fields{"breaker": cb.name, "from": cb.state.String(), "to": s.String()}).
		Warn("circuit breaker state changed")
	cb.state = s
}

func (cb *CircuitBreaker) cleanOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	cb.failures = cb.failures[i:]
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Group hands out one breaker per key, so a failing dependency does not trip
// calls to healthy ones.
type Group struct {
	name        string
	maxFailures int
	timeout     time.Duration
	log         logrus.FieldLogger
	breakers    map[string]*CircuitBreaker
	mu          sync.Mutex
}

func NewGroup(name string, maxFailures int, timeout time.Duration, log logrus.FieldLogger) *Group {
	return &Group{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		log:         log,
		breakers:    make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (g *Group) Get(key string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[key]
	if !ok {
		cb = New(g.name+":"+key, g.maxFailures, g.timeout, g.log)
		g.breakers[key] = cb
	}
	return cb
}
