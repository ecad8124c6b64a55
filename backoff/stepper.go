// Package backoff implements the host's reconnect schedule: a cyclic step
// list [1s, 3s, 10s], six attempts per step before advancing, wrapping
// back to the first step after the last. It satisfies cenkalti/backoff/v4's
// BackOff interface so the reconnect loop can be driven by that library's
// Retry/Ticker helpers while keeping the stepped (not exponential) shape
// a stepped schedule rather than the usual exponential one.
package backoff

import (
	"sync"
	"time"

	cenkalti "github.com/cenkalti/backoff/v4"
)

// DefaultSteps is the reconnect schedule: each step is retried
// AttemptsPerStep times before the stepper advances to the next, wrapping
// after the last.
var DefaultSteps = []time.Duration{time.Second, 3 * time.Second, 10 * time.Second}

// AttemptsPerStep is how many NextBackOff calls stay on one step before
// advancing.
const AttemptsPerStep = 6

// Stepper is a cyclic, non-exponential BackOff. The zero value is not
// usable; construct with New.
type Stepper struct {
	steps           []time.Duration
	attemptsPerStep int

	mu        sync.Mutex
	stepIdx   int
	attempt   int
	cancelled bool
}

// New builds a Stepper over steps, advancing every attemptsPerStep calls.
func New(steps []time.Duration, attemptsPerStep int) *Stepper {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	if attemptsPerStep <= 0 {
		attemptsPerStep = AttemptsPerStep
	}
	return &Stepper{steps: steps, attemptsPerStep: attemptsPerStep}
}

// NextBackOff implements cenkalti/backoff/v4.BackOff. It never returns Stop
// on its own; callers that want a bounded number of retries wrap this with
// cenkalti.WithMaxRetries or check Cancel() themselves.
func (s *Stepper) NextBackOff() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return cenkalti.Stop
	}

	d := s.steps[s.stepIdx]
	s.attempt++
	if s.attempt >= s.attemptsPerStep {
		s.attempt = 0
		s.stepIdx = (s.stepIdx + 1) % len(s.steps)
	}
	return d
}

// Reset implements cenkalti/backoff/v4.BackOff: returns the stepper to the
// first step, as if freshly constructed (used after a successful connect).
func (s *Stepper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepIdx = 0
	s.attempt = 0
}

// Cancel marks the stepper as cancelled; subsequent NextBackOff calls
// return cenkalti.Stop. This is the cancel handle the reconnect loop needs
// for the reconnect loop.
func (s *Stepper) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

var _ cenkalti.BackOff = (*Stepper)(nil)
