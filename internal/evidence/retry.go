// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted marks a lookup that failed every retry attempt. Callers
// record the tag's count as unknown and carry on; exhaustion never
// aborts a run.
var ErrExhausted = errors.New("retries exhausted")

// State is a retry lifecycle state. A lookup moves
// Pending → Attempting(n) → Succeeded | Failed | Exhausted, so timeout
// and cancellation are ordinary transitions instead of inline control
// flow.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateSucceeded
	StateFailed
	StateExhausted
)

// String returns the state name for diagnostics.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Machine tracks one lookup's retry lifecycle. maxRetries counts
// retries after the first attempt: maxRetries 3 allows 4 attempts.
type Machine struct {
	state   State
	attempt int
	max     int
}

// NewMachine returns a Machine in the Pending state.
func NewMachine(maxRetries int) *Machine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Machine{state: StatePending, max: maxRetries}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Attempt returns the number of attempts started.
func (m *Machine) Attempt() int { return m.attempt }

// Begin starts the next attempt: Pending → Attempting(n+1).
func (m *Machine) Begin() {
	m.attempt++
	m.state = StateAttempting
}

// Succeed marks the current attempt as successful.
func (m *Machine) Succeed() {
	m.state = StateSucceeded
}

// Cancel marks the lookup as failed without further retries, used for
// context cancellation and other non-retryable conditions.
func (m *Machine) Cancel() {
	m.state = StateFailed
}

// Retry records a failed attempt. It returns true and moves back to
// Pending when another attempt is allowed; otherwise it moves to
// Exhausted and returns false.
func (m *Machine) Retry() bool {
	if m.attempt > m.max {
		m.state = StateExhausted
		return false
	}
	m.state = StatePending
	return true
}

// Done reports whether the machine reached a terminal state.
func (m *Machine) Done() bool {
	switch m.state {
	case StateSucceeded, StateFailed, StateExhausted:
		return true
	}
	return false
}

// Backoff returns the exponential delay before the next attempt:
// base, 2*base, 4*base, ...
func (m *Machine) Backoff(base time.Duration) time.Duration {
	d := base
	for i := 1; i < m.attempt; i++ {
		d *= 2
	}
	return d
}

// Retrier runs an operation through a retry Machine with ctx-aware
// backoff waits.
type Retrier struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff interval; it doubles per attempt.
	BaseDelay time.Duration
}

// Do runs op until it succeeds, the context is cancelled, or retries
// are exhausted. Exhaustion is reported as ErrExhausted wrapping the
// last attempt's error.
func (r Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	m := NewMachine(r.MaxRetries)
	for {
		m.Begin()
		err := op(ctx)
		if err == nil {
			m.Succeed()
			return nil
		}
		if ctx.Err() != nil {
			m.Cancel()
			return ctx.Err()
		}
		if !m.Retry() {
			return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, m.Attempt(), err)
		}
		select {
		case <-ctx.Done():
			m.Cancel()
			return ctx.Err()
		case <-time.After(m.Backoff(r.BaseDelay)):
		}
	}
}
