package reconcile

import (
	"context"
	"errors"
	"time"

	"integrity-monitor/core/verify"
)

// State is a step of a monitoring run.
type State string

const (
	StateIdle      State = "IDLE"
	StateScanning  State = "SCANNING"
	StateComparing State = "COMPARING"
	StateDeciding  State = "DECIDING"
	StateReplaced  State = "REPLACED"
	StateUnchanged State = "UNCHANGED"
	StateCancelled State = "CANCELLED"
	StateCreated   State = "CREATED"
)

// Terminal reports whether no further transition may follow s.
func (s State) Terminal() bool {
	switch s {
	case StateReplaced, StateUnchanged, StateCancelled, StateCreated:
		return true
	}
	return false
}

// allowed lists the legal successors of each state.
var allowed = map[State][]State{
	StateIdle:      {StateScanning},
	StateScanning:  {StateComparing, StateCreated},
	StateComparing: {StateDeciding},
	StateDeciding:  {StateReplaced, StateUnchanged, StateCancelled},
}

// ErrInvalidTransition is returned when a state change skips or reverses a step.
var ErrInvalidTransition = errors.New("invalid state transition")

// Transition records one state change.
type Transition struct {
	From State     `json:"from" yaml:"from"`
	To   State     `json:"to" yaml:"to"`
	At   time.Time `json:"at" yaml:"at"`
}

// Decider confirms whether a changed scan may become the new baseline.
type Decider interface {
	Confirm(ctx context.Context, tally verify.Tally) (bool, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, tally verify.Tally) (bool, error)

// Confirm calls f.
func (f DeciderFunc) Confirm(ctx context.Context, tally verify.Tally) (bool, error) {
	return f(ctx, tally)
}

// Decline is a Decider that always refuses.
var Decline = DeciderFunc(func(context.Context, verify.Tally) (bool, error) {
	return false, nil
})

// Options tunes the decision rules.
type Options struct {
	// Override replaces the baseline even when changes were found.
	Override bool
	// StrictMembership counts added and removed paths as changes.
	StrictMembership bool
}
