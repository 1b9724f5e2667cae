package reconcile

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/verify"

	"go.uber.org/zap"
)

// Controller drives a run through its states and owns the baseline decision.
type Controller struct {
	store   baseline.Store
	decider Decider
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	state       State
	transitions []Transition
	forced      bool
}

// New creates a Controller in the IDLE state. A nil decider declines.
func New(store baseline.Store, decider Decider, opts Options, logger *zap.Logger) *Controller {
	if decider == nil {
		decider = Decline
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:   store,
		decider: decider,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		state:   StateIdle,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transitions returns a copy of the recorded state changes.
func (c *Controller) Transitions() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transitions)
}

// Forced reports whether the baseline was replaced by override despite changes.
func (c *Controller) Forced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forced
}

// Transition moves the controller to next if the move is legal.
func (c *Controller) Transition(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(allowed[c.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
	}
	c.transitions = append(c.transitions, Transition{From: c.state, To: next, At: c.now()})
	c.logger.Debug("Run state changed", zap.String("from", string(c.state)), zap.String("to", string(next)))
	c.state = next
	return nil
}

// Create stores scan as the first baseline. The controller must be SCANNING.
func (c *Controller) Create(ctx context.Context, scan *baseline.Snapshot) (State, error) {
	if err := c.store.Replace(ctx, scan); err != nil {
		return c.State(), fmt.Errorf("create baseline: %w", err)
	}
	if err := c.Transition(StateCreated); err != nil {
		return c.State(), err
	}
	c.logger.Info("Baseline created",
		zap.String("location", c.store.Location()),
		zap.Int("files", scan.Len()),
	)
	return StateCreated, nil
}

// Changes returns the number of changes that count towards the decision.
func (c *Controller) Changes(tally verify.Tally) int {
	return tally.Changes(c.opts.StrictMembership)
}

// Decide applies the decision rules to a verified run and, where they allow
// it, replaces the baseline with scan. The controller must be COMPARING.
func (c *Controller) Decide(ctx context.Context, tally verify.Tally, scan *baseline.Snapshot) (State, error) {
	if err := c.Transition(StateDeciding); err != nil {
		return c.State(), err
	}

	changes := c.Changes(tally)
	switch {
	case changes == 0:
		return c.replace(ctx, scan, StateUnchanged)

	case c.opts.Override:
		c.mu.Lock()
		c.forced = true
		c.mu.Unlock()
		c.logger.Warn("Forced baseline override", zap.Int("changes", changes))
		return c.replace(ctx, scan, StateReplaced)
	}

	ok, err := c.decider.Confirm(ctx, tally)
	if err != nil {
		return c.State(), fmt.Errorf("confirm baseline replacement: %w", err)
	}
	if !ok {
		if err := c.Transition(StateCancelled); err != nil {
			return c.State(), err
		}
		c.logger.Info("Baseline replacement declined", zap.Int("changes", changes))
		return StateCancelled, nil
	}
	return c.replace(ctx, scan, StateReplaced)
}

func (c *Controller) replace(ctx context.Context, scan *baseline.Snapshot, next State) (State, error) {
	if err := c.store.Replace(ctx, scan); err != nil {
		return c.State(), fmt.Errorf("replace baseline: %w", err)
	}
	if err := c.Transition(next); err != nil {
		return c.State(), err
	}
	c.logger.Info("Baseline replaced",
		zap.String("location", c.store.Location()),
		zap.Int("files", scan.Len()),
		zap.String("state", string(next)),
	)
	return next, nil
}
