// Package workpool provides a fixed-size worker pool fed by a bounded queue.
//
// A pool is one stage of the scan pipeline. Tasks are submitted while the
// workers run; Drain closes the queue and blocks until every submitted task has
// finished. That call is the stage's drain barrier: once it returns, no worker
// of the pool is running and all handler side effects are visible.
//
// A stage timeout runs from Start, so it bounds submission and drain together.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrStageTimeout is returned by Submit and Drain when the stage did not
// finish in time.
var ErrStageTimeout = errors.New("stage did not drain before timeout")

// ErrClosed is returned by Submit after Drain has been called.
var ErrClosed = errors.New("pool is drained")

// Handler processes one task. Handlers recover their own per-task failures;
// a returned error is treated as fatal for the whole stage.
type Handler[T any] func(ctx context.Context, task T) error

// Config controls pool sizing.
type Config struct {
	// Name is used in error messages.
	Name string
	// Workers is the number of goroutines (0 = runtime.NumCPU()).
	Workers int
	// QueueDepth bounds pending tasks (0 = Workers).
	QueueDepth int
	// Timeout bounds the whole stage, measured from Start (0 = no limit).
	Timeout time.Duration
}

// Pool runs a Handler over submitted tasks.
type Pool[T any] struct {
	cfg     Config
	queue   chan T
	group   *errgroup.Group
	parent  context.Context
	stage   context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	drained atomic.Bool
	expired atomic.Bool

	started   atomic.Int64
	completed atomic.Int64
}

// Workers returns the default worker count: one per logical CPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Start launches the workers. The pool stops early if ctx is cancelled.
func Start[T any](ctx context.Context, cfg Config, handle Handler[T]) *Pool[T] {
	cfg.Workers = Workers(cfg.Workers)
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = cfg.Workers
	}
	if cfg.Name == "" {
		cfg.Name = "pool"
	}

	parent := ctx
	var (
		stage  context.Context
		cancel context.CancelFunc
	)
	if cfg.Timeout > 0 {
		stage, cancel = context.WithTimeoutCause(ctx, cfg.Timeout, ErrStageTimeout)
	} else {
		stage, cancel = context.WithCancel(ctx)
	}
	g, gctx := errgroup.WithContext(stage)

	p := &Pool[T]{
		cfg:    cfg,
		parent: parent,
		stage:  stage,
		queue:  make(chan T, cfg.QueueDepth),
		group:  g,
		ctx:    gctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			for task := range p.queue {
				// Cancellation is observed between dequeue and task start.
				if err := gctx.Err(); err != nil {
					p.noteExpiry()
					return err
				}
				p.started.Add(1)
				err := handle(gctx, task)
				// A task still running at the deadline means the stage overran.
				p.noteExpiry()
				if err != nil {
					return err
				}
				p.completed.Add(1)
			}
			return nil
		})
	}

	return p
}

// Submit enqueues a task, blocking while the queue is full.
func (p *Pool[T]) Submit(task T) error {
	if p.drained.Load() {
		return ErrClosed
	}
	if err := p.ctx.Err(); err != nil {
		return p.rejected(err)
	}
	select {
	case p.queue <- task:
		return nil
	case <-p.ctx.Done():
		return p.rejected(p.ctx.Err())
	}
}

// timedOut reports whether the stage deadline, not the caller, ended the stage.
func (p *Pool[T]) timedOut() bool {
	return p.cfg.Timeout > 0 && errors.Is(context.Cause(p.stage), ErrStageTimeout)
}

func (p *Pool[T]) noteExpiry() {
	if p.timedOut() {
		p.expired.Store(true)
	}
}

func (p *Pool[T]) rejected(err error) error {
	if p.timedOut() {
		p.expired.Store(true)
		return p.timeoutError()
	}
	return err
}

func (p *Pool[T]) timeoutError() error {
	return fmt.Errorf("%s: %w (%s)", p.cfg.Name, ErrStageTimeout, p.cfg.Timeout)
}

// Drain closes the queue and waits for the workers to finish. A deadline that
// passes after the last task finished is not a timeout.
func (p *Pool[T]) Drain() error {
	if !p.drained.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(p.queue)
	defer p.cancel()

	err := p.group.Wait()
	if p.expired.Load() && p.parent.Err() == nil {
		return p.timeoutError()
	}
	if err == nil {
		err = p.parent.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	return nil
}

// Completed returns the number of tasks whose handler returned nil.
func (p *Pool[T]) Completed() int64 {
	return p.completed.Load()
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return p.cfg.Workers
}
