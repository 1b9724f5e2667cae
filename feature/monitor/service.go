package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/digest"
	"integrity-monitor/core/history"
	"integrity-monitor/core/logger"
	"integrity-monitor/core/reconcile"
	"integrity-monitor/core/scan"
	"integrity-monitor/core/utils"
	"integrity-monitor/core/verify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlgorithmMismatch is returned when the stored baseline was built with a
// different digest algorithm than the one configured.
var ErrAlgorithmMismatch = errors.New("baseline digest algorithm does not match configuration")

// Store is a baseline store that can be locked for the duration of a run.
type Store interface {
	baseline.Store
	Lock() error
	Unlock() error
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run *history.Run) error
}

// Mirror copies an accepted baseline file off the host.
type Mirror interface {
	Push(ctx context.Context, path, runID string) (string, error)
}

// Progress receives console output while a run is in flight.
type Progress interface {
	Phase(title string)
	Infof(format string, args ...any)
	Roots(roots []string)
	Findings(findings []verify.Finding)
}

type nopProgress struct{}

func (nopProgress) Phase(string)              {}
func (nopProgress) Infof(string, ...any)      {}
func (nopProgress) Roots([]string)            {}
func (nopProgress) Findings([]verify.Finding) {}

// RunOptions are the per-invocation switches of a run.
type RunOptions struct {
	// Override replaces the baseline even when changes were found.
	Override bool
	// ExtraRoots are walked in addition to the configured roots.
	ExtraRoots []string
	// KeepUnchanged includes unchanged paths in the findings.
	KeepUnchanged bool
}

// Service executes monitoring runs.
type Service struct {
	cfg      Config
	store    Store
	logger   *zap.Logger
	decider  reconcile.Decider
	recorder Recorder
	mirror   Mirror
	progress Progress
	now      func() time.Time
	newID    func() string
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithDecider sets the confirmation source for changed scans.
func WithDecider(d reconcile.Decider) Option {
	return func(s *Service) { s.decider = d }
}

// WithRecorder enables the run history.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMirror enables off-host copies of accepted baselines.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithProgress sets the console output sink.
func WithProgress(p Progress) Option {
	return func(s *Service) { s.progress = p }
}

// NewService creates a new monitoring service.
func NewService(cfg Config, store Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		cfg:      cfg,
		store:    store,
		logger:   log,
		progress: nopProgress{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Algorithm returns the digest algorithm runs use.
func (s *Service) Algorithm() digest.Algorithm {
	return digest.Parse(s.cfg.Algorithm)
}

// Run performs one full check. A returned outcome is always complete; on
// error the outcome is nil and nothing was written to the baseline unless
// the error came from the store itself.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	alg := s.Algorithm()
	out := &Outcome{
		RunID:     s.newID(),
		Host:      hostname(),
		Algorithm: string(alg),
		Baseline:  s.store.Location(),
		Roots:     append(append([]string(nil), s.cfg.Roots...), opts.ExtraRoots...),
		Started:   s.now(),
	}
	log := logger.WithRun(s.logger, out.RunID)

	if !strings.EqualFold(s.cfg.Algorithm, string(alg)) {
		log.Warn("Unknown digest algorithm, using default",
			zap.String("configured", s.cfg.Algorithm),
			zap.String("algorithm", string(alg)),
		)
	}

	if err := s.store.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.store.Unlock(); err != nil {
			log.Warn("Failed to release baseline lock", zap.Error(err))
		}
	}()

	ctrl := reconcile.New(s.store, s.decider, reconcile.Options{
		Override:         opts.Override,
		StrictMembership: s.cfg.StrictMembership,
	}, log)

	err := s.execute(ctx, ctrl, out, opts, log)
	out.Finished = s.now()
	out.Transitions = ctrl.Transitions()
	out.Forced = ctrl.Forced()

	if err != nil {
		out.State = StateFailed
		out.Error = err.Error()
		s.record(ctx, out, log)
		return nil, err
	}

	out.State = ctrl.State()
	if out.State != reconcile.StateCancelled && s.mirror != nil {
		name, err := s.mirror.Push(ctx, s.store.Location(), out.RunID)
		if err != nil {
			log.Warn("Failed to mirror baseline", zap.Error(err))
		}
		out.Mirrored = name
	}
	s.record(ctx, out, log)

	log.Info("Run finished",
		zap.String("state", string(out.State)),
		zap.Int("changes", out.Changes),
		zap.Duration("elapsed", out.Elapsed()),
	)
	return out, nil
}

func (s *Service) execute(ctx context.Context, ctrl *reconcile.Controller, out *Outcome, opts RunOptions, log *zap.Logger) error {
	if err := ctrl.Transition(reconcile.StateScanning); err != nil {
		return err
	}

	scanOpts := scan.Options{
		Workers:      s.cfg.Workers,
		BatchSize:    s.cfg.BatchSize,
		Algorithm:    digest.Algorithm(out.Algorithm),
		BufferSize:   s.cfg.BufferSize,
		Exclude:      s.cfg.Exclude,
		StageTimeout: s.cfg.StageTimeout,
		Logger:       log,
	}

	// A corrupt or incompatible baseline fails the run before any file is read.
	base, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, baseline.ErrNotFound):
		base = nil
	case err != nil:
		return err
	default:
		if err := checkAlgorithm(base, digest.Algorithm(out.Algorithm)); err != nil {
			return err
		}
	}

	s.progress.Phase("adding paths")
	s.progress.Roots(out.Roots)

	s.progress.Phase("creating file list")
	files, discovered, err := scan.Discover(ctx, out.Roots, scanOpts)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	s.progress.Infof("FILES FOUND: %d IN %d %s", len(files), discovered.Roots, utils.Plural(discovered.Roots, "ROOT", "ROOTS"))

	s.progress.Phase("calculating hashes for files")
	records, hashed, err := scan.Hash(ctx, files, scanOpts)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	out.Stats = scan.Stats{
		Roots:      discovered.Roots,
		Discovered: discovered.Discovered,
		Hashed:     hashed.Hashed,
		Skipped:    discovered.Skipped + hashed.Skipped,
		Bytes:      hashed.Bytes,
	}
	snap := baseline.NewSnapshot(records)

	if base == nil {
		s.progress.Infof("BASELINE NOT FOUND. CREATING NEW ONE.")
		_, err := ctrl.Create(ctx, snap)
		return err
	}

	if err := ctrl.Transition(reconcile.StateComparing); err != nil {
		return err
	}
	s.progress.Phase("verifying hashes")
	res, err := verify.Verify(ctx, base, snap, verify.Options{
		Workers:       s.cfg.Workers,
		BatchSize:     s.cfg.BatchSize,
		IgnoreModTime: s.cfg.IgnoreModTime,
		KeepUnchanged: opts.KeepUnchanged,
		StageTimeout:  s.cfg.StageTimeout,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("verification: %w", err)
	}
	out.Tally = res.Tally
	out.Findings = res.Findings
	out.Changes = ctrl.Changes(res.Tally)
	s.progress.Findings(res.Findings)

	if _, err := ctrl.Decide(ctx, res.Tally, snap); err != nil {
		return err
	}
	return nil
}

// checkAlgorithm compares the digest length of the stored baseline with alg.
func checkAlgorithm(base *baseline.Snapshot, alg digest.Algorithm) error {
	records := base.Records()
	if len(records) == 0 {
		return nil
	}
	want := alg.New().Size() * 2
	if got := len(records[0].Digest); got != want {
		return fmt.Errorf("%w: stored digests have %d hex digits, %s produces %d", ErrAlgorithmMismatch, got, alg, want)
	}
	return nil
}

func (s *Service) record(ctx context.Context, out *Outcome, log *zap.Logger) {
	if s.recorder == nil {
		return
	}
	// The audit trail is written even for cancelled or interrupted runs.
	if err := s.recorder.Record(context.WithoutCancel(ctx), out.historyRun()); err != nil {
		log.Warn("Failed to record run history", zap.Error(err))
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
