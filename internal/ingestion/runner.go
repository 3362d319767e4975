// Package ingestion feeds creation events through the matcher and hands
// accepted matches to execution or the approval gate.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/matcher"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/safety"
	"solana-sniper/internal/storage"
)

// ErrSourceClosed is returned by Run when the event source ends.
var ErrSourceClosed = errors.New("event source closed")

// Executor runs an accepted match. Satisfied by *execution.Coordinator.
type Executor interface {
	Execute(ctx context.Context, match *domain.Match, rule *domain.Rule) (*execution.Report, error)
}

// ApprovalQueue holds matches for an operator decision. Satisfied by *approval.Gate.
type ApprovalQueue interface {
	Submit(ctx context.Context, match *domain.Match, rule *domain.Rule)
}

// Runner evaluates every event against all enabled rules.
// Events are handled one at a time; executions run in their own goroutines.
type Runner struct {
	source        EventSource
	rules         storage.RuleStore
	evaluator     *matcher.Evaluator
	tracker       *safety.Tracker
	executor      Executor
	approvals     ApprovalQueue
	locker        Locker
	lockTTL       time.Duration
	workers       int
	seen          *seenSet
	shutdownGrace time.Duration
	now           func() time.Time
	log           logrus.FieldLogger

	inflight sync.WaitGroup
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        EventSource
	Rules         storage.RuleStore
	Evaluator     *matcher.Evaluator // defaults to matcher.NewEvaluator()
	Tracker       *safety.Tracker
	Executor      Executor
	Approvals     ApprovalQueue // required only for rules with RequireConfirmation
	Locker        Locker        // optional; reserves a rule while it executes
	LockTTL       time.Duration // Default: 2m
	Workers       int           // Default: 8 concurrent rule evaluations per event
	SeenCapacity  int           // Default: 10000 remembered match IDs
	ShutdownGrace time.Duration // Default: 30s for in-flight executions
	Now           func() time.Time
	Logger        logrus.FieldLogger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = matcher.NewEvaluator()
	}

	lockTTL := opts.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * time.Minute
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}

	seenCapacity := opts.SeenCapacity
	if seenCapacity <= 0 {
		seenCapacity = 10_000
	}

	shutdownGrace := opts.ShutdownGrace
	if shutdownGrace == 0 {
		shutdownGrace = 30 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &Runner{
		source:        opts.Source,
		rules:         opts.Rules,
		evaluator:     evaluator,
		tracker:       opts.Tracker,
		executor:      opts.Executor,
		approvals:     opts.Approvals,
		locker:        opts.Locker,
		lockTTL:       lockTTL,
		workers:       workers,
		seen:          newSeenSet(seenCapacity),
		shutdownGrace: shutdownGrace,
		now:           now,
		log:           logger.WithField("component", "ingestion"),
	}
}

// Run consumes the source until ctx is cancelled or the source closes.
// In both cases it waits up to the shutdown grace for in-flight executions,
// then cancels them.
func (r *Runner) Run(ctx context.Context) error {
	events, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// Executions outlive ctx so a shutdown does not cut an acquisition in half.
	execCtx, cancelExec := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelExec()

	r.log.WithFields(logrus.Fields{
		"workers":      r.workers,
		"reserve_rule": r.locker != nil,
	}).Info("ingestion runner started")

	for {
		select {
		case <-ctx.Done():
			r.drain(cancelExec)
			r.log.Info("ingestion runner stopped")
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				r.drain(cancelExec)
				r.log.Warn("event source closed")
				return ErrSourceClosed
			}
			r.handleEvent(ctx, execCtx, ev)
		}
	}
}

// drain waits for in-flight executions, cancelling them after the grace period.
func (r *Runner) drain(cancelExec context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(r.shutdownGrace):
		r.log.WithField("grace", r.shutdownGrace).Warn("cancelling in-flight executions")
		cancelExec()
		<-done
	}
}

// handleEvent evaluates one event against every enabled rule.
func (r *Runner) handleEvent(ctx, execCtx context.Context, ev domain.FeedEvent) {
	if err := ev.Validate(); err != nil {
		observability.RecordEventDropped("malformed")
		r.log.WithError(err).Warn("dropping malformed event")
		return
	}
	observability.RecordEventReceived(string(ev.Kind))

	rules, err := r.rules.ListEnabled(ctx)
	if err != nil {
		observability.RecordEventDropped("rule_store")
		r.log.WithError(err).WithField("mint", ev.Creation.Mint).Error("list enabled rules")
		return
	}
	if len(rules) == 0 {
		observability.RecordEventDropped("no_rules")
		return
	}

	now := r.now()
	snap := r.tracker.Snapshot(now)

	outcomes := make([]matcher.Outcome, len(rules))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, rule := range rules {
		g.Go(func() error {
			outcomes[i] = r.evaluator.Evaluate(ev.Creation, rule, ev.Metadata, snap, now)
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range outcomes {
		observability.RecordEvaluation()
		if !out.Accepted() {
			observability.RecordRejection(string(out.Rejection.Reason))
			r.log.WithFields(logrus.Fields{
				"rule_id": rules[i].ID,
				"mint":    ev.Creation.Mint,
				"reason":  out.Rejection.Reason,
			}).Debug(out.Rejection.Detail)
			continue
		}
		r.handleMatch(ctx, execCtx, out.Match, rules[i])
	}
}

// handleMatch routes an accepted match to the approval gate or to execution.
func (r *Runner) handleMatch(ctx, execCtx context.Context, match *domain.Match, rule *domain.Rule) {
	log := r.log.WithFields(logrus.Fields{
		"match_id": match.ID,
		"rule_id":  rule.ID,
		"mint":     match.Event.Mint,
	})

	if r.seen.Contains(match.ID) {
		observability.RecordMatch("duplicate")
		log.Debug("match already handled")
		return
	}

	if rule.RequireConfirmation {
		if r.approvals == nil {
			log.Warn("rule requires confirmation but no approval gate is configured")
			return
		}
		r.seen.Add(match.ID)
		observability.RecordMatch("approval")
		log.WithField("score", match.Score).Info("match queued for approval")
		r.approvals.Submit(ctx, match, rule)
		return
	}

	unlock := func() {}
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, "rule:"+rule.ID, r.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			observability.RecordMatch("reserved")
			log.Info("rule execution in flight, skipping match")
			return
		case err != nil:
			// Reservation is best effort; fall back to the unreserved race.
			log.WithError(err).Warn("rule reservation failed")
		default:
			unlock = release
		}
	}

	r.seen.Add(match.ID)
	observability.RecordMatch("auto")
	log.WithFields(logrus.Fields{
		"score":   match.Score,
		"reasons": match.Reasons,
	}).Info("match accepted")

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer unlock()

		report, err := r.executor.Execute(execCtx, match, rule)
		if report != nil {
			log = log.WithFields(logrus.Fields{
				"outcome":   report.Outcome(),
				"successes": report.Successes,
				"failures":  report.Failures,
				"skipped":   len(report.Skipped),
			})
		}
		if err != nil {
			log.WithError(err).Error("execution finished with errors")
			return
		}
		log.Info("execution finished")
	}()
}
