// Package approval holds matches that require an operator decision before execution.
package approval

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/observability"
)

// DefaultCapacity is the number of pending matches kept before the oldest is evicted.
const DefaultCapacity = 50

// ErrMatchNotFound is returned for unknown, already decided or evicted match IDs.
var ErrMatchNotFound = errors.New("pending match not found")

// ErrGateClosed is returned by Dispatch once Shutdown has begun.
var ErrGateClosed = errors.New("approval gate closed")

// Pending is a match waiting for a decision, together with the rule it matched.
type Pending struct {
	Match       *domain.Match `json:"match"`
	Rule        *domain.Rule  `json:"rule"`
	SubmittedAt int64         `json:"submitted_at"` // ms
}

// Decision is an operator verdict received from an external UI.
type Decision struct {
	MatchID string `json:"match_id"`
	Approve bool   `json:"approve"`
}

// Executor runs an approved match. Satisfied by *execution.Coordinator.
type Executor interface {
	Execute(ctx context.Context, match *domain.Match, rule *domain.Rule) (*execution.Report, error)
}

// Notifier is told about every newly pending match.
type Notifier interface {
	NotifyPending(ctx context.Context, p Pending) error
}

// LogNotifier announces pending matches in the log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

// NotifyPending implements Notifier.
func (n LogNotifier) NotifyPending(_ context.Context, p Pending) error {
	n.Log.WithFields(logrus.Fields{
		"match_id": p.Match.ID,
		"rule_id":  p.Rule.ID,
		"mint":     p.Match.Event.Mint,
		"symbol":   p.Match.Event.Symbol,
		"score":    p.Match.Score,
	}).Info("match awaiting approval")
	return nil
}

// Gate is the manual-approval queue. Approved matches dispatched from the
// decision bus or the API execute in the background, so a slow acquisition
// never holds up the next decision.
type Gate struct {
	mu       sync.Mutex
	ring     *Ring[Pending]
	closed   bool
	inflight sync.WaitGroup

	execCtx    context.Context
	cancelExec context.CancelFunc

	executor      Executor
	notifier      Notifier
	shutdownGrace time.Duration
	now           func() time.Time
	log           logrus.FieldLogger
}

// GateOptions contains configuration for creating a Gate.
type GateOptions struct {
	Capacity      int // defaults to DefaultCapacity
	Executor      Executor
	Notifier      Notifier      // optional
	ShutdownGrace time.Duration // Default: 30s for dispatched executions
	Now           func() time.Time
	Logger        logrus.FieldLogger
}

// NewGate creates an approval gate.
func NewGate(opts GateOptions) *Gate {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	execCtx, cancelExec := context.WithCancel(context.Background())
	return &Gate{
		ring:          NewRing[Pending](opts.Capacity),
		execCtx:       execCtx,
		cancelExec:    cancelExec,
		executor:      opts.Executor,
		notifier:      opts.Notifier,
		shutdownGrace: opts.ShutdownGrace,
		now:           opts.Now,
		log:           opts.Logger,
	}
}

// Submit queues a match for a decision and notifies the operator.
// A notification failure is logged; the match stays queued.
func (g *Gate) Submit(ctx context.Context, match *domain.Match, rule *domain.Rule) {
	p := Pending{Match: match, Rule: rule.Clone(), SubmittedAt: g.now().UnixMilli()}

	g.mu.Lock()
	evicted, full := g.ring.Push(p)
	size := g.ring.Len()
	g.mu.Unlock()

	observability.SetPendingApprovals(size)
	if full {
		g.log.WithFields(logrus.Fields{
			"match_id": evicted.Match.ID,
			"rule_id":  evicted.Rule.ID,
		}).Warn("pending match evicted without decision")
	}

	if g.notifier != nil {
		if err := g.notifier.NotifyPending(ctx, p); err != nil {
			g.log.WithError(err).WithField("match_id", match.ID).Warn("notify pending match failed")
		}
	}
}

// Pending returns the queued matches, oldest first.
func (g *Gate) Pending() []Pending {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ring.Items()
}

// Approve removes the match and executes it exactly as an unattended match,
// blocking until the execution finishes.
func (g *Gate) Approve(ctx context.Context, matchID string) (*execution.Report, error) {
	p, err := g.take(matchID)
	if err != nil {
		return nil, err
	}

	g.log.WithField("match_id", matchID).Info("match approved")
	return g.executor.Execute(ctx, p.Match, p.Rule)
}

// Dispatch removes the match and starts its execution in the background.
// It returns once the match is claimed; the outcome lands in the transaction
// log under the match ID.
func (g *Gate) Dispatch(matchID string) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrGateClosed
	}
	p, ok := g.removeLocked(matchID)
	if !ok {
		g.mu.Unlock()
		return ErrMatchNotFound
	}
	// Registered under the lock so Shutdown never waits on a set that is still growing.
	g.inflight.Add(1)
	g.mu.Unlock()

	log := g.log.WithField("match_id", matchID)
	log.Info("match approved")

	go func() {
		defer g.inflight.Done()
		report, err := g.executor.Execute(g.execCtx, p.Match, p.Rule)
		entry := log
		if report != nil {
			entry = log.WithFields(logrus.Fields{
				"successes": report.Successes,
				"failures":  report.Failures,
			})
		}
		if err != nil {
			entry.WithError(err).Warn("approved match did not execute cleanly")
			return
		}
		entry.Info("approved match executed")
	}()
	return nil
}

// Shutdown stops accepting dispatches and waits for in-flight executions,
// cancelling them once the grace period elapses. Safe to call more than once.
func (g *Gate) Shutdown() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(g.shutdownGrace):
		g.log.WithField("grace", g.shutdownGrace).Warn("cancelling approved executions")
		g.cancelExec()
		<-done
	}
	g.cancelExec()
}

// Reject removes the match. Nothing is recorded.
func (g *Gate) Reject(matchID string) error {
	if _, err := g.take(matchID); err != nil {
		return err
	}
	g.log.WithField("match_id", matchID).Info("match rejected")
	return nil
}

// Run applies decisions from an external bus until ctx ends or decisions
// closes, then shuts the gate down. Approvals are dispatched, so a reject
// queued behind a slow execution is applied immediately.
func (g *Gate) Run(ctx context.Context, decisions <-chan Decision) error {
	defer g.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-decisions:
			if !ok {
				return nil
			}
			g.apply(d)
		}
	}
}

func (g *Gate) apply(d Decision) {
	log := g.log.WithField("match_id", d.MatchID)
	if !d.Approve {
		if err := g.Reject(d.MatchID); err != nil {
			log.WithError(err).Warn("reject decision ignored")
		}
		return
	}
	if err := g.Dispatch(d.MatchID); err != nil {
		log.WithError(err).Warn("approve decision ignored")
	}
}

// take atomically removes a pending match so approve and reject cannot both win.
func (g *Gate) take(matchID string) (Pending, error) {
	g.mu.Lock()
	p, ok := g.removeLocked(matchID)
	g.mu.Unlock()

	if !ok {
		return Pending{}, ErrMatchNotFound
	}
	return p, nil
}

func (g *Gate) removeLocked(matchID string) (Pending, bool) {
	p, ok := g.ring.Remove(func(p Pending) bool { return p.Match.ID == matchID })
	if ok {
		observability.SetPendingApprovals(g.ring.Len())
	}
	return p, ok
}
