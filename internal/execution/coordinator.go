// Package execution turns accepted matches into staggered multi-account acquisitions.
package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/safety"
	"solana-sniper/internal/storage"
)

// Configuration errors. Both abort the match before any account is attempted.
var (
	ErrNoEligibleAccounts      = errors.New("no eligible accounts")
	ErrAccountStoreUnavailable = errors.New("account store unavailable")
)

// Report summarizes one match execution.
type Report struct {
	MatchID       string
	Records       []*domain.TransactionRecord
	Skipped       []string // account IDs never dispatched because ctx ended during a stagger wait
	Successes     int
	Failures      int
	PersistErrors []error
}

// Outcome classifies the report for metrics and logs.
func (r *Report) Outcome() string {
	switch {
	case r.Successes > 0 && r.Failures == 0 && len(r.Skipped) == 0:
		return "success"
	case r.Successes > 0:
		return "partial"
	default:
		return "failed"
	}
}

// Coordinator executes matches across a rule's accounts.
type Coordinator struct {
	tracker      *safety.Tracker
	accounts     storage.AccountStore
	transactions storage.TransactionStore
	states       storage.SafetyStateStore
	trader       Trader
	now          func() time.Time
	log          logrus.FieldLogger
}

// CoordinatorOptions contains configuration for creating a Coordinator.
type CoordinatorOptions struct {
	Tracker      *safety.Tracker
	Accounts     storage.AccountStore
	Transactions storage.TransactionStore
	States       storage.SafetyStateStore // optional
	Trader       Trader
	Now          func() time.Time // defaults to time.Now
	Logger       logrus.FieldLogger
}

// NewCoordinator creates an execution coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		tracker:      opts.Tracker,
		accounts:     opts.Accounts,
		transactions: opts.Transactions,
		states:       opts.States,
		trader:       opts.Trader,
		now:          opts.Now,
		log:          opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c
}

// Execute attempts the match's acquisition once per eligible account, in rule order.
// Steps:
//  1. Count the attempt
//  2. Resolve eligible accounts (rule order, active only)
//  3. Dispatch each account, pausing rule.StaggerDelay between dispatches
//  4. Record exactly one transaction per dispatched account
//
// Persistence failures do not stop execution; they are returned joined alongside the report.
func (c *Coordinator) Execute(ctx context.Context, match *domain.Match, rule *domain.Rule) (*Report, error) {
	report := &Report{MatchID: match.ID}
	log := c.log.WithFields(logrus.Fields{
		"match_id": match.ID,
		"rule_id":  rule.ID,
		"mint":     match.Event.Mint,
	})

	// Persist with a context that survives shutdown so audit records are never lost.
	persistCtx := context.WithoutCancel(ctx)

	// 1. Count the attempt
	c.persistState(persistCtx, report, c.tracker.RecordAttempt(c.now()))

	// 2. Resolve eligible accounts
	eligible, err := c.eligibleAccounts(ctx, rule)
	if err != nil {
		c.persistState(persistCtx, report, c.tracker.RecordFailure(c.now()))
		observability.RecordExecution("aborted")
		log.WithError(err).Warn("execution aborted")
		return report, errors.Join(append([]error{err}, report.PersistErrors...)...)
	}

	// 3. Dispatch
	for i, acc := range eligible {
		if i > 0 && rule.StaggerDelay() > 0 {
			if !wait(ctx, rule.StaggerDelay()) {
				for _, rest := range eligible[i:] {
					report.Skipped = append(report.Skipped, rest.ID)
				}
				log.WithField("skipped", len(report.Skipped)).Warn("execution interrupted during stagger")
				break
			}
		}

		rec := c.attempt(ctx, match, rule, acc)

		// 4. Record
		if err := c.transactions.Insert(persistCtx, rec); err != nil {
			report.PersistErrors = append(report.PersistErrors, fmt.Errorf("insert transaction %s: %w", rec.ID, err))
		}
		report.Records = append(report.Records, rec)

		var state domain.SafetyState
		if rec.Success {
			report.Successes++
			state = c.tracker.RecordSuccess(rule.Amount, time.Duration(rec.LatencyMs)*time.Millisecond, c.now())
		} else {
			report.Failures++
			state = c.tracker.RecordFailure(c.now())
		}
		c.persistState(persistCtx, report, state)
		observability.RecordAccountAttempt(rec.Success, float64(rec.LatencyMs)/1000)
		observability.SetDailySpent(state.DailySpent)

		entry := log.WithFields(logrus.Fields{"account": acc.ID, "latency_ms": rec.LatencyMs})
		if rec.Success {
			entry.WithField("signature", *rec.Signature).Info("acquisition confirmed")
		} else {
			entry.WithField("error", *rec.Error).Warn("acquisition failed")
		}
	}

	observability.RecordExecution(report.Outcome())
	log.WithFields(logrus.Fields{
		"successes": report.Successes,
		"failures":  report.Failures,
		"skipped":   len(report.Skipped),
	}).Info("execution finished")

	if len(report.PersistErrors) > 0 {
		return report, errors.Join(report.PersistErrors...)
	}
	return report, nil
}

// eligibleAccounts returns the rule's accounts in rule order, filtered to known active ones.
func (c *Coordinator) eligibleAccounts(ctx context.Context, rule *domain.Rule) ([]*domain.Account, error) {
	all, err := c.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}

	active := make(map[string]*domain.Account, len(all))
	for _, a := range all {
		if a.Active {
			active[a.ID] = a
		}
	}

	var eligible []*domain.Account
	seen := make(map[string]struct{}, len(rule.Accounts))
	for _, id := range rule.Accounts {
		a, ok := active[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		eligible = append(eligible, a)
	}

	if len(eligible) == 0 {
		return nil, ErrNoEligibleAccounts
	}
	return eligible, nil
}

// attempt dispatches one acquisition and builds its record. Never retried.
func (c *Coordinator) attempt(ctx context.Context, match *domain.Match, rule *domain.Rule, acc *domain.Account) *domain.TransactionRecord {
	dispatched := c.now()
	res, err := c.trader.Acquire(ctx, AcquireRequest{
		Account:     acc,
		Mint:        match.Event.Mint,
		Amount:      rule.Amount,
		SlippagePct: rule.SlippagePct,
		PriorityFee: rule.MaxFee,
		Pool:        rule.Pool,
	})
	latency := c.now().Sub(dispatched)

	rec := &domain.TransactionRecord{
		ID:        idhash.ComputeTransactionID(match.ID, acc.ID),
		MatchID:   match.ID,
		RuleID:    rule.ID,
		Mint:      match.Event.Mint,
		Name:      match.Event.Name,
		Symbol:    match.Event.Symbol,
		Amount:    rule.Amount,
		Slippage:  rule.SlippagePct,
		Account:   acc.ID,
		LatencyMs: latency.Milliseconds(),
		Timestamp: dispatched.UnixMilli(),
	}

	switch {
	case err != nil:
		msg := err.Error()
		rec.Action = domain.ActionFailed
		rec.Error = &msg
	case res == nil || !res.Success:
		msg := "acquisition rejected"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		rec.Action = domain.ActionFailed
		rec.Error = &msg
	default:
		sig := res.Signature
		rec.Action = domain.ActionAcquire
		rec.Success = true
		rec.Signature = &sig
		rec.Price = res.Price
		rec.Fee = res.Fee
	}
	return rec
}

func (c *Coordinator) persistState(ctx context.Context, report *Report, state domain.SafetyState) {
	if c.states == nil {
		return
	}
	if err := c.states.Save(ctx, &state); err != nil {
		report.PersistErrors = append(report.PersistErrors, fmt.Errorf("save safety state: %w", err))
	}
}

// wait pauses for d. Returns false if ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
