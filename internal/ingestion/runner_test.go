package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/ingestion/stub"
	"solana-sniper/internal/safety"
	"solana-sniper/internal/storage/memory"
)

type executeCall struct {
	matchID string
	ruleID  string
	ctxErr  error
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []executeCall
	started chan string
	block   chan struct{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{started: make(chan string, 16)}
}

func (f *fakeExecutor) Execute(ctx context.Context, match *domain.Match, rule *domain.Rule) (*execution.Report, error) {
	f.started <- match.ID

	var ctxErr error
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, executeCall{matchID: match.ID, ruleID: rule.ID, ctxErr: ctxErr})
	f.mu.Unlock()
	return &execution.Report{MatchID: match.ID, Successes: 1}, nil
}

func (f *fakeExecutor) Calls() []executeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executeCall(nil), f.calls...)
}

type fakeApprovals struct {
	mu      sync.Mutex
	matches []*domain.Match
}

func (f *fakeApprovals) Submit(_ context.Context, match *domain.Match, _ *domain.Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, match)
}

func (f *fakeApprovals) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matches)
}

func testRule(id string, keywords ...string) *domain.Rule {
	return &domain.Rule{
		ID:             id,
		Name:           id,
		Enabled:        true,
		SymbolKeywords: keywords,
		MaxSupply:      1e12,
		Amount:         0.1,
		SlippagePct:    10,
		Accounts:       []string{"acc1"},
		Pool:           domain.PoolPump,
		MaxDailySpend:  10,
		CreatedAt:      1,
	}
}

func creation(mint, name, symbol string) domain.FeedEvent {
	return domain.NewCreationFeedEvent(&domain.CreationEvent{Mint: mint, Name: name, Symbol: symbol})
}

type harness struct {
	rules     *memory.RuleStore
	executor  *fakeExecutor
	approvals *fakeApprovals
	source    *stub.ChannelSource
	runner    *Runner
}

func newHarness(t *testing.T, opts RunnerOptions, rules ...*domain.Rule) *harness {
	t.Helper()
	h := &harness{
		rules:     memory.NewRuleStore(),
		executor:  newFakeExecutor(),
		approvals: &fakeApprovals{},
		source:    stub.NewChannelSource(),
	}
	for _, r := range rules {
		require.NoError(t, h.rules.Create(context.Background(), r))
	}

	opts.Source = h.source
	opts.Rules = h.rules
	opts.Tracker = safety.NewTracker(time.UTC)
	opts.Executor = h.executor
	if opts.Approvals == nil {
		opts.Approvals = h.approvals
	}
	h.runner = NewRunner(opts)
	return h
}

// start runs the runner in the background and returns its result channel.
func (h *harness) start(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.runner.Run(ctx) }()
	return errCh
}

func waitStarted(t *testing.T, f *fakeExecutor) string {
	t.Helper()
	select {
	case id := <-f.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for execution")
	}
	return ""
}

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for runner to return")
	}
	return nil
}

func TestRunner_DispatchesAcceptedMatches(t *testing.T) {
	h := newHarness(t, RunnerOptions{}, testRule("frogs", "pepe"), testRule("dogs", "doge"))
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)

	calls := h.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "frogs", calls[0].ruleID)
	assert.NoError(t, calls[0].ctxErr)
}

func TestRunner_NoEnabledRulesIsNoop(t *testing.T) {
	disabled := testRule("frogs", "pepe")
	disabled.Enabled = false
	h := newHarness(t, RunnerOptions{}, disabled)
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Empty(t, h.executor.Calls())
}

func TestRunner_MalformedEventDropped(t *testing.T) {
	h := newHarness(t, RunnerOptions{}, testRule("frogs", "pepe"))
	errCh := h.start(context.Background())

	h.source.Push(domain.FeedEvent{Kind: domain.EventKindEnriched, Creation: &domain.CreationEvent{Mint: "mint0"}})
	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Len(t, h.executor.Calls(), 1)
}

func TestRunner_EnrichedDuplicateNotRedispatched(t *testing.T) {
	h := newHarness(t, RunnerOptions{}, testRule("frogs", "pepe"))
	errCh := h.start(context.Background())

	bare := creation("mint1", "Pepe Frog", "PEPE")
	h.source.Push(bare)
	h.source.Push(domain.NewEnrichedFeedEvent(bare.Creation, &domain.EnrichedMetadata{Mint: "mint1"}))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Len(t, h.executor.Calls(), 1)
}

func TestRunner_EnrichedEventCanMatchAfterBareRejection(t *testing.T) {
	rule := testRule("frogs", "pepe")
	rule.RequiredSocials = []string{"@pepefrog"}
	h := newHarness(t, RunnerOptions{}, rule)
	errCh := h.start(context.Background())

	bare := creation("mint1", "Pepe Frog", "PEPE")
	h.source.Push(bare)
	h.source.Push(domain.NewEnrichedFeedEvent(bare.Creation, &domain.EnrichedMetadata{
		Mint:        "mint1",
		SocialLinks: []string{"https://x.com/pepefrog"},
	}))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Len(t, h.executor.Calls(), 1)
}

func TestRunner_ConfirmationGoesToApprovalQueue(t *testing.T) {
	rule := testRule("frogs", "pepe")
	rule.RequireConfirmation = true
	h := newHarness(t, RunnerOptions{}, rule)
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Empty(t, h.executor.Calls())
	assert.Equal(t, 1, h.approvals.Len())
}

func TestRunner_EvaluatesAllRulesConcurrently(t *testing.T) {
	rules := make([]*domain.Rule, 0, 20)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		rules = append(rules, testRule(id, "pepe"))
	}
	h := newHarness(t, RunnerOptions{Workers: 3}, rules...)
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)

	seen := map[string]bool{}
	for _, c := range h.executor.Calls() {
		seen[c.ruleID] = true
	}
	assert.Len(t, seen, 10)
}

func TestRunner_ReservationSkipsWhileInFlight(t *testing.T) {
	h := newHarness(t, RunnerOptions{Locker: NewMemoryLocker()}, testRule("frogs", "pepe"))
	h.executor.block = make(chan struct{})
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	waitStarted(t, h.executor)

	// Same rule, different mint, while mint1 is still executing. The trailing
	// non-matching push returns only after mint2 has been handled.
	h.source.Push(creation("mint2", "Pepe Two", "PEPE2"))
	h.source.Push(creation("mint3", "Doge", "DOGE"))
	close(h.executor.block)
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	calls := h.executor.Calls()
	require.Len(t, calls, 1)
}

func TestRunner_WithoutReservationRaces(t *testing.T) {
	h := newHarness(t, RunnerOptions{}, testRule("frogs", "pepe"))
	h.executor.block = make(chan struct{})
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	waitStarted(t, h.executor)
	h.source.Push(creation("mint2", "Pepe Two", "PEPE2"))
	waitStarted(t, h.executor)
	close(h.executor.block)
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Len(t, h.executor.Calls(), 2)
}

func TestRunner_ShutdownWaitsForInFlight(t *testing.T) {
	h := newHarness(t, RunnerOptions{ShutdownGrace: 2 * time.Second}, testRule("frogs", "pepe"))
	h.executor.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := h.start(ctx)

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	waitStarted(t, h.executor)
	cancel()

	time.Sleep(20 * time.Millisecond)
	close(h.executor.block)

	assert.True(t, errors.Is(waitResult(t, errCh), context.Canceled))
	calls := h.executor.Calls()
	require.Len(t, calls, 1)
	assert.NoError(t, calls[0].ctxErr, "execution finished within the grace period")
}

func TestRunner_ShutdownGraceCancelsExecutions(t *testing.T) {
	h := newHarness(t, RunnerOptions{ShutdownGrace: 20 * time.Millisecond}, testRule("frogs", "pepe"))
	h.executor.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := h.start(ctx)

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	waitStarted(t, h.executor)
	cancel()

	assert.ErrorIs(t, waitResult(t, errCh), context.Canceled)
	calls := h.executor.Calls()
	require.Len(t, calls, 1)
	assert.ErrorIs(t, calls[0].ctxErr, context.Canceled)
}

func TestRunner_DailyLimitUsesSnapshot(t *testing.T) {
	rule := testRule("frogs", "pepe")
	rule.MaxDailySpend = 1
	h := newHarness(t, RunnerOptions{Now: func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }}, rule)
	h.runner.tracker.RecordSuccess(1, time.Millisecond, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	errCh := h.start(context.Background())

	h.source.Push(creation("mint1", "Pepe Frog", "PEPE"))
	h.source.Close()

	assert.ErrorIs(t, waitResult(t, errCh), ErrSourceClosed)
	assert.Empty(t, h.executor.Calls())
}

func TestSeenSet_Bounded(t *testing.T) {
	s := newSeenSet(2)
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"))

	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Contains("a"), "oldest evicted")
	assert.True(t, s.Contains("b"))
	assert.True(t, s.Contains("c"))
}

func TestMemoryLocker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "rule:a", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "rule:a", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// Expired locks can be taken over, and the stale unlock leaves the new holder alone.
	now = now.Add(2 * time.Minute)
	unlock2, err := l.Acquire(ctx, "rule:a", time.Minute)
	require.NoError(t, err)
	unlock()
	_, err = l.Acquire(ctx, "rule:a", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock2()
	unlock2()
	_, err = l.Acquire(ctx, "rule:a", time.Minute)
	assert.NoError(t, err)
}
