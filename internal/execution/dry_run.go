package execution

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DryRunTrader accepts every acquisition without contacting a venue.
// Used for paper trading; records and safety counters behave as if live.
type DryRunTrader struct {
	log logrus.FieldLogger
}

var _ Trader = (*DryRunTrader)(nil)

// NewDryRunTrader creates a DryRunTrader.
func NewDryRunTrader(log logrus.FieldLogger) *DryRunTrader {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &DryRunTrader{log: log.WithField("component", "dry_run")}
}

// Acquire implements Trader.
func (t *DryRunTrader) Acquire(ctx context.Context, req AcquireRequest) (*AcquireResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := "dryrun-" + uuid.NewString()
	t.log.WithFields(logrus.Fields{
		"account":  req.Account.ID,
		"mint":     req.Mint,
		"amount":   req.Amount,
		"slippage": req.SlippagePct,
		"pool":     req.Pool,
	}).Info("dry run acquisition")

	return &AcquireResult{Success: true, Signature: sig, Fee: req.PriorityFee}, nil
}
