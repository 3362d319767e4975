package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrFillNotFound is returned when the transaction never became visible
// or does not credit the owner with the mint.
var ErrFillNotFound = errors.New("fill not found")

// ErrTransactionFailed is returned when the transaction landed with an error.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// Fill is the settled outcome of an acquisition transaction.
type Fill struct {
	Fee      decimal.Decimal // SOL
	SOLSpent decimal.Decimal // SOL paid for tokens, fee excluded
	Tokens   decimal.Decimal // UI amount received
	Price    decimal.Decimal // SOL per token
}

// FillResolver derives fills from confirmed transactions.
type FillResolver struct {
	client       RPCClient
	pollInterval time.Duration
	timeout      time.Duration
}

// NewFillResolver creates a resolver that polls until the transaction is
// visible or timeout elapses.
func NewFillResolver(client RPCClient, pollInterval, timeout time.Duration) *FillResolver {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &FillResolver{client: client, pollInterval: pollInterval, timeout: timeout}
}

// LookupFill waits for signature to confirm and computes the fill for owner.
func (r *FillResolver) LookupFill(ctx context.Context, signature, owner, mint string) (*Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		tx, err := r.client.GetTransaction(ctx, signature)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("get transaction %s: %w", signature, err)
		}
		if tx != nil {
			return ComputeFill(tx, owner, mint)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s not visible: %v", ErrFillNotFound, signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ComputeFill derives the fee, SOL spent and tokens received by owner for mint.
func ComputeFill(tx *Transaction, owner, mint string) (*Fill, error) {
	if tx.Meta == nil || tx.Message == nil {
		return nil, fmt.Errorf("%w: %s has no meta", ErrFillNotFound, tx.Signature)
	}
	if tx.Meta.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, tx.Meta.Err)
	}

	idx := -1
	for i, key := range tx.Message.AccountKeys {
		if key == owner {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return nil, fmt.Errorf("%w: owner %s not in %s", ErrFillNotFound, owner, tx.Signature)
	}

	fee := lamportsToSOL(tx.Meta.Fee)
	delta := decimal.NewFromInt(int64(tx.Meta.PreBalances[idx])).
		Sub(decimal.NewFromInt(int64(tx.Meta.PostBalances[idx]))).
		Shift(-9)
	spent := delta.Sub(fee)
	if spent.IsNegative() {
		spent = decimal.Zero
	}

	pre, err := tokenAmount(tx.Meta.PreTokenBalances, owner, mint)
	if err != nil {
		return nil, err
	}
	post, err := tokenAmount(tx.Meta.PostTokenBalances, owner, mint)
	if err != nil {
		return nil, err
	}
	received := post.Sub(pre)
	if !received.IsPositive() {
		return nil, fmt.Errorf("%w: no %s credited to %s", ErrFillNotFound, mint, owner)
	}

	return &Fill{
		Fee:      fee,
		SOLSpent: spent,
		Tokens:   received,
		Price:    spent.DivRound(received, 18),
	}, nil
}

func tokenAmount(balances []TokenBalance, owner, mint string) (decimal.Decimal, error) {
	for _, b := range balances {
		if b.Owner != owner || b.Mint != mint {
			continue
		}
		raw, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse token amount %q: %w", b.Amount, err)
		}
		return raw.Shift(int32(-b.Decimals)), nil
	}
	return decimal.Zero, nil
}

func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Shift(-9)
}
