package execution

import (
	"context"

	"solana-sniper/internal/domain"
)

// AcquireRequest describes one account-level acquisition.
type AcquireRequest struct {
	Account     *domain.Account
	Mint        string
	Amount      float64 // SOL
	SlippagePct float64
	PriorityFee float64 // SOL
	Pool        domain.Pool
}

// AcquireResult is the venue's answer to an AcquireRequest.
// Success=false with a nil error is a venue-side rejection.
type AcquireResult struct {
	Success   bool
	Signature string
	Price     float64 // SOL per token, 0 if unknown
	Fee       float64 // SOL, 0 if unknown
	Error     string
}

// Trader submits acquisitions. Implementations must be safe for concurrent use.
type Trader interface {
	Acquire(ctx context.Context, req AcquireRequest) (*AcquireResult, error)
}
