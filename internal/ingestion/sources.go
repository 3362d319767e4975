package ingestion

import (
	"context"

	"solana-sniper/internal/domain"
)

// EventSource delivers feed events in arrival order.
// The channel is closed when the source ends or ctx is cancelled.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan domain.FeedEvent, error)
}
