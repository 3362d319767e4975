// Package stub provides in-memory event sources for tests and dry runs.
package stub

import (
	"context"

	"solana-sniper/internal/domain"
)

// Source replays fixed events, then stays open until ctx is cancelled.
// With CloseWhenDone set the channel closes after the last event instead.
// Implements ingestion.EventSource interface.
type Source struct {
	events        []domain.FeedEvent
	CloseWhenDone bool
}

// NewSource creates a new stub source with the given events.
func NewSource(events ...domain.FeedEvent) *Source {
	return &Source{events: events}
}

// Subscribe emits the events in order.
func (s *Source) Subscribe(ctx context.Context) (<-chan domain.FeedEvent, error) {
	out := make(chan domain.FeedEvent)
	go func() {
		defer close(out)
		for _, ev := range s.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if !s.CloseWhenDone {
			<-ctx.Done()
		}
	}()
	return out, nil
}

// ChannelSource forwards events pushed by the caller.
// Implements ingestion.EventSource interface.
type ChannelSource struct {
	ch chan domain.FeedEvent
}

// NewChannelSource creates a source fed through Push.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{ch: make(chan domain.FeedEvent)}
}

// Push delivers ev to the subscriber, blocking until it is read.
func (s *ChannelSource) Push(ev domain.FeedEvent) {
	s.ch <- ev
}

// Close ends the source.
func (s *ChannelSource) Close() {
	close(s.ch)
}

// Subscribe returns the pushed events.
func (s *ChannelSource) Subscribe(_ context.Context) (<-chan domain.FeedEvent, error) {
	return s.ch, nil
}
