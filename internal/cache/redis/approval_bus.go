package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"solana-sniper/internal/approval"
)

// Default Pub/Sub channels.
const (
	DefaultPendingChannel  = "sniper:approvals:pending"
	DefaultDecisionChannel = "sniper:approvals:decisions"
)

// ApprovalBus publishes pending matches and delivers operator decisions over
// Redis Pub/Sub. Messages are ephemeral: nothing is replayed to late subscribers.
type ApprovalBus struct {
	rdb             *redis.Client
	pendingChannel  string
	decisionChannel string
	log             logrus.FieldLogger
}

var _ approval.Notifier = (*ApprovalBus)(nil)

// NewApprovalBus creates an ApprovalBus. Empty channel names use the defaults.
func NewApprovalBus(c *Client, pendingChannel, decisionChannel string, log logrus.FieldLogger) *ApprovalBus {
	if pendingChannel == "" {
		pendingChannel = DefaultPendingChannel
	}
	if decisionChannel == "" {
		decisionChannel = DefaultDecisionChannel
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &ApprovalBus{
		rdb:             c.Underlying(),
		pendingChannel:  pendingChannel,
		decisionChannel: decisionChannel,
		log:             log,
	}
}

// NotifyPending publishes p as JSON on the pending channel.
func (b *ApprovalBus) NotifyPending(ctx context.Context, p approval.Pending) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal pending %s: %w", p.Match.ID, err)
	}
	if err := b.rdb.Publish(ctx, b.pendingChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.pendingChannel, err)
	}
	return nil
}

// PublishDecision sends a decision, as an external UI would.
func (b *ApprovalBus) PublishDecision(ctx context.Context, d approval.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("redis: marshal decision: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.decisionChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.decisionChannel, err)
	}
	return nil
}

// Decisions subscribes to the decision channel. The returned channel is
// closed when ctx is cancelled. Undecodable payloads are logged and skipped.
func (b *ApprovalBus) Decisions(ctx context.Context) (<-chan approval.Decision, error) {
	pubsub := b.rdb.Subscribe(ctx, b.decisionChannel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.decisionChannel, err)
	}

	out := make(chan approval.Decision, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var d approval.Decision
				if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil || d.MatchID == "" {
					b.log.WithField("payload", msg.Payload).Warn("ignoring malformed approval decision")
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
