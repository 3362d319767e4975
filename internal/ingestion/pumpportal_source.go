package ingestion

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/enrich"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/pumpportal"
	"solana-sniper/internal/solana"
)

// PumpFunSupply is the fixed total supply of tokens launched on the pump pool.
const PumpFunSupply = 1_000_000_000

// TokenFeed is the stream of raw creations. Satisfied by *pumpportal.FeedClient.
type TokenFeed interface {
	Tokens() <-chan pumpportal.NewTokenMessage
}

// PumpPortalSource turns PumpPortal creations into feed events. Each creation
// is emitted bare at once; when a Resolver is configured its metadata is
// resolved in the background and emitted as a second, enriched event.
type PumpPortalSource struct {
	feed          TokenFeed
	resolver      enrich.Resolver
	enrichWorkers int
	enrichTimeout time.Duration
	bufferSize    int
	now           func() time.Time
	log           logrus.FieldLogger
}

var _ EventSource = (*PumpPortalSource)(nil)

// PumpPortalSourceOptions contains configuration for creating a PumpPortalSource.
type PumpPortalSourceOptions struct {
	Feed          TokenFeed
	Resolver      enrich.Resolver // optional
	EnrichWorkers int             // Default: 16 concurrent resolves; extra creations go unenriched
	EnrichTimeout time.Duration   // Default: 10s per resolve
	BufferSize    int             // Default: 256
	Now           func() time.Time
	Logger        logrus.FieldLogger
}

// NewPumpPortalSource creates a source over feed.
func NewPumpPortalSource(opts PumpPortalSourceOptions) *PumpPortalSource {
	s := &PumpPortalSource{
		feed:          opts.Feed,
		resolver:      opts.Resolver,
		enrichWorkers: opts.EnrichWorkers,
		enrichTimeout: opts.EnrichTimeout,
		bufferSize:    opts.BufferSize,
		now:           opts.Now,
		log:           opts.Logger,
	}
	if s.enrichWorkers <= 0 {
		s.enrichWorkers = 16
	}
	if s.enrichTimeout <= 0 {
		s.enrichTimeout = 10 * time.Second
	}
	if s.bufferSize <= 0 {
		s.bufferSize = 256
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	s.log = s.log.WithField("component", "pumpportal_source")
	return s
}

// Subscribe implements EventSource.
func (s *PumpPortalSource) Subscribe(ctx context.Context) (<-chan domain.FeedEvent, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("pumpportal source: no feed")
	}

	out := make(chan domain.FeedEvent, s.bufferSize)
	go s.pump(ctx, out)
	return out, nil
}

func (s *PumpPortalSource) pump(ctx context.Context, out chan<- domain.FeedEvent) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(out)
	}()

	sem := make(chan struct{}, s.enrichWorkers)
	tokens := s.feed.Tokens()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-tokens:
			if !ok {
				return
			}

			ev, err := CreationEventFromMessage(msg, s.now())
			if err != nil {
				observability.RecordEventDropped("invalid_mint")
				s.log.WithError(err).Debug("dropping creation")
				continue
			}

			if !emit(ctx, out, domain.NewCreationFeedEvent(ev)) {
				return
			}

			if s.resolver == nil || ev.MetadataURI == nil {
				continue
			}
			select {
			case sem <- struct{}{}:
			default:
				observability.RecordEnrich("skipped_busy")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				s.enrich(ctx, out, ev)
			}()
		}
	}
}

func (s *PumpPortalSource) enrich(ctx context.Context, out chan<- domain.FeedEvent, ev *domain.CreationEvent) {
	rctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	meta, err := s.resolver.Resolve(rctx, ev.Mint, *ev.MetadataURI)
	if err != nil {
		s.log.WithError(err).WithField("mint", ev.Mint).Debug("metadata not resolved")
		return
	}

	// Verified requires the document to agree with the on-chain symbol.
	meta.Verified = meta.Verified && strings.EqualFold(strings.TrimSpace(meta.Symbol), ev.Symbol)

	enriched := *ev
	// Creation messages carry no description; the metadata document is its only source.
	if enriched.Description == nil && meta.Description != nil {
		desc := strings.TrimSpace(*meta.Description)
		enriched.Description = &desc
	}
	emit(ctx, out, domain.NewEnrichedFeedEvent(&enriched, meta))
}

func emit(ctx context.Context, out chan<- domain.FeedEvent, ev domain.FeedEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// CreationEventFromMessage maps a PumpPortal creation onto a CreationEvent.
func CreationEventFromMessage(msg pumpportal.NewTokenMessage, observedAt time.Time) (*domain.CreationEvent, error) {
	if err := solana.ValidateAddress(msg.Mint); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	ev := &domain.CreationEvent{
		Mint:       msg.Mint,
		Name:       strings.TrimSpace(msg.Name),
		Symbol:     strings.TrimSpace(msg.Symbol),
		Signature:  msg.Signature,
		ObservedAt: observedAt.UnixMilli(),
	}

	if msg.TraderPublicKey != "" {
		creator := msg.TraderPublicKey
		ev.Creator = &creator
	}
	if msg.VSolInBondingCurve > 0 {
		liq := msg.VSolInBondingCurve
		ev.InitialLiquidity = &liq
	}
	if uri := strings.TrimSpace(msg.URI); uri != "" {
		ev.MetadataURI = &uri
	}

	switch pool := domain.Pool(strings.ToLower(msg.Pool)); {
	case pool == "":
		ev.Pool = domain.PoolPump
	case pool.IsValid():
		ev.Pool = pool
	default:
		ev.Pool = domain.PoolAuto
	}

	if ev.Pool == domain.PoolPump {
		supply := float64(PumpFunSupply)
		ev.TotalSupply = &supply
	}

	return ev, nil
}
