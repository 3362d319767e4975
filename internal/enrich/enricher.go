package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/observability"
)

// DefaultGateways are tried in order for content-addressed URIs.
var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
}

// Default configuration values.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultCacheTTL     = 30 * time.Minute
	DefaultMaxBodyBytes = 256 << 10
)

// Config configures an Enricher.
type Config struct {
	Gateways     []string      // gateway prefixes ending in /ipfs/
	Timeout      time.Duration // per location
	CacheTTL     time.Duration
	MaxBodyBytes int64
}

// Enricher resolves metadata documents with gateway fallback, request
// collapsing and caching.
type Enricher struct {
	cfg    Config
	client *http.Client
	cache  Cache
	group  singleflight.Group
	now    func() time.Time
	log    logrus.FieldLogger
}

var _ Resolver = (*Enricher)(nil)

// Option configures an Enricher.
type Option func(*Enricher)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Enricher) {
		e.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Enricher) {
		e.log = log
	}
}

// WithClock overrides the time source used for ResolvedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.now = now
	}
}

// NewEnricher creates an enricher. A nil cache disables caching.
func NewEnricher(cfg Config, cache Cache, opts ...Option) *Enricher {
	if len(cfg.Gateways) == 0 {
		cfg.Gateways = DefaultGateways
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	l := logrus.New()
	l.SetOutput(io.Discard)

	e := &Enricher{
		cfg:    cfg,
		client: &http.Client{},
		cache:  cache,
		now:    time.Now,
		log:    l,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the metadata for mint, from cache when possible.
// Concurrent calls for the same mint share one fetch.
func (e *Enricher) Resolve(ctx context.Context, mint, uriHint string) (*domain.EnrichedMetadata, error) {
	if e.cache != nil {
		meta, err := e.cache.Get(ctx, mint)
		if err == nil {
			observability.RecordEnrich("cache_hit")
			return meta, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			e.log.WithError(err).WithField("mint", mint).Warn("metadata cache read failed")
		}
	}

	if strings.TrimSpace(uriHint) == "" {
		observability.RecordEnrich("no_uri")
		return nil, ErrNoMetadataURI
	}

	ch := e.group.DoChan(mint, func() (interface{}, error) {
		// Detached from the first caller so a cancelled caller does not fail the others.
		fetchCtx := context.WithoutCancel(ctx)
		return e.fetch(fetchCtx, mint, uriHint)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			observability.RecordEnrich("error")
			return nil, res.Err
		}
		observability.RecordEnrich("resolved")
		return cloneMetadata(res.Val.(*domain.EnrichedMetadata)), nil
	}
}

func (e *Enricher) fetch(ctx context.Context, mint, uri string) (*domain.EnrichedMetadata, error) {
	var errs []error
	for _, loc := range Candidates(uri, e.cfg.Gateways) {
		doc, err := e.get(ctx, loc.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", loc.URL, err))
			continue
		}

		meta := doc.toMetadata(mint)
		meta.Source = loc.URL
		meta.Verified = loc.ContentAddressed && meta.Symbol != ""
		meta.ResolvedAt = e.now().UnixMilli()

		if e.cache != nil {
			if err := e.cache.Set(ctx, meta, e.cfg.CacheTTL); err != nil {
				e.log.WithError(err).WithField("mint", mint).Warn("metadata cache write failed")
			}
		}
		return meta, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: %s: unsupported uri %q", ErrResolveFailed, mint, uri)
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, mint, errors.Join(errs...))
}

func (e *Enricher) get(ctx context.Context, location string) (*document, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var doc document
	if err := json.NewDecoder(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// document is the pump.fun style metadata JSON.
type document struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Website     string `json:"website"`
}

func (d *document) toMetadata(mint string) *domain.EnrichedMetadata {
	meta := &domain.EnrichedMetadata{
		Mint:   mint,
		Name:   strings.TrimSpace(d.Name),
		Symbol: strings.TrimSpace(d.Symbol),
	}
	if s := strings.TrimSpace(d.Description); s != "" {
		meta.Description = &s
	}
	if s := strings.TrimSpace(d.Image); s != "" {
		meta.Image = &s
	}
	for _, link := range []string{d.Twitter, d.Telegram, d.Website} {
		if s := strings.TrimSpace(link); s != "" {
			meta.SocialLinks = append(meta.SocialLinks, s)
		}
	}
	return meta
}

// Location is one place a metadata document can be fetched from.
type Location struct {
	URL              string
	ContentAddressed bool
}

// Candidates expands a metadata URI into fetch locations, in order.
// Content-addressed URIs (ipfs://CID, /ipfs/CID, gateway URLs, bare CIDs) are
// tried as given when already HTTP, then through each gateway.
func Candidates(uri string, gateways []string) []Location {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil
	}

	var (
		out  []Location
		path string
	)
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path = strings.TrimPrefix(strings.TrimPrefix(uri, "ipfs://"), "ipfs/")
	case strings.HasPrefix(uri, "/ipfs/"):
		path = strings.TrimPrefix(uri, "/ipfs/")
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil
		}
		if i := strings.Index(u.Path, "/ipfs/"); i >= 0 {
			path = u.Path[i+len("/ipfs/"):]
			out = append(out, Location{URL: uri, ContentAddressed: true})
		} else {
			return []Location{{URL: uri}}
		}
	case isCID(uri):
		path = uri
	default:
		return nil
	}

	if path == "" {
		return out
	}
	for _, gw := range gateways {
		candidate := strings.TrimRight(gw, "/") + "/" + path
		if len(out) > 0 && out[0].URL == candidate {
			continue
		}
		out = append(out, Location{URL: candidate, ContentAddressed: true})
	}
	return out
}

// isCID reports whether s looks like a CIDv0 (Qm...) or CIDv1 (b...) string.
func isCID(s string) bool {
	if strings.ContainsAny(s, "/:?# ") {
		return false
	}
	return (strings.HasPrefix(s, "Qm") && len(s) == 46) ||
		(strings.HasPrefix(s, "bafy") && len(s) > 50)
}
