// Package enrich resolves off-chain token metadata from IPFS and HTTP locations.
package enrich

import (
	"context"
	"errors"
	"time"

	"solana-sniper/internal/domain"
)

var (
	// ErrNoMetadataURI is returned when there is nothing to resolve.
	ErrNoMetadataURI = errors.New("no metadata uri")
	// ErrResolveFailed is returned when every candidate location failed.
	ErrResolveFailed = errors.New("metadata resolve failed")
	// ErrCacheMiss is returned by Cache.Get for absent or expired entries.
	ErrCacheMiss = errors.New("cache miss")
)

// Resolver resolves enriched metadata for a mint.
// uriHint may be stale; implementations must tolerate that.
type Resolver interface {
	Resolve(ctx context.Context, mint, uriHint string) (*domain.EnrichedMetadata, error)
}

// Cache stores resolved metadata by mint.
type Cache interface {
	Get(ctx context.Context, mint string) (*domain.EnrichedMetadata, error)
	Set(ctx context.Context, meta *domain.EnrichedMetadata, ttl time.Duration) error
}

func cloneMetadata(m *domain.EnrichedMetadata) *domain.EnrichedMetadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Description != nil {
		d := *m.Description
		c.Description = &d
	}
	if m.Image != nil {
		i := *m.Image
		c.Image = &i
	}
	if m.SocialLinks != nil {
		c.SocialLinks = append([]string(nil), m.SocialLinks...)
	}
	return &c
}
