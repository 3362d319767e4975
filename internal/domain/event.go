package domain

import (
	"errors"
	"strings"
)

// CreationEvent is an immutable fact about a newly observed token.
// Optional fields are nil when the feed did not report them.
type CreationEvent struct {
	Mint             string   `json:"mint"`
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	Description      *string  `json:"description,omitempty"`
	Creator          *string  `json:"creator,omitempty"`
	InitialLiquidity *float64 `json:"initial_liquidity,omitempty"` // SOL in bonding curve
	TotalSupply      *float64 `json:"total_supply,omitempty"`
	MetadataURI      *string  `json:"metadata_uri,omitempty"`
	SocialLinks      []string `json:"social_links,omitempty"`
	Pool             Pool     `json:"pool,omitempty"`
	Signature        string   `json:"signature,omitempty"` // creation tx
	ObservedAt       int64    `json:"observed_at"`         // ms
}

// SearchText returns "name symbol description" lowercased, used for blacklist checks.
func (e *CreationEvent) SearchText() string {
	parts := []string{e.Name, e.Symbol}
	if e.Description != nil {
		parts = append(parts, *e.Description)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// DescriptionText returns the lowercased description or "".
func (e *CreationEvent) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return strings.ToLower(*e.Description)
}

// EventKind tags a FeedEvent.
type EventKind string

const (
	EventKindCreation EventKind = "creation"
	EventKindEnriched EventKind = "enriched"
)

// FeedEvent is the tagged union delivered by an event source: either a bare
// creation event or a creation event paired with enriched metadata.
type FeedEvent struct {
	Kind     EventKind         `json:"kind"`
	Creation *CreationEvent    `json:"creation"`
	Metadata *EnrichedMetadata `json:"metadata,omitempty"`
}

// ErrMalformedEvent is returned by FeedEvent.Validate.
var ErrMalformedEvent = errors.New("malformed feed event")

// NewCreationFeedEvent wraps a bare creation event.
func NewCreationFeedEvent(ev *CreationEvent) FeedEvent {
	return FeedEvent{Kind: EventKindCreation, Creation: ev}
}

// NewEnrichedFeedEvent pairs a creation event with its resolved metadata.
func NewEnrichedFeedEvent(ev *CreationEvent, meta *EnrichedMetadata) FeedEvent {
	return FeedEvent{Kind: EventKindEnriched, Creation: ev, Metadata: meta}
}

// Validate checks the union is well formed.
func (f FeedEvent) Validate() error {
	if f.Creation == nil || f.Creation.Mint == "" {
		return ErrMalformedEvent
	}
	switch f.Kind {
	case EventKindCreation:
		if f.Metadata != nil {
			return ErrMalformedEvent
		}
	case EventKindEnriched:
		if f.Metadata == nil {
			return ErrMalformedEvent
		}
	default:
		return ErrMalformedEvent
	}
	return nil
}
