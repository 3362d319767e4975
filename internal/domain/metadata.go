package domain

// EnrichedMetadata is off-chain descriptive data resolved for a token.
// It may arrive after the bare creation event, or never.
type EnrichedMetadata struct {
	Mint        string   `json:"mint"`
	Name        string   `json:"name,omitempty"`
	Symbol      string   `json:"symbol,omitempty"`
	Description *string  `json:"description,omitempty"`
	Image       *string  `json:"image,omitempty"`
	SocialLinks []string `json:"social_links,omitempty"` // twitter, telegram, website
	Verified    bool     `json:"verified"`
	Source      string   `json:"source,omitempty"` // location that served the document
	ResolvedAt  int64    `json:"resolved_at"`      // ms
}
