package domain

// Match is a rule's acceptance of a specific creation event.
// It is not persisted unless it proceeds to execution.
type Match struct {
	ID             string            `json:"id"` // deterministic hash of rule and mint
	RuleID         string            `json:"rule_id"`
	RuleName       string            `json:"rule_name"`
	Event          CreationEvent     `json:"event"`
	Metadata       *EnrichedMetadata `json:"metadata,omitempty"`
	Score          int               `json:"score"`
	Reasons        []string          `json:"reasons"`
	MatchedSocials []string          `json:"matched_socials,omitempty"`
	CreatedAt      int64             `json:"created_at"` // ms
}
