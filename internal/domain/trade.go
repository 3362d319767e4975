package domain

// TransactionRecord is the audit entry for one account-level execution attempt.
// Written once per attempt and never mutated.
type TransactionRecord struct {
	ID        string  `json:"id"` // deterministic hash of match and account
	MatchID   string  `json:"match_id"`
	RuleID    string  `json:"rule_id"`
	Mint      string  `json:"mint"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Action    Action  `json:"action"`
	Amount    float64 `json:"amount"`   // SOL
	Price     float64 `json:"price"`    // SOL per token, 0 until known
	Slippage  float64 `json:"slippage"` // pct used
	Fee       float64 `json:"fee"`      // SOL paid
	Account   string  `json:"account"`
	Signature *string `json:"signature,omitempty"`
	Success   bool    `json:"success"`
	Error     *string `json:"error,omitempty"`
	LatencyMs int64   `json:"latency_ms"`
	Timestamp int64   `json:"timestamp"` // dispatch time (ms)
}

// Action classifies a transaction record.
type Action string

const (
	ActionAcquire Action = "acquire"
	ActionDispose Action = "dispose"
	ActionFailed  Action = "failed"
)

// IsValid checks if the action is a known value.
func (a Action) IsValid() bool {
	return a == ActionAcquire || a == ActionDispose || a == ActionFailed
}
