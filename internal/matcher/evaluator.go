// Package matcher scores creation events against sniper rules.
package matcher

import (
	"fmt"
	"strings"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
)

// Score weights. Kept as-is for compatibility with existing rule sets.
const (
	WeightSymbolKeyword      = 15
	WeightDescriptionKeyword = 10
	WeightCreator            = 20
	WeightSocialHandle       = 25
	WeightLiquidity          = 5
	WeightSupply             = 5

	// AcceptThreshold is exclusive: a match needs score > AcceptThreshold.
	AcceptThreshold = 10
)

// RejectReason identifies the check that rejected an event.
type RejectReason string

const (
	RejectBlacklist  RejectReason = "blacklist"
	RejectKeywords   RejectReason = "keywords"
	RejectCreator    RejectReason = "creator"
	RejectSocial     RejectReason = "social"
	RejectLiquidity  RejectReason = "liquidity"
	RejectSupply     RejectReason = "supply"
	RejectDailyLimit RejectReason = "daily_limit"
	RejectCooldown   RejectReason = "cooldown"
	RejectScore      RejectReason = "score"
)

// Rejection describes why a rule did not match.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// Outcome is the result of one evaluation. Exactly one of Match and Rejection is set.
type Outcome struct {
	Match     *domain.Match
	Rejection *Rejection
}

// Accepted reports whether the evaluation produced a match.
func (o Outcome) Accepted() bool {
	return o.Match != nil
}

// Evaluator evaluates creation events against rules.
// It holds no state and is safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a new match evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs the checks in fixed order; any check may reject outright:
// blacklist, keywords, creator, socials, liquidity, supply, daily spend, cooldown, threshold.
// meta may be nil. snap is a read-only Safety State snapshot taken by the caller.
func (e *Evaluator) Evaluate(ev *domain.CreationEvent, rule *domain.Rule, meta *domain.EnrichedMetadata, snap domain.SafetyState, now time.Time) Outcome {
	var (
		score   int
		reasons []string
	)

	// 1. Blacklist overrides every positive signal.
	text := ev.SearchText()
	for _, term := range rule.Blacklist {
		if term = strings.ToLower(term); term != "" && strings.Contains(text, term) {
			return reject(RejectBlacklist, "blacklisted term %q", term)
		}
	}

	// 2. Keywords: mandatory when configured.
	symbolText := strings.ToLower(ev.Name + " " + ev.Symbol)
	symbolHits := containsAll(symbolText, rule.SymbolKeywords)
	descHits := containsAll(ev.DescriptionText(), rule.DescriptionKeywords)
	if rule.HasKeywords() && len(symbolHits) == 0 && len(descHits) == 0 {
		return reject(RejectKeywords, "no keyword matched")
	}
	if n := len(symbolHits); n > 0 {
		score += n * WeightSymbolKeyword
		reasons = append(reasons, fmt.Sprintf("Symbol keywords matched: %s (+%d)", strings.Join(symbolHits, ", "), n*WeightSymbolKeyword))
	}
	if n := len(descHits); n > 0 {
		score += n * WeightDescriptionKeyword
		reasons = append(reasons, fmt.Sprintf("Description keywords matched: %s (+%d)", strings.Join(descHits, ", "), n*WeightDescriptionKeyword))
	}

	// 3. Creator.
	if rule.RequiredCreator != nil {
		if ev.Creator == nil || *ev.Creator != *rule.RequiredCreator {
			return reject(RejectCreator, "creator does not match %s", *rule.RequiredCreator)
		}
		score += WeightCreator
		reasons = append(reasons, fmt.Sprintf("Creator matched: %s (+%d)", *rule.RequiredCreator, WeightCreator))
	}

	// 4. Social handles, from inline links plus enriched metadata.
	var matchedSocials []string
	if len(rule.RequiredSocials) > 0 {
		links := append([]string(nil), ev.SocialLinks...)
		if meta != nil {
			links = append(links, meta.SocialLinks...)
		}
		matchedSocials = matchSocials(rule.RequiredSocials, links)
		if len(matchedSocials) == 0 {
			return reject(RejectSocial, "none of %d required socials found", len(rule.RequiredSocials))
		}
		pts := len(matchedSocials) * WeightSocialHandle
		score += pts
		reasons = append(reasons, fmt.Sprintf("Social accounts matched: %s (+%d)", strings.Join(matchedSocials, ", "), pts))
	}

	// 5. Liquidity: soft, but a reported value below the minimum rejects.
	if ev.InitialLiquidity != nil {
		liq := *ev.InitialLiquidity
		if liq < rule.MinLiquidity {
			return reject(RejectLiquidity, "liquidity %.2f below minimum %.2f", liq, rule.MinLiquidity)
		}
		score += WeightLiquidity
		reasons = append(reasons, fmt.Sprintf("Liquidity %.2f SOL >= %.2f (+%d)", liq, rule.MinLiquidity, WeightLiquidity))
	}

	// 6. Supply.
	if ev.TotalSupply != nil {
		supply := *ev.TotalSupply
		if supply > rule.MaxSupply {
			return reject(RejectSupply, "supply %.0f above maximum %.0f", supply, rule.MaxSupply)
		}
		score += WeightSupply
		reasons = append(reasons, fmt.Sprintf("Supply %.0f within limit (+%d)", supply, WeightSupply))
	}

	// 7. Daily spend.
	if snap.DailySpent >= rule.MaxDailySpend {
		return reject(RejectDailyLimit, "daily spend %.4f reached cap %.4f", snap.DailySpent, rule.MaxDailySpend)
	}

	// 8. Cooldown.
	if snap.LastExecution != nil && rule.CooldownSeconds > 0 {
		elapsed := now.Sub(time.UnixMilli(*snap.LastExecution))
		if elapsed < rule.Cooldown() {
			return reject(RejectCooldown, "cooldown %s remaining", (rule.Cooldown() - elapsed).Round(time.Second))
		}
	}

	// 9. Threshold.
	if score <= AcceptThreshold {
		return reject(RejectScore, "score %d not above %d", score, AcceptThreshold)
	}

	ts := now.UnixMilli()
	return Outcome{Match: &domain.Match{
		ID:             idhash.ComputeMatchID(rule.ID, ev.Mint),
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		Event:          *ev,
		Metadata:       meta,
		Score:          score,
		Reasons:        reasons,
		MatchedSocials: matchedSocials,
		CreatedAt:      ts,
	}}
}

// containsAll returns the terms found as substrings of text, in term order.
func containsAll(text string, terms []string) []string {
	if text == "" {
		return nil
	}
	var hits []string
	for _, t := range terms {
		if t = strings.ToLower(t); t != "" && strings.Contains(text, t) {
			hits = append(hits, t)
		}
	}
	return hits
}

func reject(reason RejectReason, format string, args ...any) Outcome {
	return Outcome{Rejection: &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}}
}
