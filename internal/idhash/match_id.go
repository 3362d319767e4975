package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeMatchID computes a deterministic match_id using SHA256.
// Formula: SHA256(rule_id|mint)
// A rule matching the same mint twice (bare then enriched event) yields the same ID.
// Returns hex-encoded hash (64 characters).
func ComputeMatchID(ruleID, mint string) string {
	data := fmt.Sprintf("%s|%s", ruleID, mint)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
