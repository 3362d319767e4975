package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransactionID computes a deterministic transaction record id using SHA256.
// Formula: SHA256(match_id|account_id)
// One attempt per account per match, so the pair is unique.
// Returns hex-encoded hash (64 characters).
func ComputeTransactionID(matchID, accountID string) string {
	data := fmt.Sprintf("%s|%s", matchID, accountID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
