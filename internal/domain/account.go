package domain

import "errors"

// ErrInvalidAccount is wrapped by account validation failures.
var ErrInvalidAccount = errors.New("invalid account")

// Account is a trading wallet the engine can acquire with.
type Account struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	PublicKey    string `json:"public_key"` // base58 wallet address
	SealedAPIKey string `json:"-"`          // vault envelope of the venue API key
	Active       bool   `json:"active"`
	CreatedAt    int64  `json:"created_at"` // ms
	UpdatedAt    int64  `json:"updated_at"` // ms
}
