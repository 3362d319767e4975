package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRule() *Rule {
	return &Rule{
		Name:           "frogs",
		SymbolKeywords: []string{"pepe"},
		MaxSupply:      1e9,
		Amount:         0.1,
		SlippagePct:    10,
		Pool:           PoolPump,
		MaxDailySpend:  1,
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr string
	}{
		{name: "valid", mutate: func(*Rule) {}},
		{name: "missing name", mutate: func(r *Rule) { r.Name = "" }, wantErr: "name is required"},
		{name: "zero amount", mutate: func(r *Rule) { r.Amount = 0 }, wantErr: "amount must be positive"},
		{name: "slippage above 100", mutate: func(r *Rule) { r.SlippagePct = 101 }, wantErr: "slippage"},
		{name: "negative supply cap", mutate: func(r *Rule) { r.MaxSupply = -1 }, wantErr: "must not be negative"},
		{name: "zero supply cap", mutate: func(r *Rule) { r.MaxSupply = 0 }, wantErr: "max_supply and max_daily_spend must be set"},
		{name: "zero daily cap", mutate: func(r *Rule) { r.MaxDailySpend = 0 }, wantErr: "max_supply and max_daily_spend must be set"},
		{name: "unknown pool", mutate: func(r *Rule) { r.Pool = "serum" }, wantErr: "unknown pool"},
		{name: "short keyword", mutate: func(r *Rule) { r.SymbolKeywords = []string{"x"} }, wantErr: "shorter than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRule)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
