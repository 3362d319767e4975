package idhash

import (
	"testing"
)

func TestComputeMatchID(t *testing.T) {
	tests := []struct {
		name    string
		ruleID  string
		mint    string
		wantLen int
	}{
		{name: "basic", ruleID: "rule-1", mint: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", wantLen: 64},
		{name: "empty rule", ruleID: "", mint: "So11111111111111111111111111111111111111112", wantLen: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMatchID(tt.ruleID, tt.mint)
			if len(got) != tt.wantLen {
				t.Errorf("ComputeMatchID() length = %d, want %d", len(got), tt.wantLen)
			}
			if got2 := ComputeMatchID(tt.ruleID, tt.mint); got != got2 {
				t.Errorf("ComputeMatchID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeMatchID_DifferentInputs(t *testing.T) {
	a := ComputeMatchID("rule-1", "MintA")
	b := ComputeMatchID("rule-2", "MintA")
	c := ComputeMatchID("rule-1", "MintB")
	if a == b || a == c || b == c {
		t.Errorf("expected distinct ids, got %s %s %s", a, b, c)
	}

	// Separator prevents ambiguous concatenation.
	if ComputeMatchID("ab", "c") == ComputeMatchID("a", "bc") {
		t.Error("ambiguous concatenation produced same id")
	}
}

func TestComputeTransactionID(t *testing.T) {
	matchID := ComputeMatchID("rule-1", "MintA")

	id1 := ComputeTransactionID(matchID, "acct-1")
	id2 := ComputeTransactionID(matchID, "acct-2")

	if len(id1) != 64 {
		t.Errorf("ComputeTransactionID() length = %d, want 64", len(id1))
	}
	if id1 == id2 {
		t.Error("different accounts produced same transaction id")
	}
	if id1 != ComputeTransactionID(matchID, "acct-1") {
		t.Error("ComputeTransactionID() not deterministic")
	}
}
