package memory

import (
	"context"
	"errors"
	"testing"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func testRule(id string, createdAt int64, enabled bool) *domain.Rule {
	return &domain.Rule{
		ID:             id,
		Name:           "rule " + id,
		Enabled:        enabled,
		SymbolKeywords: []string{"pepe"},
		Amount:         0.1,
		SlippagePct:    10,
		Accounts:       []string{"acc1"},
		Pool:           domain.PoolPump,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestRuleStore_CreateAndGet(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	if err := store.Create(ctx, testRule("r1", 1000, true)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "rule r1" {
		t.Errorf("Name mismatch: got %s, want %s", got.Name, "rule r1")
	}

	// Mutating the returned copy must not leak into the store.
	got.SymbolKeywords[0] = "changed"
	again, _ := store.GetByID(ctx, "r1")
	if again.SymbolKeywords[0] != "pepe" {
		t.Errorf("store mutated through returned rule: %v", again.SymbolKeywords)
	}
}

func TestRuleStore_DuplicateKey(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	if err := store.Create(ctx, testRule("r1", 1000, true)); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	err := store.Create(ctx, testRule("r1", 2000, true))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRuleStore_UpdateKeepsCreatedAt(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	_ = store.Create(ctx, testRule("r1", 1000, true))

	updated := testRule("r1", 5000, true)
	updated.Amount = 0.5
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "r1")
	if got.Amount != 0.5 {
		t.Errorf("Amount mismatch: got %f, want %f", got.Amount, 0.5)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt changed: got %d, want %d", got.CreatedAt, 1000)
	}

	if err := store.Update(ctx, testRule("missing", 1, true)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRuleStore_Delete(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	_ = store.Create(ctx, testRule("r1", 1000, true))

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRuleStore_ListEnabledOrdered(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	_ = store.Create(ctx, testRule("r3", 3000, true))
	_ = store.Create(ctx, testRule("r1", 1000, true))
	_ = store.Create(ctx, testRule("r2", 2000, false))

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "r1" || all[2].ID != "r3" {
		t.Errorf("List order wrong: %v", ids(all))
	}

	enabled, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled failed: %v", err)
	}
	if len(enabled) != 2 || enabled[0].ID != "r1" || enabled[1].ID != "r3" {
		t.Errorf("ListEnabled wrong: %v", ids(enabled))
	}
}

func TestRuleStore_SetEnabled(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	_ = store.Create(ctx, testRule("r1", 1000, true))

	if err := store.SetEnabled(ctx, "r1", false, 9000); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "r1")
	if got.Enabled || got.UpdatedAt != 9000 {
		t.Errorf("SetEnabled not applied: enabled=%v updated_at=%d", got.Enabled, got.UpdatedAt)
	}

	enabled, _ := store.ListEnabled(ctx)
	if len(enabled) != 0 {
		t.Errorf("Expected no enabled rules, got %d", len(enabled))
	}

	if err := store.SetEnabled(ctx, "missing", true, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func ids(rules []*domain.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
