package memory

import (
	"context"
	"errors"
	"testing"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func TestSafetyStateStore_LoadEmpty(t *testing.T) {
	store := NewSafetyStateStore()

	if _, err := store.Load(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSafetyStateStore_SaveOverwrites(t *testing.T) {
	store := NewSafetyStateStore()
	ctx := context.Background()

	last := int64(1000)
	if err := store.Save(ctx, &domain.SafetyState{TotalAttempts: 1, LastExecution: &last}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, &domain.SafetyState{TotalAttempts: 2, DailySpent: 0.5, LastExecution: &last}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.TotalAttempts != 2 || got.DailySpent != 0.5 {
		t.Errorf("State not overwritten: %+v", got)
	}

	*got.LastExecution = 0
	again, _ := store.Load(ctx)
	if *again.LastExecution != 1000 {
		t.Errorf("store mutated through loaded state")
	}
}
