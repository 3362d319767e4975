package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func createTestRule(id string, createdAt int64) *domain.Rule {
	return &domain.Rule{
		ID:                  id,
		Name:                "frog hunter " + id,
		Enabled:             true,
		SymbolKeywords:      []string{"pepe", "frog"},
		DescriptionKeywords: []string{"meme"},
		Blacklist:           []string{"rug"},
		RequiredCreator:     ptr("Creator111"),
		RequiredSocials:     []string{"@frogs"},
		MinLiquidity:        5,
		MaxSupply:           1_000_000_000,
		Amount:              0.1,
		SlippagePct:         15,
		MaxFee:              0.0005,
		Accounts:            []string{"acc-1", "acc-2"},
		StaggerDelayMs:      250,
		Pool:                domain.PoolPump,
		MaxDailySpend:       2,
		CooldownSeconds:     60,
		RequireConfirmation: true,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
}

func TestRuleStore_CreateAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRuleStore(pool)

	rule := createTestRule("rule-001", 1000)
	require.NoError(t, store.Create(ctx, rule))

	retrieved, err := store.GetByID(ctx, "rule-001")
	require.NoError(t, err)

	assert.Equal(t, rule, retrieved)
}

func TestRuleStore_CreateDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRuleStore(pool)

	require.NoError(t, store.Create(ctx, createTestRule("rule-001", 1000)))

	err := store.Create(ctx, createTestRule("rule-001", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRuleStore_NilListsRoundTripEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRuleStore(pool)

	rule := &domain.Rule{
		ID:          "bare",
		Name:        "bare",
		Amount:      0.05,
		SlippagePct: 5,
		Pool:        domain.PoolPumpAMM,
		CreatedAt:   1,
		UpdatedAt:   1,
	}
	require.NoError(t, store.Create(ctx, rule))

	got, err := store.GetByID(ctx, "bare")
	require.NoError(t, err)
	assert.Empty(t, got.SymbolKeywords)
	assert.Empty(t, got.Accounts)
	assert.Nil(t, got.RequiredCreator)
	assert.Equal(t, domain.PoolPumpAMM, got.Pool)
}

func TestRuleStore_UpdateAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRuleStore(pool)

	require.NoError(t, store.Create(ctx, createTestRule("rule-001", 1000)))

	updated := createTestRule("rule-001", 9999)
	updated.Amount = 0.5
	updated.RequiredCreator = nil
	updated.UpdatedAt = 2000
	require.NoError(t, store.Update(ctx, updated))

	got, err := store.GetByID(ctx, "rule-001")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Amount, 1e-9)
	assert.Nil(t, got.RequiredCreator)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, int64(2000), got.UpdatedAt)

	assert.ErrorIs(t, store.Update(ctx, createTestRule("missing", 1)), storage.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "rule-001"))
	_, err = store.GetByID(ctx, "rule-001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "rule-001"), storage.ErrNotFound)
}

func TestRuleStore_ListEnabledAndSetEnabled(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRuleStore(pool)

	require.NoError(t, store.Create(ctx, createTestRule("rule-b", 2000)))
	require.NoError(t, store.Create(ctx, createTestRule("rule-a", 1000)))
	require.NoError(t, store.Create(ctx, createTestRule("rule-c", 3000)))

	require.NoError(t, store.SetEnabled(ctx, "rule-b", false, 4000))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rule-a", all[0].ID)
	assert.Equal(t, "rule-c", all[2].ID)

	enabled, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, "rule-a", enabled[0].ID)
	assert.Equal(t, "rule-c", enabled[1].ID)

	assert.ErrorIs(t, store.SetEnabled(ctx, "missing", true, 1), storage.ErrNotFound)
}
