package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func createTestTransaction(id, matchID, mint string, ts int64, success bool) *domain.TransactionRecord {
	t := &domain.TransactionRecord{
		ID:        id,
		MatchID:   matchID,
		RuleID:    "rule-001",
		Mint:      mint,
		Name:      "Pepe Frog",
		Symbol:    "PEPE",
		Action:    domain.ActionAcquire,
		Amount:    0.1,
		Price:     0.0000021,
		Slippage:  15,
		Fee:       0.000005,
		Account:   "acc-1",
		Success:   success,
		LatencyMs: 420,
		Timestamp: ts,
	}
	if success {
		t.Signature = ptr("5wHu1qwD7q4sig")
	} else {
		t.Action = domain.ActionFailed
		t.Error = ptr("slippage exceeded")
	}
	return t
}

func TestTransactionStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	ok := createTestTransaction("tx-001", "match-1", "MintA", 1000, true)
	failed := createTestTransaction("tx-002", "match-1", "MintA", 1100, false)
	require.NoError(t, store.Insert(ctx, ok))
	require.NoError(t, store.Insert(ctx, failed))

	got, err := store.GetByID(ctx, "tx-001")
	require.NoError(t, err)
	assert.Equal(t, ok, got)

	got, err = store.GetByID(ctx, "tx-002")
	require.NoError(t, err)
	assert.Nil(t, got.Signature)
	require.NotNil(t, got.Error)
	assert.Equal(t, "slippage exceeded", *got.Error)
	assert.Equal(t, domain.ActionFailed, got.Action)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTransaction("tx-001", "match-1", "MintA", 1000, true)))
	err := store.Insert(ctx, createTestTransaction("tx-001", "match-1", "MintA", 1000, true))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransactionStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTransaction("tx-3", "match-2", "MintB", 3000, true)))
	require.NoError(t, store.Insert(ctx, createTestTransaction("tx-1", "match-1", "MintA", 1000, true)))
	require.NoError(t, store.Insert(ctx, createTestTransaction("tx-2", "match-1", "MintA", 2000, false)))

	byMatch, err := store.GetByMatchID(ctx, "match-1")
	require.NoError(t, err)
	require.Len(t, byMatch, 2)
	assert.Equal(t, "tx-1", byMatch[0].ID)
	assert.Equal(t, "tx-2", byMatch[1].ID)

	byMint, err := store.GetByMint(ctx, "MintB")
	require.NoError(t, err)
	require.Len(t, byMint, 1)
	assert.Equal(t, "tx-3", byMint[0].ID)

	inRange, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, inRange, 2)
	assert.Equal(t, "tx-2", inRange[0].ID)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "tx-3", recent[0].ID)
	assert.Equal(t, "tx-2", recent[1].ID)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
