package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/storage/memory"
)

type failingStore struct {
	storage.TransactionStore
}

func (failingStore) Insert(context.Context, *domain.TransactionRecord) error {
	return errors.New("clickhouse down")
}

func TestMirroredTransactionStore_CopiesInserts(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewTransactionStore()
	secondary := memory.NewTransactionStore()
	store := storage.NewMirroredTransactionStore(primary, secondary, nil)

	rec := &domain.TransactionRecord{ID: "t1", MatchID: "m1", Timestamp: 1}
	require.NoError(t, store.Insert(ctx, rec))

	_, err := secondary.GetByID(ctx, "t1")
	assert.NoError(t, err)

	got, err := store.GetByMatchID(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMirroredTransactionStore_PrimaryErrorSkipsSecondary(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewTransactionStore()
	secondary := memory.NewTransactionStore()
	store := storage.NewMirroredTransactionStore(primary, secondary, nil)

	rec := &domain.TransactionRecord{ID: "t1"}
	require.NoError(t, primary.Insert(ctx, rec))

	assert.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)
	_, err := secondary.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMirroredTransactionStore_SecondaryErrorLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := storage.NewMirroredTransactionStore(memory.NewTransactionStore(), failingStore{}, logger)

	require.NoError(t, store.Insert(context.Background(), &domain.TransactionRecord{ID: "t1"}))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "t1", hook.LastEntry().Data["transaction_id"])
}
