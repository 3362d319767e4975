package app

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/service"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "sniper-test", DryRun: true},
		Logging: config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"},
		Engine:  config.EngineConfig{Timezone: "UTC"},
		Storage: config.StorageConfig{Backend: backend},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(BackendMemory))
	require.NoError(t, err)
	defer a.Close()

	stores := a.Stores()
	assert.NotNil(t, stores.Rules)
	assert.NotNil(t, stores.Transactions)
	assert.NotNil(t, stores.States)
	assert.NotNil(t, stores.Accounts)
	assert.Nil(t, stores.Analytics)

	created, err := a.Rules().Create(ctx, &domain.Rule{Name: "frogs", Enabled: true, SymbolKeywords: []string{"pepe"}, Amount: 0.1, MaxSupply: 1e12, MaxDailySpend: 10})
	require.NoError(t, err)

	rules, err := a.Rules().List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, created.ID, rules[0].ID)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), testConfig("cassandra"))
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(BackendSQLite)
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "sniper.db")

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = a.Rules().Create(ctx, &domain.Rule{ID: "r1", Name: "frogs", Enabled: true, SymbolKeywords: []string{"pepe"}, Amount: 0.1, MaxSupply: 1e12, MaxDailySpend: 10})
	require.NoError(t, err)
	require.NoError(t, a.Stores().States.Save(ctx, &domain.SafetyState{
		TotalAttempts: 4,
		DailySpent:    0.3,
		TotalSpent:    1.2,
		LastResetDate: "2026-03-14",
	}))
	a.Close()

	b, err := New(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	b.now = func() time.Time { return now }

	got, err := b.Rules().Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "frogs", got.Name)

	state, err := b.SafetyState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), state.TotalAttempts)
	assert.Equal(t, 0.3, state.DailySpent)
	assert.Equal(t, 1.2, state.TotalSpent)
}

func TestSafetyState_FreshStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(BackendMemory))
	require.NoError(t, err)
	defer a.Close()
	a.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	state, err := a.SafetyState(context.Background())
	require.NoError(t, err)
	assert.Zero(t, state.TotalAttempts)
	assert.Equal(t, "2026-03-14", state.LastResetDate)
}

func TestSafetyState_AppliesDailyReset(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(BackendMemory))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Stores().States.Save(ctx, &domain.SafetyState{
		DailySpent:    2,
		TotalSpent:    5,
		LastResetDate: "2026-03-13",
	}))
	a.now = func() time.Time { return time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC) }

	state, err := a.SafetyState(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.DailySpent)
	assert.Equal(t, 5.0, state.TotalSpent)
}

func TestAccounts_RequiresPassphraseToAdd(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(BackendMemory))
	require.NoError(t, err)
	defer a.Close()

	accounts, err := a.Accounts()
	require.NoError(t, err)

	_, err = accounts.Add(ctx, service.NewAccount{
		Label:     "main",
		PublicKey: base58.Encode(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)).Public().(ed25519.PublicKey)),
		APIKey:    "secret",
	})
	assert.ErrorContains(t, err, "no key sealer")

	list, err := accounts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccounts_WithPassphraseSealsKey(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(BackendMemory)
	cfg.Vault.Passphrase = "correct horse"
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	accounts, err := a.Accounts()
	require.NoError(t, err)

	acc, err := accounts.Add(ctx, service.NewAccount{
		Label:     "main",
		PublicKey: base58.Encode(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)).Public().(ed25519.PublicKey)),
		APIKey:    "secret",
	})
	require.NoError(t, err)
	assert.NotContains(t, acc.SealedAPIKey, "secret")

	plain, err := a.vault.Open(acc.SealedAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}

func TestArchive_RequiresBucket(t *testing.T) {
	a, err := New(context.Background(), testConfig(BackendMemory))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Archive(context.Background(), time.Unix(0, 0), time.Now())
	assert.ErrorContains(t, err, "archive.bucket")
}
