package vault

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T, passphrase string) *Vault {
	t.Helper()
	v, err := New(passphrase, WithIterations(1_000))
	require.NoError(t, err)
	return v
}

func TestVault_SealOpen(t *testing.T) {
	v := newTestVault(t, "correct horse")

	sealed, err := v.Seal("api-key-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "api-key-123")

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, 1_000, env.Iterations)

	opened, err := v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "api-key-123", opened)

	// Cached key path.
	opened, err = v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "api-key-123", opened)
}

func TestVault_FreshSaltPerSeal(t *testing.T) {
	v := newTestVault(t, "pw")

	a, err := v.Seal("same")
	require.NoError(t, err)
	b, err := v.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVault_WrongPassphrase(t *testing.T) {
	sealed, err := newTestVault(t, "right").Seal("secret")
	require.NoError(t, err)

	_, err = newTestVault(t, "wrong").Open(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestVault_Malformed(t *testing.T) {
	v := newTestVault(t, "pw")

	for _, sealed := range []string{
		"",
		"plain-text-key",
		`{"version":2,"salt":"AAAA","nonce":"AAAA","ciphertext":"AAAA"}`,
		`{"version":1,"salt":"!!","nonce":"AAAA","ciphertext":"AAAA"}`,
		`{"version":1,"salt":"AAAAAAAAAAAAAAAAAAAAAA==","nonce":"AAAA","ciphertext":"AAAA"}`,
	} {
		_, err := v.Open(sealed)
		assert.ErrorIs(t, err, ErrMalformedEnvelope, sealed)
	}
}

func TestVault_TamperedCiphertext(t *testing.T) {
	v := newTestVault(t, "pw")
	sealed, err := v.Seal("secret")
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))
	env.Ciphertext = strings.Repeat("A", len(env.Ciphertext))
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = v.Open(string(tampered))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNew_EmptyPassphrase(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}
