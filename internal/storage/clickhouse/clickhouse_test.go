package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://analyst:pw@ch.internal:9440/sniper")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.internal:9440"}, opts.Addr)
	assert.Equal(t, "analyst", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "sniper", opts.Auth.Database)

	opts, err = parseDSN("clickhouse://localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)
	assert.Empty(t, opts.Auth.Database)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`sniper`", quoteIdent("sniper"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}
