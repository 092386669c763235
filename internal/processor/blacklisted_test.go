package processor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/processor"
	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/repology/repology-linkchecker/internal/store"
	"github.com/repology/repology-linkchecker/internal/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blacklistDoc = `
defaults:
  delay: 1
  recheck: "1h-2h"
  priority_recheck: "5m-10m"
hosts:
  blacklisted.example.com:
    blacklist: true
  skipped.example.com:
    skip: true
`

func newBlacklistedFixture(t *testing.T) (b *processor.Blacklisted, st *store.MemoryStore) {
	t.Helper()

	conf, err := hostpolicy.LoadConfig(strings.NewReader(blacklistDoc))
	require.NoError(t, err)

	policy := hostpolicy.New(conf)
	st = store.NewMemoryStore()
	u := updater.New(&updater.Config{Store: st, Policy: policy})

	return processor.NewBlacklisted(u, policy), st
}

func TestBlacklisted_Taste(t *testing.T) {
	t.Parallel()

	b, _ := newBlacklistedFixture(t)

	assert.True(t, b.Taste("http://blacklisted.example.com/"))
	assert.True(t, b.Taste("http://skipped.example.com/"))
	assert.False(t, b.Taste("http://ok.example.com/"))
}

func TestBlacklisted_Process_blacklisted(t *testing.T) {
	t.Parallel()

	b, st := newBlacklistedFixture(t)
	st.Add("http://blacklisted.example.com/")

	err := b.Process(context.Background(), []string{"http://blacklisted.example.com/"})
	require.NoError(t, err)

	row, ok := st.Row("http://blacklisted.example.com/")
	require.True(t, ok)
	assert.False(t, row.IPv4Success)
	assert.Equal(t, status.Blacklisted, row.IPv4StatusCode)
	assert.False(t, row.IPv6Success)
	assert.Equal(t, status.Blacklisted, row.IPv6StatusCode)
}

func TestBlacklisted_Process_skipped(t *testing.T) {
	t.Parallel()

	b, st := newBlacklistedFixture(t)
	st.Add("http://skipped.example.com/")

	err := b.Process(context.Background(), []string{"http://skipped.example.com/"})
	require.NoError(t, err)

	row, ok := st.Row("http://skipped.example.com/")
	require.True(t, ok)
	assert.Zero(t, row.IPv4StatusCode)
	assert.False(t, row.NextCheck.IsZero())
}
