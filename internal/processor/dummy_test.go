package processor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/processor"
	"github.com/repology/repology-linkchecker/internal/store"
	"github.com/repology/repology-linkchecker/internal/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dummyDoc = `
defaults:
  delay: 1
  recheck: "1h-2h"
  priority_recheck: "5m-10m"
hosts: {}
`

func TestDummy_Process(t *testing.T) {
	t.Parallel()

	conf, err := hostpolicy.LoadConfig(strings.NewReader(dummyDoc))
	require.NoError(t, err)

	policy := hostpolicy.New(conf)
	st := store.NewMemoryStore()
	st.Add("ftp://example.com/")

	u := updater.New(&updater.Config{Store: st, Policy: policy})
	d := processor.NewDummy(u)

	assert.True(t, d.Taste("ftp://example.com/"))

	require.NoError(t, d.Process(context.Background(), []string{"ftp://example.com/"}))

	row, ok := st.Row("ftp://example.com/")
	require.True(t, ok)
	assert.Zero(t, row.IPv4StatusCode)
	assert.False(t, row.NextCheck.IsZero())
	assert.Equal(t, 1, st.NumChecked())
}
