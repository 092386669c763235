package hostpolicy_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_AggregationKey(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1-2"
  priority_recheck: "1-2"
hosts:
  sf.net:
    aggregate: true
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	assert.Equal(t, "sf.net", p.AggregationKey("http://project.sf.net/foo"))
	assert.Equal(t, "example.com", p.AggregationKey("http://www.example.com/x"))
	assert.Equal(t, "", p.AggregationKey(""))
}

func TestPolicy_DelayAndBlacklist(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1-2"
  priority_recheck: "1-2"
hosts:
  foo.example.com:
    delay: 10
  example.com:
    delay: 20
    blacklist: true
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	assert.Equal(t, 10*time.Second, p.Delay("http://foo.example.com/"))
	assert.Equal(t, hostpolicy.StatusBlacklisted, p.HostStatus("http://foo.example.com/"))
	assert.Equal(t, hostpolicy.StatusOK, p.HostStatus("http://unrelated.org/"))
}

func TestPolicy_Rechecks(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1h-2h"
  priority_recheck: "5m-10m"
hosts:
  example.com:
    recheck: "10m-20m"
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	normal, priority := p.Rechecks("http://example.com/")
	assert.Equal(t, 10*time.Minute, normal.Min)
	assert.Equal(t, 20*time.Minute, normal.Max)
	assert.Equal(t, 5*time.Minute, priority.Min)
	assert.Equal(t, 10*time.Minute, priority.Max)

	normal, _ = p.Rechecks("http://unrelated.org/")
	assert.Equal(t, 1*time.Hour, normal.Min)
	assert.Equal(t, 2*time.Hour, normal.Max)
}

func TestPolicy_Rechecks_inherited(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1h-2h"
  priority_recheck: "5m-10m"
hosts:
  example.com: {}
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	normal, priority := p.Rechecks("http://example.com/")
	wantNormal := hostpolicy.Range{Min: 1 * time.Hour, Max: 2 * time.Hour}
	wantPriority := hostpolicy.Range{Min: 5 * time.Minute, Max: 10 * time.Minute}

	if diff := cmp.Diff(wantNormal, normal); diff != "" {
		assert.Failf(t, "normal recheck range mismatch", "diff: %s", diff)
	}

	if diff := cmp.Diff(wantPriority, priority); diff != "" {
		assert.Failf(t, "priority recheck range mismatch", "diff: %s", diff)
	}
}

func TestPolicy_builtinDelaySeed(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1-2"
  priority_recheck: "1-2"
hosts: {}
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	assert.Equal(t, 1*time.Second, p.Delay("https://github.com/foo/bar"))
	assert.Equal(t, 5*time.Second, p.Delay("https://unrelated.org/"))
}

func TestPolicy_configOverridesBuiltinDelaySeed(t *testing.T) {
	t.Parallel()

	const doc = `
defaults:
  delay: 5
  recheck: "1-2"
  priority_recheck: "1-2"
hosts:
  github.com:
    delay: 2
`

	conf, err := hostpolicy.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	p := hostpolicy.New(conf)

	assert.Equal(t, 2*time.Second, p.Delay("https://github.com/foo/bar"))
}
