package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictBool_UnmarshalText(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		var sb strictBool
		require.NoError(t, sb.UnmarshalText([]byte("0")))
		assert.False(t, bool(sb))
	})

	t.Run("one", func(t *testing.T) {
		var sb strictBool
		require.NoError(t, sb.UnmarshalText([]byte("1")))
		assert.True(t, bool(sb))
	})

	t.Run("invalid", func(t *testing.T) {
		var sb strictBool
		assert.Error(t, sb.UnmarshalText([]byte("true")))
		assert.Error(t, sb.UnmarshalText([]byte("")))
		assert.Error(t, sb.UnmarshalText([]byte("2")))
	})
}

func TestReadEnvs_defaults(t *testing.T) {
	for _, key := range []string{
		"LINKCHECKER_SENTRY_DSN",
		"LINKCHECKER_STATS_SNAPSHOT_PATH",
		"LINKCHECKER_DNS_SERVER",
		"LINKCHECKER_LOG_VERBOSE",
	} {
		prev, ok := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		if ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		}
	}

	envs, err := readEnvs()
	require.NoError(t, err)

	assert.Equal(t, "stderr", envs.SentryDSN)
	assert.Equal(t, "", envs.StatsSnapshotPath)
	assert.Equal(t, "", envs.DNSServer)
	assert.False(t, bool(envs.LogVerbose))
}

func TestReadEnvs_overridden(t *testing.T) {
	t.Setenv("LINKCHECKER_SENTRY_DSN", "https://example.test/1")
	t.Setenv("LINKCHECKER_STATS_SNAPSHOT_PATH", "/var/run/linkchecker.json")
	t.Setenv("LINKCHECKER_DNS_SERVER", "127.0.0.1:53")
	t.Setenv("LINKCHECKER_LOG_VERBOSE", "1")

	envs, err := readEnvs()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/1", envs.SentryDSN)
	assert.Equal(t, "/var/run/linkchecker.json", envs.StatsSnapshotPath)
	assert.Equal(t, "127.0.0.1:53", envs.DNSServer)
	assert.True(t, bool(envs.LogVerbose))
}
