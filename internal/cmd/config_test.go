package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	c, err := parseFlags([]string{
		"-dsn", "postgres://example/db",
		"-hosts", "/etc/linkchecker/hosts.yaml",
		"-max-db-connections", "10",
		"-timeout", "30s",
		"-max-workers", "50",
		"-max-host-queue", "25",
		"-single-run",
		"-skip-ipv6",
		"-satisfy-with-ipv6",
		"-strict-ssl",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://example/db", c.DSN)
	assert.Equal(t, "/etc/linkchecker/hosts.yaml", c.HostsPath)
	assert.Equal(t, 10, c.MaxDBConnections)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 50, c.MaxWorkers)
	assert.Equal(t, 25, c.MaxHostQueue)
	assert.True(t, c.SingleRun)
	assert.True(t, c.SkipIPv6)
	assert.True(t, c.SatisfyWithIPv6)
	assert.True(t, c.StrictSSL)
}

func TestParseFlags_defaults(t *testing.T) {
	c, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "", c.DSN)
	assert.Equal(t, "./hosts.yaml", c.HostsPath)
	assert.Equal(t, 5, c.MaxDBConnections)
	assert.Equal(t, 60*time.Second, c.Timeout)
	assert.Equal(t, 100, c.MaxWorkers)
	assert.Equal(t, 100, c.MaxHostQueue)
	assert.False(t, c.SingleRun)
	assert.False(t, c.SkipIPv6)
	assert.False(t, c.SatisfyWithIPv6)
	assert.False(t, c.StrictSSL)
}

func validRuntimeConfig() (c *runtimeConfig) {
	return &runtimeConfig{
		HostsPath:        "./hosts.yaml",
		MaxDBConnections: 5,
		Timeout:          60 * time.Second,
		MaxWorkers:       100,
		MaxHostQueue:     100,
	}
}

func TestRuntimeConfig_validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validRuntimeConfig().validate())
	})

	t.Run("nil", func(t *testing.T) {
		var c *runtimeConfig
		assert.ErrorIs(t, c.validate(), errNilConfig)
	})

	t.Run("empty hosts path", func(t *testing.T) {
		c := validRuntimeConfig()
		c.HostsPath = ""
		assert.Error(t, c.validate())
	})

	t.Run("non-positive max-db-connections", func(t *testing.T) {
		c := validRuntimeConfig()
		c.MaxDBConnections = 0
		assert.Error(t, c.validate())
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		c := validRuntimeConfig()
		c.Timeout = -time.Second
		assert.Error(t, c.validate())
	})

	t.Run("non-positive max-workers", func(t *testing.T) {
		c := validRuntimeConfig()
		c.MaxWorkers = 0
		assert.Error(t, c.validate())
	})

	t.Run("non-positive max-host-queue", func(t *testing.T) {
		c := validRuntimeConfig()
		c.MaxHostQueue = 0
		assert.Error(t, c.validate())
	})
}
