package cache_test

import (
	"testing"

	"github.com/repology/repology-linkchecker/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	const (
		cacheID            = "cacheID"
		cacheIDNonExisting = "non_existing_cache_id"
	)

	isCleared := false
	mc := &mockClearer{
		onClear: func() {
			isCleared = true
		},
	}

	m := cache.NewDefaultManager()
	m.Add(cacheID, mc)
	m.ClearByID(cacheID)

	assert.True(t, isCleared)

	assert.NotPanics(t, func() { m.ClearByID(cacheIDNonExisting) })
}

// mockClearer is the mock implementation of the [cache.Clearer] for tests.
type mockClearer struct {
	onClear func()
}

// type check
var _ cache.Clearer = (*mockClearer)(nil)

// Clear implements the [cache.Clearer] interface for *mockClearer.
func (mc *mockClearer) Clear() {
	mc.onClear()
}
