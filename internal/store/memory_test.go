package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/repology/repology-linkchecker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan string) (urls []string) {
	t.Helper()

	for u := range ch {
		urls = append(urls, u)
	}

	return urls
}

func TestMemoryStore_URLsDue(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	s.Add("http://example.com/a")
	s.Add("http://example.com/b")

	ch, err := s.URLsDue(context.Background())
	require.NoError(t, err)

	urls := drain(t, ch)
	assert.ElementsMatch(t, []string{"http://example.com/a", "http://example.com/b"}, urls)
}

func TestMemoryStore_Update(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	s.Add("http://example.com/a")

	now := time.Now()
	err := s.Update(context.Background(), store.Update{
		URL:                   "http://example.com/a",
		CheckTime:             now,
		NextCheckTime:         now.Add(time.Hour),
		PriorityNextCheckTime: now.Add(time.Minute),
		IPv4:                  &status.Url{Code: 200, Success: true},
		CheckDurationSeconds:  0.5,
	})
	require.NoError(t, err)

	row, ok := s.Row("http://example.com/a")
	require.True(t, ok)
	assert.True(t, row.IPv4Success)
	assert.EqualValues(t, 200, row.IPv4StatusCode)
	assert.Equal(t, now.Add(time.Hour), row.NextCheck)

	// The row is no longer due.
	ch, err := s.URLsDue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drain(t, ch))
}

func TestMemoryStore_Update_priority(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	s.Add("http://example.com/a")

	now := time.Now()
	err := s.Update(context.Background(), store.Update{
		URL:                   "http://example.com/a",
		CheckTime:             now,
		NextCheckTime:         now.Add(time.Hour),
		PriorityNextCheckTime: now.Add(time.Minute),
		Priority:              true,
	})
	require.NoError(t, err)

	row, ok := s.Row("http://example.com/a")
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), row.NextCheck)
}

func TestMemoryStore_perHostFairness(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	for i := 0; i < 150; i++ {
		s.Add(urlFor(i))
	}

	ch, err := s.URLsDue(context.Background())
	require.NoError(t, err)

	urls := drain(t, ch)
	assert.LessOrEqual(t, len(urls), 100)
}

func urlFor(i int) (u string) {
	return "http://example.com/" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestMemoryStore_BumpStats(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	require.NoError(t, s.BumpStats(context.Background(), 3))
	require.NoError(t, s.BumpStats(context.Background(), 4))

	assert.Equal(t, 7, s.NumChecked())
}
