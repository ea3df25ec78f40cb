package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	text string
}

func TestStoreGetOrLoadCachesFirstValue(t *testing.T) {
	store := NewStore[*entry]("templates")
	calls := 0
	load := func() (*entry, error) {
		calls++
		return &entry{text: "content"}, nil
	}

	first, err := store.GetOrLoad("/site/_base.html", load)
	require.NoError(t, err)
	second, err := store.GetOrLoad("/site/_base.html", load)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, store.Len())

	stats := store.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Loads)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}

func TestStoreFailedLoadIsNotCached(t *testing.T) {
	store := NewStore[*entry]("partials")
	boom := errors.New("boom")

	_, err := store.GetOrLoad("/site/_nav.html", func() (*entry, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.Has("/site/_nav.html"))

	value, err := store.GetOrLoad("/site/_nav.html", func() (*entry, error) { return &entry{text: "nav"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "nav", value.text)
}

func TestStoreClear(t *testing.T) {
	store := NewStore[*entry]("templates")
	calls := 0
	load := func() (*entry, error) {
		calls++
		return &entry{text: "v"}, nil
	}

	first, err := store.GetOrLoad("k", load)
	require.NoError(t, err)

	store.Clear()
	assert.Equal(t, 0, store.Len())

	second, err := store.GetOrLoad("k", load)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "a cleared key must be loaded again")
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 1, store.Stats().Clears)
}

func TestStatsHitRateEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.HitRate())
}
