package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	running    int32
	maxRunning int32
	calls      int32
	failWith   error
}

func (b *fakeBuilder) Build(context.Context) error {
	n := atomic.AddInt32(&b.running, 1)
	for {
		max := atomic.LoadInt32(&b.maxRunning)
		if n <= max || atomic.CompareAndSwapInt32(&b.maxRunning, max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&b.running, -1)

	if atomic.AddInt32(&b.calls, 1) == 1 && b.failWith != nil {
		return b.failWith
	}
	return nil
}

func TestRebuilderSerialisesBuilds(t *testing.T) {
	builder := &fakeBuilder{}
	rebuilder := NewRebuilder(builder, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rebuilder.Rebuild(context.Background(), nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), atomic.LoadInt32(&builder.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&builder.maxRunning))

	builds, failures := rebuilder.Stats()
	assert.Equal(t, 8, builds)
	assert.Zero(t, failures)
}

func TestRebuilderFailureDoesNotStopLaterBuilds(t *testing.T) {
	builder := &fakeBuilder{failWith: errors.TemplateNotFound("/site/_base.html")}
	rebuilder := NewRebuilder(builder, nil)

	var results []BuildResult
	rebuilder.OnBuild(func(result BuildResult) {
		results = append(results, result)
	})

	handler := rebuilder.Handler(context.Background())
	changes := []ChangeEvent{{Path: "/site/index.html", Type: EventTypeModified}}

	require.NoError(t, handler(changes), "failed builds are not handler errors")
	require.NoError(t, handler(changes))

	require.Len(t, results, 2)
	assert.False(t, results[0].Succeeded())
	assert.ErrorIs(t, results[0].Err, errors.ErrTemplateNotFound)
	assert.True(t, results[1].Succeeded())
	assert.Equal(t, changes, results[1].Changes)

	builds, failures := rebuilder.Stats()
	assert.Equal(t, 2, builds)
	assert.Equal(t, 1, failures)
}
