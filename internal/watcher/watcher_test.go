package watcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/stencil/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(9), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(NoHiddenFilter)
	watcher.AddFilter(NoEditorTempFilter)
	watcher.AddHandler(func([]ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 2)
	assert.Len(t, watcher.handlers, 1)
}

func TestFileWatcherStartStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	defer watcher.Stop()

	tempDir := t.TempDir()
	require.NoError(t, watcher.AddPath(tempDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []ChangeEvent
	)
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		received = append(received, events...)
		mu.Unlock()
		return nil
	})

	require.NoError(t, watcher.Start(ctx))

	testFile := filepath.Join(tempDir, "index.html")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, event := range received {
			if event.Path == testFile {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop(), "stop is idempotent")
}

func TestWatchSite(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"blog", "output/local", "output/release", ".git/objects", "assets/css"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	err = WatchSite(watcher, SiteOptions{
		Root:     root,
		SkipDirs: []string{filepath.Join(root, "output", "local"), filepath.Join(root, "output", "release")},
		Ignore:   []string{"*.bak"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "assets"),
		filepath.Join(root, "assets", "css"),
		filepath.Join(root, "blog"),
		filepath.Join(root, "output"),
	}, watcher.WatchList())

	filters := watcher.filters
	keep := func(path string) bool {
		for _, filter := range filters {
			if !filter(path) {
				return false
			}
		}
		return true
	}
	assert.True(t, keep(filepath.Join(root, "blog", "post.html")))
	assert.False(t, keep(filepath.Join(root, "output", "local", "index.html")))
	assert.False(t, keep(filepath.Join(root, ".git", "HEAD")))
	assert.False(t, keep(filepath.Join(root, "index.html.swp")))
	assert.False(t, keep(filepath.Join(root, "notes.bak")))
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()

	watcher, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	require.NoError(t, WatchSite(watcher, SiteOptions{Root: root}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	newDir := filepath.Join(root, "posts")
	require.NoError(t, os.Mkdir(newDir, 0o755))

	assert.Eventually(t, func() bool {
		for _, dir := range watcher.WatchList() {
			if dir == newDir {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAddRecursiveInvalidRoot(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Error(t, watcher.AddRecursive(filepath.Join(t.TempDir(), "missing")))

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, watcher.AddRecursive(file))
}

func TestNoHiddenFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"index.html", true},
		{"blog/post.md", true},
		{"../site/page.html", true},
		{".git/HEAD", false},
		{"blog/.draft.md", false},
		{".stencil.yml", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoHiddenFilter(tc.path))
		})
	}
}

func TestNoEditorTempFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"index.html", true},
		{"index.html~", false},
		{".index.html.swp", false},
		{".#index.html", false},
		{"#index.html#", false},
		{"4913", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoEditorTempFilter(tc.path))
		})
	}
}

func TestExcludeDirsFilter(t *testing.T) {
	filter := ExcludeDirsFilter("/site/output/local")

	assert.False(t, filter("/site/output/local"))
	assert.False(t, filter("/site/output/local/index.html"))
	assert.True(t, filter("/site/output/localized.html"))
	assert.True(t, filter("/site/index.html"))
}

func TestIgnoreFilter(t *testing.T) {
	filter := IgnoreFilter("*.tmp", "[bad")

	assert.False(t, filter("/site/a.tmp"))
	assert.True(t, filter("/site/a.html"))
}

func TestDebouncer(t *testing.T) {
	debouncer := newDebouncer(50*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Path: "b.html", Type: EventTypeCreated}
	debouncer.events <- ChangeEvent{Path: "a.html", Type: EventTypeModified}
	debouncer.events <- ChangeEvent{Path: "b.html", Type: EventTypeModified}

	select {
	case events := <-debouncer.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.html", events[0].Path)
		assert.Equal(t, "b.html", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type, "latest event per path wins")
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncerLogsDroppedBatch(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Format: "json", Output: &buf})
	debouncer := newDebouncer(time.Hour, logger)
	defer debouncer.stop()

	for i := 0; i < cap(debouncer.output); i++ {
		debouncer.addEvent(ChangeEvent{Path: "a.html", Type: EventTypeModified})
		debouncer.flush()
	}
	assert.Empty(t, buf.String())

	debouncer.addEvent(ChangeEvent{Path: "b.html", Type: EventTypeModified})
	debouncer.flush()

	assert.Len(t, debouncer.output, cap(debouncer.output))
	assert.Contains(t, buf.String(), "Batch queue full, dropping batch")
	assert.Empty(t, debouncer.pending)
}
