// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CountingFs wraps an afero.Fs and counts how often each path is opened.
type CountingFs struct {
	afero.Fs

	mutex sync.Mutex
	opens map[string]int
}

// NewCountingFs wraps fs.
func NewCountingFs(fs afero.Fs) *CountingFs {
	return &CountingFs{Fs: fs, opens: make(map[string]int)}
}

// Open counts the call and delegates.
func (c *CountingFs) Open(name string) (afero.File, error) {
	c.count(name)
	return c.Fs.Open(name)
}

// OpenFile counts read-only opens and delegates.
func (c *CountingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag == os.O_RDONLY {
		c.count(name)
	}
	return c.Fs.OpenFile(name, flag, perm)
}

func (c *CountingFs) count(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.opens[filepath.Clean(name)]++
}

// Opens returns how often path was opened for reading.
func (c *CountingFs) Opens(path string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.opens[filepath.Clean(path)]
}

// WriteFiles writes each path/content pair below root, creating directories.
func WriteFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// ReadFile reads path from fs, failing the test on error.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// FailingFs wraps an afero.Fs and fails Open and OpenFile for chosen paths
// while Stat keeps reporting them as present.
type FailingFs struct {
	afero.Fs

	failures map[string]error
}

// NewFailingFs wraps fs with no failures configured.
func NewFailingFs(fs afero.Fs) *FailingFs {
	return &FailingFs{Fs: fs, failures: make(map[string]error)}
}

// FailOn makes every open of path return err.
func (f *FailingFs) FailOn(path string, err error) {
	f.failures[filepath.Clean(path)] = err
}

// Open fails for configured paths and delegates otherwise.
func (f *FailingFs) Open(name string) (afero.File, error) {
	if err, ok := f.failures[filepath.Clean(name)]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.Open(name)
}

// OpenFile fails for configured paths and delegates otherwise.
func (f *FailingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err, ok := f.failures[filepath.Clean(name)]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

// MkdirAll fails when path or one of its parents is configured to fail.
func (f *FailingFs) MkdirAll(path string, perm os.FileMode) error {
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if err, ok := f.failures[p]; ok {
			return &os.PathError{Op: "mkdir", Path: path, Err: err}
		}
		if p == filepath.Dir(p) {
			break
		}
	}
	return f.Fs.MkdirAll(path, perm)
}
