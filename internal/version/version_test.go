package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBuildTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2026-03-01T12:30:00Z", want},
		{"2026-03-01T12:30:00", want},
		{"2026-03-01 12:30:00", want},
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.True(t, tc.expected.Equal(parseBuildTime(tc.input)))
		})
	}
}

func TestInfoShort(t *testing.T) {
	testCases := []struct {
		name     string
		info     Info
		expected string
	}{
		{"release with commit", Info{Version: "v0.3.0", GitCommit: "1a2b3c4d5e"}, "v0.3.0 (1a2b3c4)"},
		{"release without commit", Info{Version: "v0.3.0", GitCommit: "unknown"}, "v0.3.0"},
		{"dev with commit", Info{Version: "dev", GitCommit: "1a2b3c4d5e"}, "dev-1a2b3c4"},
		{"derived dev version", Info{Version: "dev-1a2b3c4", GitCommit: "1a2b3c4d5e"}, "dev-1a2b3c4"},
		{"plain dev", Info{Version: "dev", GitCommit: "unknown"}, "dev"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.info.Short())
		})
	}
}

func TestInfoIsRelease(t *testing.T) {
	assert.True(t, Info{Version: "v1.0.0"}.IsRelease())
	assert.False(t, Info{Version: "dev"}.IsRelease())
	assert.False(t, Info{Version: "dev-1a2b3c4"}.IsRelease())
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v0.3.0",
		GitCommit: "1a2b3c4d5e",
		BuildTime: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}

	out := info.String()
	assert.True(t, strings.HasPrefix(out, "stencil v0.3.0\n"))
	assert.Contains(t, out, "1a2b3c4d5e (dirty)")
	assert.Contains(t, out, "2026-03-01T12:30:00Z")
	assert.Contains(t, out, "linux/amd64")

	info.GitCommit = "unknown"
	info.BuildTime = time.Time{}
	assert.NotContains(t, info.String(), "commit:")
	assert.NotContains(t, info.String(), "built:")
}

func TestGetUsesLinkerValues(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, GitCommit, BuildTime = "v9.9.9", "abcdef0123", "2026-01-02T03:04:05Z"

	info := Get()
	assert.Equal(t, "v9.9.9", info.Version)
	assert.Equal(t, "abcdef0123", info.GitCommit)
	assert.Equal(t, 2026, info.BuildTime.Year())
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "v9.9.9 (abcdef0)", GetShortVersion())
}
