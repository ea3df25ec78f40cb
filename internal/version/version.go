// Package version reports the stencil build identity. Values are stamped at
// link time with -ldflags and fall back to the VCS data Go embeds in the
// binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables are set at build time using -ldflags, e.g.
//
//	-X github.com/conneroisu/stencil/internal/version.Version=v0.3.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
}

// Get collects the build information for this binary.
func Get() Info {
	settings := vcsSettings()
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev, ok := settings["vcs.revision"]; ok {
			info.GitCommit = rev
		} else {
			info.GitCommit = "unknown"
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseBuildTime(settings["vcs.time"])
	}
	if info.Version == "" || info.Version == "dev" {
		info.Version = moduleVersion(info.GitCommit)
	}

	return info
}

// IsRelease reports whether the binary carries a real version rather than a
// development one.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}

// Short returns a one-line version such as "v0.3.0 (1a2b3c4)".
func (i Info) Short() string {
	if len(i.GitCommit) < 7 || i.GitCommit == "unknown" {
		return i.Version
	}
	commit := i.GitCommit[:7]
	if strings.HasPrefix(i.Version, "dev-") {
		return i.Version
	}
	if i.Version == "dev" {
		return "dev-" + commit
	}
	return fmt.Sprintf("%s (%s)", i.Version, commit)
}

// String renders every known field, one per line.
func (i Info) String() string {
	lines := []string{"stencil " + i.Version}
	if i.GitCommit != "unknown" {
		commit := i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "commit:   "+commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "built:    "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines,
		"go:       "+i.GoVersion,
		"platform: "+i.Platform)
	return strings.Join(lines, "\n")
}

// GetShortVersion is shorthand for Get().Short().
func GetShortVersion() string {
	return Get().Short()
}

func vcsSettings() map[string]string {
	settings := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	settings["module.version"] = info.Main.Version
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

func moduleVersion(commit string) string {
	if v := vcsSettings()["module.version"]; v != "" && v != "(devel)" {
		return v
	}
	if len(commit) >= 7 && commit != "unknown" {
		return "dev-" + commit[:7]
	}
	return "dev"
}

// parseBuildTime accepts RFC 3339 and a couple of common variants and
// returns the zero time for anything else.
func parseBuildTime(value string) time.Time {
	if value == "" || value == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
