package watcher

import (
	"path/filepath"
	"strings"
)

// NoHiddenFilter drops paths with a dot-prefixed element, such as .git.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return false
		}
	}
	return true
}

// NoEditorTempFilter drops swap, backup and lock files written by editors.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, ".#"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"),
		base == "4913":
		return false
	}
	return true
}

// ExcludeDirsFilter drops paths at or below any of dirs. Dirs must be
// absolute.
func ExcludeDirsFilter(dirs ...string) FileFilter {
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		cleaned = append(cleaned, filepath.Clean(dir))
	}

	return func(path string) bool {
		path = filepath.Clean(path)
		for _, dir := range cleaned {
			if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
				return false
			}
		}
		return true
	}
}

// IgnoreFilter drops paths whose base name matches any of the glob patterns.
// Malformed patterns never match.
func IgnoreFilter(patterns ...string) FileFilter {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, pattern := range patterns {
			if matched, err := filepath.Match(pattern, base); err == nil && matched {
				return false
			}
		}
		return true
	}
}

// SiteOptions describes what to watch for a site.
type SiteOptions struct {
	Root string
	// SkipDirs are absolute directories never watched, typically the output
	// and release directories.
	SkipDirs []string
	Ignore   []string
}

// WatchSite configures fw for a site: every non-hidden directory below the
// root except SkipDirs is watched, and events for hidden paths, editor temp
// files and ignored names are dropped.
func WatchSite(fw *FileWatcher, opts SiteOptions) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	skip := ExcludeDirsFilter(opts.SkipDirs...)

	fw.AddDirFilter(func(path string) bool {
		return skip(path) && NoHiddenFilter(filepath.Base(path))
	})
	fw.AddFilter(skip)
	fw.AddFilter(func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return NoHiddenFilter(path)
		}
		return NoHiddenFilter(rel)
	})
	fw.AddFilter(NoEditorTempFilter)
	if len(opts.Ignore) > 0 {
		fw.AddFilter(IgnoreFilter(opts.Ignore...))
	}

	return fw.AddRecursive(root)
}
