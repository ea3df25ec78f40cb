package site

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/spf13/afero"
)

// Discover returns the absolute paths of every page below the site root,
// sorted. Files matching the exclusion pattern, files under the output or
// release directories and files under hidden directories are skipped.
func (s *Site) Discover(ctx context.Context) ([]string, error) {
	if !s.loaded {
		return nil, errors.SiteNotLoaded("discovering pages")
	}

	extensions := make(map[string]bool, len(s.layout.PageExtensions))
	for _, ext := range s.layout.PageExtensions {
		extensions[strings.ToLower(ext)] = true
	}
	outputDir, releaseDir := s.OutputDir(), s.ReleaseDir()

	var pages []string
	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == s.root {
				return nil
			}
			if isHidden(info.Name()) || fsutil.IsWithin(path, outputDir) || fsutil.IsWithin(path, releaseDir) {
				return filepath.SkipDir
			}
			return nil
		}

		if !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if s.excluded(info.Name()) {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	if err != nil {
		return nil, errors.PageReadFailure(s.root, err)
	}

	sort.Strings(pages)
	s.logger.Debug(ctx, "Discovered pages", "count", len(pages))
	return pages, nil
}

func (s *Site) excluded(name string) bool {
	if s.layout.ExcludePattern == "" {
		return false
	}
	matched, err := filepath.Match(s.layout.ExcludePattern, name)
	return err == nil && matched
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}
