package site

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/page"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Build copies assets and then rebuilds every page.
func (s *Site) Build(ctx context.Context) (err error) {
	if !s.loaded {
		return errors.SiteNotLoaded("build")
	}

	ctx, span := s.tracer.Start(ctx, "site.Build",
		trace.WithAttributes(
			attribute.String("site.root", s.root),
			attribute.Bool("site.release", s.release),
		))
	defer func() { endSpan(span, err) }()

	if err := s.BuildAssets(ctx); err != nil {
		return err
	}
	return s.BuildPages(ctx)
}

// BuildPages clears both caches, builds every discovered page into a staging
// directory and then replaces the publish directory's contents with it. A
// failing page leaves the published output untouched.
func (s *Site) BuildPages(ctx context.Context) (err error) {
	if !s.loaded {
		return errors.SiteNotLoaded("building pages")
	}

	ctx, span := s.tracer.Start(ctx, "site.BuildPages")
	defer func() { endSpan(span, err) }()

	op := logging.StartOperation(s.logger, "build_pages")
	defer func() {
		if err != nil {
			op.EndWithError(ctx, err)
		}
	}()

	s.templates.Cache().Clear()
	s.partials.Cache().Clear()

	paths, err := s.Discover(ctx)
	if err != nil {
		return err
	}

	staging, err := afero.TempDir(s.fs, "", "stencil-staging-")
	if err != nil {
		return errors.SiteOutputFailure(s.PublishDir(), err)
	}
	defer func() {
		if rmErr := s.fs.RemoveAll(staging); rmErr != nil {
			s.logger.Warn(ctx, rmErr, "Failed to remove staging directory", "path", staging)
		}
	}()

	for _, path := range paths {
		p, err := page.New(ctx, s, path)
		if err != nil {
			return err
		}
		if _, err := p.Build(ctx, staging); err != nil {
			return err
		}
	}

	if err := s.publish(ctx, staging); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("site.pages", len(paths)))
	op.End(ctx, "pages", len(paths), "output", s.PublishDir())
	return nil
}

// publish clears the publish directory and copies staging over it. Inside
// the assets entry only files that still have a source asset are kept.
func (s *Site) publish(ctx context.Context, staging string) error {
	publishDir := s.PublishDir()

	if err := fsutil.ClearDir(s.fs, publishDir, s.assetsEntry()); err != nil {
		return errors.SiteOutputFailure(publishDir, err)
	}
	if err := s.pruneAssets(ctx); err != nil {
		return errors.SiteOutputFailure(publishDir, err)
	}
	if err := fsutil.CopyTree(s.fs, staging, publishDir); err != nil {
		return errors.SiteOutputFailure(publishDir, err)
	}

	s.logger.Debug(ctx, "Published staging", "from", staging, "to", publishDir)
	return nil
}

// pruneAssets removes files below the published assets entry that no source
// asset maps to, such as deleted assets or earlier page output, and then any
// directories left empty.
func (s *Site) pruneAssets(ctx context.Context) error {
	entry := filepath.Join(s.PublishDir(), s.assetsEntry())
	exists, err := afero.DirExists(s.fs, entry)
	if err != nil || !exists {
		return err
	}

	live := make(map[string]bool)
	assetsDir := s.AssetsDir()
	if ok, err := afero.DirExists(s.fs, assetsDir); err != nil {
		return err
	} else if ok {
		err := afero.Walk(s.fs, assetsDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			target, err := fsutil.RelativeTarget(assetsDir, path, s.OutputAssetsDir())
			if err != nil {
				return err
			}
			live[target] = true
			return nil
		})
		if err != nil {
			return err
		}
	}

	var dirs []string
	var removed int
	err = afero.Walk(s.fs, entry, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if live[path] {
			return nil
		}
		removed++
		return s.fs.Remove(path)
	})
	if err != nil {
		return err
	}

	// Deepest first, so parents empty out after their children.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		empty, err := afero.IsEmpty(s.fs, dir)
		if err != nil {
			return err
		}
		if empty {
			if err := s.fs.Remove(dir); err != nil {
				return err
			}
		}
	}

	if removed > 0 {
		s.logger.Debug(ctx, "Removed stale files from assets output", "count", removed, "path", entry)
	}
	return nil
}

// assetsEntry is the top-level entry of the publish directory that holds
// copied assets.
func (s *Site) assetsEntry() string {
	rel := filepath.ToSlash(filepath.Clean(s.layout.OutputAssetsDir))
	return strings.SplitN(rel, "/", 2)[0]
}

// BuildAssets copies every file of the assets directory below the output
// assets directory. Files already present at the destination are skipped. A
// site without an assets directory has nothing to copy.
func (s *Site) BuildAssets(ctx context.Context) (err error) {
	if !s.loaded {
		return errors.SiteNotLoaded("building assets")
	}

	ctx, span := s.tracer.Start(ctx, "site.BuildAssets")
	defer func() { endSpan(span, err) }()

	assetsDir := s.AssetsDir()
	exists, err := afero.DirExists(s.fs, assetsDir)
	if err != nil {
		return errors.SiteOutputFailure(assetsDir, err)
	}
	if !exists {
		s.logger.Debug(ctx, "No assets directory", "path", assetsDir)
		return nil
	}

	dest := s.OutputAssetsDir()
	var copied, skipped int
	err = afero.Walk(s.fs, assetsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		target, err := fsutil.RelativeTarget(assetsDir, path, dest)
		if err != nil {
			return err
		}

		present, err := afero.Exists(s.fs, target)
		if err != nil {
			return err
		}
		if present {
			skipped++
			return nil
		}

		if err := fsutil.CopyFile(s.fs, path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return errors.SiteOutputFailure(dest, err)
	}

	span.SetAttributes(attribute.Int("site.assets_copied", copied))
	s.logger.Info(ctx, "Copied assets", "copied", copied, "skipped", skipped, "output", dest)
	return nil
}

// Clean removes the local and release output directories.
func (s *Site) Clean(ctx context.Context) error {
	if !s.loaded {
		return errors.SiteNotLoaded("clean")
	}

	for _, dir := range []string{s.OutputDir(), s.ReleaseDir()} {
		if err := s.fs.RemoveAll(dir); err != nil {
			return errors.SiteOutputFailure(dir, err)
		}
		s.logger.Info(ctx, "Removed output directory", "path", dir)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
