// Package site orchestrates full builds of a site: page discovery, building
// every page into a staging directory, publishing staging over the output
// directory and copying static assets.
package site

import (
	"fmt"
	"path/filepath"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/partials"
	"github.com/conneroisu/stencil/internal/templates"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/conneroisu/stencil/internal/site"

// Layout describes where things live relative to the site root.
type Layout struct {
	PageExtensions []string
	// ExcludePattern is a glob matched against file base names. Matching
	// files are partials or templates and are never built as pages.
	ExcludePattern string
	AssetsDir      string
	OutputDir      string
	ReleaseDir     string
	// OutputAssetsDir is the assets subpath below the publish directory.
	OutputAssetsDir string
	MaxDepth        int
}

// DefaultLayout returns the conventional layout.
func DefaultLayout() Layout {
	return Layout{
		PageExtensions:  []string{".md", ".markdown", ".html", ".htm", ".txt"},
		ExcludePattern:  "_*",
		AssetsDir:       "assets",
		OutputDir:       filepath.Join("output", "local"),
		ReleaseDir:      filepath.Join("output", "release"),
		OutputAssetsDir: "assets",
		MaxDepth:        templates.DefaultMaxDepth,
	}
}

// Site is a source tree together with the caches used to build it.
type Site struct {
	root         string
	fs           afero.Fs
	logger       logging.Logger
	layout       Layout
	release      bool
	templatePath string
	loaded       bool

	templates *templates.Resolver
	partials  *partials.Resolver
	tracer    trace.Tracer
}

// Option configures a Site.
type Option func(*Site)

// WithFs sets the filesystem the site is read from and written to.
func WithFs(fs afero.Fs) Option {
	return func(s *Site) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLayout overrides the default layout. Empty fields keep their defaults.
func WithLayout(layout Layout) Option {
	return func(s *Site) {
		s.layout = mergeLayout(s.layout, layout)
	}
}

// WithRelease publishes to the release directory instead of the local one.
func WithRelease(release bool) Option {
	return func(s *Site) {
		s.release = release
	}
}

// WithTemplatePath records the template a scaffolded site was created from.
func WithTemplatePath(path string) Option {
	return func(s *Site) {
		s.templatePath = path
	}
}

// New creates an unloaded site. Call Load before building.
func New(opts ...Option) *Site {
	s := &Site{
		fs:     afero.NewOsFs(),
		logger: logging.Discard(),
		layout: DefaultLayout(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithComponent("site")
	s.templates = templates.NewResolver(s.fs, templates.NewStore(),
		templates.WithMaxDepth(s.layout.MaxDepth),
		templates.WithLogger(s.logger))
	s.partials = partials.NewResolver(s.fs, partials.NewStore(),
		partials.WithMaxDepth(s.layout.MaxDepth),
		partials.WithLogger(s.logger))
	return s
}

// Open creates a site and loads root.
func Open(root string, opts ...Option) (*Site, error) {
	s := New(opts...)
	if err := s.Load(root); err != nil {
		return nil, err
	}
	return s, nil
}

// Load validates root and marks the site as ready to build.
func (s *Site) Load(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return errors.InvalidSite(root, err)
	}

	info, err := s.fs.Stat(abs)
	if err != nil {
		return errors.InvalidSite(abs, err)
	}
	if !info.IsDir() {
		return errors.InvalidSite(abs, fmt.Errorf("not a directory"))
	}

	s.root = abs
	s.loaded = true
	return nil
}

// Loaded reports whether Load succeeded.
func (s *Site) Loaded() bool { return s.loaded }

// Root returns the absolute site root.
func (s *Site) Root() string { return s.root }

// Fs returns the site's filesystem.
func (s *Site) Fs() afero.Fs { return s.fs }

// Logger returns the site's logger.
func (s *Site) Logger() logging.Logger { return s.logger }

// Templates returns the template resolver.
func (s *Site) Templates() *templates.Resolver { return s.templates }

// Partials returns the partial resolver.
func (s *Site) Partials() *partials.Resolver { return s.partials }

// Layout returns the site's layout.
func (s *Site) Layout() Layout { return s.layout }

// Release reports whether the site publishes to the release directory.
func (s *Site) Release() bool { return s.release }

// OutputDir returns the local output directory.
func (s *Site) OutputDir() string { return s.resolve(s.layout.OutputDir) }

// ReleaseDir returns the release output directory.
func (s *Site) ReleaseDir() string { return s.resolve(s.layout.ReleaseDir) }

// AssetsDir returns the static assets source directory.
func (s *Site) AssetsDir() string { return s.resolve(s.layout.AssetsDir) }

// PublishDir returns the directory builds are published to.
func (s *Site) PublishDir() string {
	if s.release {
		return s.ReleaseDir()
	}
	return s.OutputDir()
}

// OutputAssetsDir returns where assets are copied below the publish
// directory.
func (s *Site) OutputAssetsDir() string {
	return filepath.Join(s.PublishDir(), s.layout.OutputAssetsDir)
}

// PageExtensions returns the extensions of files built as pages.
func (s *Site) PageExtensions() []string { return s.layout.PageExtensions }

// ExcludePattern returns the base-name glob of files never built as pages.
func (s *Site) ExcludePattern() string { return s.layout.ExcludePattern }

// TemplatePath returns the template the site was scaffolded from, if any.
func (s *Site) TemplatePath() string { return s.templatePath }

func (s *Site) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(s.root, rel)
}

func mergeLayout(base, override Layout) Layout {
	if len(override.PageExtensions) > 0 {
		base.PageExtensions = override.PageExtensions
	}
	if override.ExcludePattern != "" {
		base.ExcludePattern = override.ExcludePattern
	}
	if override.AssetsDir != "" {
		base.AssetsDir = override.AssetsDir
	}
	if override.OutputDir != "" {
		base.OutputDir = override.OutputDir
	}
	if override.ReleaseDir != "" {
		base.ReleaseDir = override.ReleaseDir
	}
	if override.OutputAssetsDir != "" {
		base.OutputAssetsDir = override.OutputAssetsDir
	}
	if override.MaxDepth > 0 {
		base.MaxDepth = override.MaxDepth
	}
	return base
}
