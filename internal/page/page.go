// Package page builds a single source file into its rendered output: the
// source is read, template inheritance is applied, partials are included and
// the trimmed result is written below an output root.
package page

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/partials"
	"github.com/conneroisu/stencil/internal/templates"
	"github.com/spf13/afero"
)

// Site is what a page needs from the site it belongs to.
type Site interface {
	Root() string
	Fs() afero.Fs
	Templates() *templates.Resolver
	Partials() *partials.Resolver
	Logger() logging.Logger
}

// State tracks how far a page has progressed. It only moves forward.
type State int

const (
	StateUnparsed State = iota
	StateTemplateResolved
	StatePartialResolved
	StateBuilt
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateTemplateResolved:
		return "template_resolved"
	case StatePartialResolved:
		return "partial_resolved"
	case StateBuilt:
		return "built"
	default:
		return "unknown"
	}
}

// Page is one source file of the site.
type Page struct {
	// Path is the absolute path of the source file.
	Path string
	// Raw is the file content as read.
	Raw string
	// Content is the resolved content, trimmed once partials are included.
	Content string

	state  State
	site   Site
	logger logging.Logger
}

// New reads the page at path and resolves its templates and partials.
// Relative references resolve against the site root.
func New(ctx context.Context, site Site, path string) (*Page, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.PageReadFailure(path, err)
	}

	fs := site.Fs()
	exists, err := afero.Exists(fs, abs)
	if err != nil {
		return nil, errors.PageReadFailure(abs, err)
	}
	if !exists {
		return nil, errors.PageNotFound(abs)
	}

	data, err := afero.ReadFile(fs, abs)
	if err != nil {
		return nil, errors.PageReadFailure(abs, err)
	}

	p := &Page{
		Path:    abs,
		Raw:     string(data),
		Content: string(data),
		state:   StateUnparsed,
		site:    site,
		logger:  site.Logger().WithComponent("page").With("path", abs),
	}

	if err := p.resolve(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) resolve(ctx context.Context) error {
	content, err := p.site.Templates().Resolve(ctx, p.site.Root(), p.Path, p.Content)
	if err != nil {
		return err
	}
	p.Content = content
	p.state = StateTemplateResolved

	content, err = p.site.Partials().ResolveAll(ctx, p.site.Root(), p.Path, p.Content)
	if err != nil {
		return err
	}
	p.Content = strings.TrimSpace(content)
	p.state = StatePartialResolved

	p.logger.Debug(ctx, "Resolved page", "bytes", len(p.Content))
	return nil
}

// State returns the page's progress.
func (p *Page) State() State {
	return p.state
}

// Target returns where the page is written below outputRoot: the same path
// relative to the site root.
func (p *Page) Target(outputRoot string) (string, error) {
	return fsutil.RelativeTarget(p.site.Root(), p.Path, outputRoot)
}

// Build writes the resolved content below outputRoot and returns the file
// written. Building again rewrites the same content.
func (p *Page) Build(ctx context.Context, outputRoot string) (string, error) {
	target, err := p.Target(outputRoot)
	if err != nil {
		return "", errors.PageOutputFailure(p.Path, err)
	}

	fs := p.site.Fs()
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.PageOutputFailure(target, err)
	}
	if err := afero.WriteFile(fs, target, []byte(p.Content), 0o644); err != nil {
		return "", errors.PageOutputFailure(target, err)
	}

	p.state = StateBuilt
	p.logger.Info(ctx, "Built page", "output", target)
	return target, nil
}
