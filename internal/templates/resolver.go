package templates

import (
	"context"
	"path/filepath"

	"github.com/conneroisu/stencil/internal/cache"
	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/spf13/afero"
)

// DefaultMaxDepth bounds the length of a template inheritance chain.
const DefaultMaxDepth = 64

// Resolver loads templates through a cache and drives inheritance
// resolution for page text.
type Resolver struct {
	fs       afero.Fs
	cache    *cache.Store[*Template]
	logger   logging.Logger
	maxDepth int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the longest inheritance chain accepted before the
// resolver reports a cycle.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for progress lines.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger.WithComponent("templates")
		}
	}
}

// NewResolver creates a resolver reading from fs and caching into store.
func NewResolver(fs afero.Fs, store *cache.Store[*Template], opts ...Option) *Resolver {
	r := &Resolver{
		fs:       fs,
		cache:    store,
		logger:   logging.Discard(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewStore creates an empty template cache.
func NewStore() *cache.Store[*Template] {
	return cache.NewStore[*Template]("templates")
}

// Cache returns the store backing this resolver.
func (r *Resolver) Cache() *cache.Store[*Template] {
	return r.cache
}

// Load returns the template at path, reading it on the first reference only.
func (r *Resolver) Load(path string) (*Template, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.TemplateReadFailure(path, err)
	}

	return r.cache.GetOrLoad(key, func() (*Template, error) {
		exists, err := afero.Exists(r.fs, key)
		if err != nil {
			return nil, errors.TemplateReadFailure(key, err)
		}
		if !exists {
			return nil, errors.TemplateNotFound(key)
		}

		data, err := afero.ReadFile(r.fs, key)
		if err != nil {
			return nil, errors.TemplateReadFailure(key, err)
		}

		r.logger.Info(context.Background(), "Loaded template", "path", key)
		return &Template{Path: key, Content: string(data)}, nil
	})
}

// Resolve applies template inheritance to text, the content of the file at
// source. While the current text declares a parent, its sections are
// extracted and the text is replaced by the parent's expansion; the parent
// may in turn declare its own parent. Relative template paths resolve
// against basePath wherever in the chain they are written; pages pass the
// site root.
//
// Text that has sections but no declaration fails with
// MissingTemplateDeclaration. A chain that revisits a template, or grows
// longer than the configured maximum depth, fails with CycleDetected.
func (r *Resolver) Resolve(ctx context.Context, basePath, source, text string) (string, error) {
	current := source
	chain := []string{source}
	visited := make(map[string]bool)

	for {
		sections := ExtractNamedSections(text)

		ref, ok := ExtractDeclaredParent(text)
		if !ok {
			if len(sections) > 0 {
				return "", errors.MissingTemplateDeclaration(current, sectionNames(sections))
			}
			return text, nil
		}

		parentPath, err := fsutil.ResolvePath(basePath, ref)
		if err != nil {
			return "", errors.TemplateReadFailure(ref, err)
		}

		chain = append(chain, parentPath)
		if visited[parentPath] || len(chain) > r.maxDepth+1 {
			return "", errors.CycleDetected(source, chain)
		}
		visited[parentPath] = true

		parent, err := r.Load(parentPath)
		if err != nil {
			return "", err
		}

		r.logger.Debug(ctx, "Expanding template",
			"template", parent.Path,
			"for", current,
			"sections", len(sections))

		text = parent.Expand(sections)
		current = parent.Path
	}
}
