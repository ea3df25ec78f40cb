// Package partials implements textual inclusion of partial files. Every
// `<%= partial: PATH %>` marker is replaced by the raw content of the file it
// names; included content may contain further markers.
package partials

import (
	"context"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/conneroisu/stencil/internal/cache"
	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/fsutil"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/spf13/afero"
)

// DefaultMaxDepth bounds how deeply partials may nest inside each other.
const DefaultMaxDepth = 64

var markerPattern = regexp.MustCompile(`<%=\s*partial:\s*(\S.*?)\s*%>`)

// Partial is a loaded partial file. Its content is immutable.
type Partial struct {
	// Path is the absolute path of the partial file, also its cache key.
	Path    string
	Content string
}

// Resolver loads partials through a cache and substitutes partial markers.
type Resolver struct {
	fs       afero.Fs
	cache    *cache.Store[*Partial]
	logger   logging.Logger
	maxDepth int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the deepest partial nesting accepted before the resolver
// reports a cycle.
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
			r.logger = logger.WithComponent("partials")
		}
	}
}

// NewResolver creates a resolver reading from fs and caching into store.
func NewResolver(fs afero.Fs, store *cache.Store[*Partial], opts ...Option) *Resolver {
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

// NewStore creates an empty partial cache.
func NewStore() *cache.Store[*Partial] {
	return cache.NewStore[*Partial]("partials")
}

// Cache returns the store backing this resolver.
func (r *Resolver) Cache() *cache.Store[*Partial] {
	return r.cache
}

// Load returns the partial at path, reading it on the first reference only.
func (r *Resolver) Load(path string) (*Partial, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.PartialReadFailure(path, err)
	}

	return r.cache.GetOrLoad(key, func() (*Partial, error) {
		exists, err := afero.Exists(r.fs, key)
		if err != nil {
			return nil, errors.PartialReadFailure(key, err)
		}
		if !exists {
			return nil, errors.PartialNotFound(key)
		}

		data, err := afero.ReadFile(r.fs, key)
		if err != nil {
			return nil, errors.PartialReadFailure(key, err)
		}

		r.logger.Debug(context.Background(), "Loaded partial", "path", key)
		return &Partial{Path: key, Content: string(data)}, nil
	})
}

// Resolve replaces every partial marker in text with the referenced
// partial's content, resolving relative paths against basePath. It makes a
// single pass: markers inside inserted content are left for the next call.
// It returns the number of markers replaced.
func (r *Resolver) Resolve(basePath, text string) (int, string, error) {
	included, out, err := r.resolveOnce(basePath, text)
	return len(included), out, err
}

func (r *Resolver) resolveOnce(basePath, text string) ([]string, string, error) {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text, nil
	}

	var (
		b        strings.Builder
		included = make([]string, 0, len(matches))
		last     int
	)
	for _, m := range matches {
		ref := strings.TrimSpace(text[m[2]:m[3]])
		path, err := fsutil.ResolvePath(basePath, ref)
		if err != nil {
			return nil, "", errors.PartialReadFailure(ref, err)
		}

		partial, err := r.Load(path)
		if err != nil {
			return nil, "", err
		}

		b.WriteString(text[last:m[0]])
		b.WriteString(partial.Content)
		last = m[1]
		included = append(included, partial.Path)
	}
	b.WriteString(text[last:])

	return included, b.String(), nil
}

// ResolveAll includes every partial referenced by text, the content being
// built for the file at source, along with the partials those include, until
// no marker is left. Relative paths resolve against basePath; pages pass the
// site root.
//
// Each partial is expanded once per call and reused for later references. A
// partial that appears again among its own includers, or nesting deeper than
// the configured maximum depth, fails with CycleDetected before any of its
// content is repeated.
func (r *Resolver) ResolveAll(ctx context.Context, basePath, source, text string) (string, error) {
	e := &expansion{
		resolver: r,
		basePath: basePath,
		source:   source,
		resolved: make(map[string]string),
	}

	out, err := e.expand(ctx, text, []string{source})
	if err != nil {
		return "", err
	}
	if e.count > 0 {
		r.logger.Debug(ctx, "Included partials", "for", source, "count", e.count)
	}
	return out, nil
}

// expansion holds the state of one ResolveAll call.
type expansion struct {
	resolver *Resolver
	basePath string
	source   string
	resolved map[string]string
	count    int
}

// expand replaces the markers of text with fully expanded partials. chain
// lists the source and the partials currently being expanded, outermost
// first.
func (e *expansion) expand(ctx context.Context, text string, chain []string) (string, error) {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var (
		b    strings.Builder
		last int
	)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ref := strings.TrimSpace(text[m[2]:m[3]])
		path, err := fsutil.ResolvePath(e.basePath, ref)
		if err != nil {
			return "", errors.PartialReadFailure(ref, err)
		}

		content, err := e.include(ctx, path, chain)
		if err != nil {
			return "", err
		}

		b.WriteString(text[last:m[0]])
		b.WriteString(content)
		last = m[1]
		e.count++
	}
	b.WriteString(text[last:])

	return b.String(), nil
}

func (e *expansion) include(ctx context.Context, path string, chain []string) (string, error) {
	partial, err := e.resolver.Load(path)
	if err != nil {
		return "", err
	}
	if content, ok := e.resolved[partial.Path]; ok {
		return content, nil
	}

	nested := append(slices.Clip(chain), partial.Path)
	if slices.Contains(chain, partial.Path) || len(nested)-1 > e.resolver.maxDepth {
		return "", errors.CycleDetected(e.source, nested)
	}

	content, err := e.expand(ctx, partial.Content, nested)
	if err != nil {
		return "", err
	}
	e.resolved[partial.Path] = content
	return content, nil
}
