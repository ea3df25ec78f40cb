package page

import (
	"context"
	iofs "io/fs"
	"testing"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/logging"
	"github.com/conneroisu/stencil/internal/partials"
	"github.com/conneroisu/stencil/internal/templates"
	"github.com/conneroisu/stencil/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSite struct {
	root      string
	fs        afero.Fs
	templates *templates.Resolver
	partials  *partials.Resolver
}

func newTestSite(t *testing.T, fs afero.Fs, files map[string]string) *testSite {
	t.Helper()
	testutil.WriteFiles(t, fs, "/site", files)
	return &testSite{
		root:      "/site",
		fs:        fs,
		templates: templates.NewResolver(fs, templates.NewStore()),
		partials:  partials.NewResolver(fs, partials.NewStore()),
	}
}

func (s *testSite) Root() string                   { return s.root }
func (s *testSite) Fs() afero.Fs                   { return s.fs }
func (s *testSite) Templates() *templates.Resolver { return s.templates }
func (s *testSite) Partials() *partials.Resolver   { return s.partials }
func (s *testSite) Logger() logging.Logger         { return logging.Discard() }

func TestStateString(t *testing.T) {
	assert.Equal(t, "unparsed", StateUnparsed.String())
	assert.Equal(t, "template_resolved", StateTemplateResolved.String())
	assert.Equal(t, "partial_resolved", StatePartialResolved.String())
	assert.Equal(t, "built", StateBuilt.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestNewResolvesTemplatesThenPartials(t *testing.T) {
	site := newTestSite(t, afero.NewMemMapFs(), map[string]string{
		"_base.html": "<html>\n<%= partial: _nav.html %>\n<%= insert: body %>\n</html>\n",
		"_nav.html":  "<nav>home</nav>",
		"index.html": "\n<% template: _base.html %>\n<% start: body %>\n<p>hi</p>\n<% end: body %>\n",
	})

	p, err := New(context.Background(), site, "/site/index.html")
	require.NoError(t, err)

	assert.Equal(t, StatePartialResolved, p.State())
	assert.Equal(t, "<html>\n<nav>home</nav>\n<p>hi</p>\n</html>", p.Content)
	assert.Contains(t, p.Raw, "<% template: _base.html %>")
}

func TestNewResolvesReferencesFromSiteRoot(t *testing.T) {
	site := newTestSite(t, afero.NewMemMapFs(), map[string]string{
		"shared/_base.html": `<main><%= partial: shared/_nav.html %><%= insert: body %></main>`,
		"shared/_nav.html":  `<nav/>`,
		"index.html":        `<% template: shared/_base.html %><% start: body %>home<% end: body %>`,
		"blog/post.html":    `<% template: shared/_base.html %><% start: body %>post<% end: body %>`,
	})

	home, err := New(context.Background(), site, "/site/index.html")
	require.NoError(t, err)
	assert.Equal(t, `<main><nav/>home</main>`, home.Content)

	post, err := New(context.Background(), site, "/site/blog/post.html")
	require.NoError(t, err)
	assert.Equal(t, `<main><nav/>post</main>`, post.Content)
}

func TestNewPlainPageIsTrimmed(t *testing.T) {
	site := newTestSite(t, afero.NewMemMapFs(), map[string]string{
		"notes.txt": "  \n plain text \n\n",
	})

	p, err := New(context.Background(), site, "/site/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain text", p.Content)
}

func TestNewErrors(t *testing.T) {
	testCases := []struct {
		name     string
		files    map[string]string
		path     string
		expected error
	}{
		{
			name:     "missing page",
			path:     "/site/missing.html",
			expected: errors.ErrPageNotFound,
		},
		{
			name:     "missing template",
			files:    map[string]string{"index.html": "<% template: _gone.html %>"},
			path:     "/site/index.html",
			expected: errors.ErrTemplateNotFound,
		},
		{
			name:     "missing partial",
			files:    map[string]string{"index.html": "<%= partial: _gone.html %>"},
			path:     "/site/index.html",
			expected: errors.ErrPartialNotFound,
		},
		{
			name:     "sections without template",
			files:    map[string]string{"index.html": "<% start: body %>x<% end: body %>"},
			path:     "/site/index.html",
			expected: errors.ErrMissingTemplateDeclaration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			site := newTestSite(t, afero.NewMemMapFs(), tc.files)

			_, err := New(context.Background(), site, tc.path)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestNewReadFailure(t *testing.T) {
	fs := testutil.NewFailingFs(afero.NewMemMapFs())
	site := newTestSite(t, fs, map[string]string{"index.html": "x"})
	fs.FailOn("/site/index.html", iofs.ErrPermission)

	_, err := New(context.Background(), site, "/site/index.html")
	assert.ErrorIs(t, err, errors.ErrPageReadFailure)
	assert.ErrorIs(t, err, iofs.ErrPermission)
}

func TestBuildWritesBelowOutputRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	site := newTestSite(t, fs, map[string]string{
		"blog/post.html": "  <p>post</p>  ",
	})

	p, err := New(context.Background(), site, "/site/blog/post.html")
	require.NoError(t, err)

	target, err := p.Build(context.Background(), "/out")
	require.NoError(t, err)
	assert.Equal(t, "/out/blog/post.html", target)
	assert.Equal(t, StateBuilt, p.State())
	assert.Equal(t, "<p>post</p>", testutil.ReadFile(t, fs, "/out/blog/post.html"))

	_, err = p.Build(context.Background(), "/out")
	require.NoError(t, err)
	assert.Equal(t, "<p>post</p>", testutil.ReadFile(t, fs, "/out/blog/post.html"), "rebuilding is idempotent")
}

func TestBuildOutputFailure(t *testing.T) {
	t.Run("directory creation", func(t *testing.T) {
		fs := testutil.NewFailingFs(afero.NewMemMapFs())
		site := newTestSite(t, fs, map[string]string{"blog/post.html": "x"})
		fs.FailOn("/out/blog", iofs.ErrPermission)

		p, err := New(context.Background(), site, "/site/blog/post.html")
		require.NoError(t, err)

		_, err = p.Build(context.Background(), "/out")
		assert.ErrorIs(t, err, errors.ErrPageOutputFailure)
		assert.Equal(t, StatePartialResolved, p.State())
	})

	t.Run("write", func(t *testing.T) {
		fs := testutil.NewFailingFs(afero.NewMemMapFs())
		site := newTestSite(t, fs, map[string]string{"index.html": "x"})
		fs.FailOn("/out/index.html", iofs.ErrPermission)

		p, err := New(context.Background(), site, "/site/index.html")
		require.NoError(t, err)

		_, err = p.Build(context.Background(), "/out")
		assert.ErrorIs(t, err, errors.ErrPageOutputFailure)
		assert.ErrorIs(t, err, iofs.ErrPermission)
	})
}

func TestBuildOutsideRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	site := newTestSite(t, fs, map[string]string{})
	testutil.WriteFiles(t, fs, "/elsewhere", map[string]string{"page.html": "x"})

	p, err := New(context.Background(), site, "/elsewhere/page.html")
	require.NoError(t, err)

	_, err = p.Build(context.Background(), "/out")
	assert.ErrorIs(t, err, errors.ErrPageOutputFailure)
}
