package templates

import (
	"context"
	iofs "io/fs"
	"testing"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, files map[string]string) (*Resolver, *testutil.CountingFs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	testutil.WriteFiles(t, mem, "/site", files)
	fs := testutil.NewCountingFs(mem)
	return NewResolver(fs, NewStore()), fs
}

func TestExtractDeclaredParent(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
		found    bool
	}{
		{"simple", `<% template: base.html %>`, "base.html", true},
		{"tight spacing", `<%template:base.html%>`, "base.html", true},
		{"first wins", `<% template: a.html %><% template: b.html %>`, "a.html", true},
		{"none", `<div>no template</div>`, "", false},
		{"insert is not a declaration", `<%= insert: template %>`, "", false},
		{"space in path", `<% template:  my site/base.html  %>`, "my site/base.html", true},
		{"empty path", `<% template:   %>`, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractDeclaredParent(tc.text)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestExtractNamedSections(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected map[string]string
	}{
		{
			name:     "single section trimmed",
			text:     "<% start: body %>\n  hello\n<% end: body %>",
			expected: map[string]string{"body": "hello"},
		},
		{
			name: "multiple sections",
			text: `<% start: title %>Home<% end: title %>` +
				`<% start: body %><p>hi</p><% end: body %>`,
			expected: map[string]string{"title": "Home", "body": "<p>hi</p>"},
		},
		{
			name:     "mismatched end does not close",
			text:     `<% start: body %>a<% end: head %>b<% end: body %>`,
			expected: map[string]string{"body": "a<% end: head %>b"},
		},
		{
			name:     "unclosed section ignored",
			text:     `<% start: body %>never closed`,
			expected: map[string]string{},
		},
		{
			name:     "last duplicate wins",
			text:     `<% start: x %>one<% end: x %><% start: x %>two<% end: x %>`,
			expected: map[string]string{"x": "two"},
		},
		{
			name:     "unclosed start before a closed one",
			text:     `<% start: a %>orphan<% start: b %>kept<% end: b %>`,
			expected: map[string]string{"b": "kept"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractNamedSections(tc.text))
		})
	}
}

func TestTemplateExpand(t *testing.T) {
	tpl := &Template{
		Path:    "/site/_base.html",
		Content: `<title><%= insert: title %></title><main><%= insert: body %></main><%= insert: footer %>`,
	}

	out := tpl.Expand(map[string]string{"title": "Home", "body": "<p>$1 hello</p>"})

	assert.Equal(t, `<title>Home</title><main><p>$1 hello</p></main><%= insert: footer %>`, out,
		"unmatched markers stay verbatim and content is inserted literally")
}

func TestResolverLoadCachesByAbsolutePath(t *testing.T) {
	resolver, fs := newTestResolver(t, map[string]string{"_base.html": "base"})

	first, err := resolver.Load("/site/_base.html")
	require.NoError(t, err)
	second, err := resolver.Load("/site/blog/../_base.html")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fs.Opens("/site/_base.html"))
}

func TestResolverLoadAfterClearRereads(t *testing.T) {
	resolver, fs := newTestResolver(t, map[string]string{"_base.html": "base"})

	_, err := resolver.Load("/site/_base.html")
	require.NoError(t, err)

	resolver.Cache().Clear()

	_, err = resolver.Load("/site/_base.html")
	require.NoError(t, err)
	assert.Equal(t, 2, fs.Opens("/site/_base.html"))
}

func TestResolverLoadNotFound(t *testing.T) {
	resolver, _ := newTestResolver(t, nil)

	_, err := resolver.Load("/site/_missing.html")
	assert.ErrorIs(t, err, errors.ErrTemplateNotFound)
	assert.Equal(t, 0, resolver.Cache().Len())
}

func TestResolverLoadReadFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	testutil.WriteFiles(t, mem, "/site", map[string]string{"_base.html": "base"})
	fs := testutil.NewFailingFs(mem)
	fs.FailOn("/site/_base.html", iofs.ErrPermission)
	resolver := NewResolver(fs, NewStore())

	_, err := resolver.Load("/site/_base.html")
	assert.ErrorIs(t, err, errors.ErrTemplateReadFailure)
	assert.ErrorIs(t, err, iofs.ErrPermission)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestResolveIdentityWithoutTags(t *testing.T) {
	resolver, _ := newTestResolver(t, nil)
	text := "<html><body>plain <%= partial: nav.html %></body></html>"

	out, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", text)
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestResolveSingleLevel(t *testing.T) {
	resolver, _ := newTestResolver(t, map[string]string{
		"base.html": `<div><%= insert: body %></div>`,
	})

	out, err := resolver.Resolve(context.Background(), "/site", "/site/index.html",
		`<% template: base.html %><% start: body %>hello<% end: body %>`)
	require.NoError(t, err)
	assert.Equal(t, `<div>hello</div>`, out)
}

func TestResolveNestedTemplates(t *testing.T) {
	resolver, _ := newTestResolver(t, map[string]string{
		"_root.html": `<html><%= insert: content %></html>`,
		"_post.html": `<% template: _root.html %><% start: content %><article><%= insert: body %></article><% end: content %>`,
	})

	out, err := resolver.Resolve(context.Background(), "/site", "/site/post.html",
		`<% template: _post.html %><% start: body %>text<% end: body %>`)
	require.NoError(t, err)
	assert.Equal(t, `<html><article>text</article></html>`, out)
}

func TestResolveRelativeToSiteRoot(t *testing.T) {
	resolver, _ := newTestResolver(t, map[string]string{
		"shared/_root.html": `[<%= insert: content %>]`,
		"shared/_post.html": `<% template: shared/_root.html %><% start: content %><%= insert: body %><% end: content %>`,
	})

	for _, source := range []string{"/site/index.html", "/site/blog/post.html", "/site/blog/2024/deep.html"} {
		t.Run(source, func(t *testing.T) {
			out, err := resolver.Resolve(context.Background(), "/site", source,
				`<% template: shared/_post.html %><% start: body %>x<% end: body %>`)
			require.NoError(t, err)
			assert.Equal(t, `[x]`, out)
		})
	}
}

func TestResolvePathWithSpaces(t *testing.T) {
	resolver, _ := newTestResolver(t, map[string]string{
		"my site/base.html": `<main><%= insert: page body %></main>`,
	})

	out, err := resolver.Resolve(context.Background(), "/site", "/site/index.html",
		`<%   template:   my site/base.html   %><% start: page body %>hello<% end:  page body %>`)
	require.NoError(t, err)
	assert.Equal(t, `<main>hello</main>`, out)
}

func TestResolveMissingTemplateDeclaration(t *testing.T) {
	resolver, _ := newTestResolver(t, nil)

	_, err := resolver.Resolve(context.Background(), "/site", "/site/index.html",
		`<% start: body %>hello<% end: body %>`)
	assert.ErrorIs(t, err, errors.ErrMissingTemplateDeclaration)
}

func TestResolveMissingParent(t *testing.T) {
	resolver, _ := newTestResolver(t, nil)

	_, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", `<% template: _nope.html %>`)
	assert.ErrorIs(t, err, errors.ErrTemplateNotFound)
}

func TestResolveCycles(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		resolver, _ := newTestResolver(t, map[string]string{
			"_loop.html": `<% template: _loop.html %>`,
		})

		_, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", `<% template: _loop.html %>`)
		assert.ErrorIs(t, err, errors.ErrCycleDetected)
	})

	t.Run("two template cycle", func(t *testing.T) {
		resolver, _ := newTestResolver(t, map[string]string{
			"_a.html": `<% template: _b.html %>`,
			"_b.html": `<% template: _a.html %>`,
		})

		_, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", `<% template: _a.html %>`)
		assert.ErrorIs(t, err, errors.ErrCycleDetected)
	})

	t.Run("depth limit", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		testutil.WriteFiles(t, mem, "/site", map[string]string{
			"_1.html": `<% template: _2.html %>`,
			"_2.html": `<% template: _3.html %>`,
			"_3.html": `done`,
		})
		resolver := NewResolver(mem, NewStore(), WithMaxDepth(2))

		_, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", `<% template: _1.html %>`)
		assert.ErrorIs(t, err, errors.ErrCycleDetected)

		resolver = NewResolver(mem, NewStore(), WithMaxDepth(3))
		out, err := resolver.Resolve(context.Background(), "/site", "/site/index.html", `<% template: _1.html %>`)
		require.NoError(t, err)
		assert.Equal(t, "done", out)
	})
}

func TestTemplateParent(t *testing.T) {
	child := &Template{Path: "/site/_post.html", Content: `<% template: _root.html %><% start: content %>x<% end: content %>`}
	parent, ok := child.Parent()
	assert.True(t, ok)
	assert.Equal(t, "_root.html", parent)

	_, ok = (&Template{Content: `<html><%= insert: content %></html>`}).Parent()
	assert.False(t, ok)
}
