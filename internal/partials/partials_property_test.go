//go:build property
// +build property

package partials

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

func TestResolverProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/site/_p.html", []byte("P"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolver := NewResolver(fs, NewStore())

	// Property: one pass replaces exactly as many markers as the text holds
	properties.Property("count equals marker count", prop.ForAll(
		func(n int, filler string) bool {
			parts := make([]string, 0, n+1)
			for i := 0; i < n; i++ {
				parts = append(parts, filler+"<%= partial: _p.html %>")
			}
			parts = append(parts, filler)

			count, out, err := resolver.Resolve("/site", strings.Join(parts, ""))
			if err != nil {
				return false
			}
			return count == n && strings.Count(out, "P")-strings.Count(filler, "P")*(n+1) == n
		},
		gen.IntRange(0, 20),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
