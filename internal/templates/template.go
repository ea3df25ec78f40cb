// Package templates implements template inheritance for site pages. A page
// or template declares its parent with `<% template: PATH %>` and supplies
// named sections; the parent's `<%= insert: NAME %>` markers are replaced by
// the matching section content.
package templates

import "strings"

// Template is a loaded template file. Its content is immutable; it is shared
// by every page that references it during a build.
type Template struct {
	// Path is the absolute path of the template file, also its cache key.
	Path    string
	Content string
}

// Expand returns the template's content with every insert marker replaced by
// the matching entry in sections. Markers without an entry are left as-is.
func (t *Template) Expand(sections map[string]string) string {
	return insertPattern.ReplaceAllStringFunc(t.Content, func(marker string) string {
		m := insertPattern.FindStringSubmatch(marker)
		if content, ok := sections[strings.TrimSpace(m[1])]; ok {
			return content
		}
		return marker
	})
}

// Parent returns the template this template itself inherits from, if any.
func (t *Template) Parent() (string, bool) {
	return ExtractDeclaredParent(t.Content)
}
