package templates

import (
	"regexp"
	"strings"
)

var (
	declarationPattern = regexp.MustCompile(`<%\s*template:\s*(\S.*?)\s*%>`)
	startPattern       = regexp.MustCompile(`<%\s*start:\s*(\S.*?)\s*%>`)
	endPattern         = regexp.MustCompile(`<%\s*end:\s*(\S.*?)\s*%>`)
	insertPattern      = regexp.MustCompile(`<%=\s*insert:\s*(\S.*?)\s*%>`)
)

// ExtractDeclaredParent returns the path named by the first
// `<% template: PATH %>` tag in text. Later declarations are ignored.
func ExtractDeclaredParent(text string) (string, bool) {
	m := declarationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ExtractNamedSections returns the trimmed content of every
// `<% start: NAME %> ... <% end: NAME %>` region in text, keyed by NAME.
//
// A region closes at the first end tag carrying the same name; end tags for
// other names are part of the content. Scanning resumes after the closing
// tag, so a region nested inside another is only visible as part of the
// outer content. When a name occurs more than once the last region wins.
func ExtractNamedSections(text string) map[string]string {
	sections := make(map[string]string)

	pos := 0
	for pos < len(text) {
		loc := startPattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		name := strings.TrimSpace(text[pos+loc[2] : pos+loc[3]])
		bodyStart := pos + loc[1]

		endStart, endStop, ok := findEnd(text, bodyStart, name)
		if !ok {
			pos = bodyStart
			continue
		}

		sections[name] = strings.TrimSpace(text[bodyStart:endStart])
		pos = endStop
	}

	return sections
}

func findEnd(text string, from int, name string) (int, int, bool) {
	for _, m := range endPattern.FindAllStringSubmatchIndex(text[from:], -1) {
		if strings.TrimSpace(text[from+m[2]:from+m[3]]) == name {
			return from + m[0], from + m[1], true
		}
	}
	return 0, 0, false
}

// sectionNames returns the keys of sections, for error context.
func sectionNames(sections map[string]string) []string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	return names
}
