package filter

import (
	"regexp"
	"strings"
)

// LinkKind is milestone used for markdown link depending on its target.
type LinkKind string

const (
	LinkWeb       LinkKind = "zweblink"
	LinkEmail     LinkKind = "zemaillink"
	LinkTelephone LinkKind = "ztellink"
	LinkReference LinkKind = "zreflink"
)

var reMarkdownLink = regexp.MustCompile(`(!?)\[([^\[\]]*)\]\(([^()\s]*)\)`)

// ClassifyLink determines milestone kind for link target. Everything which
// is not a web, mail or phone link is treated as scripture reference.
func ClassifyLink(link string) LinkKind {
	l := strings.ToLower(link)
	switch {
	case strings.HasPrefix(l, "http://"), strings.HasPrefix(l, "https://"), strings.HasPrefix(l, "www."):
		return LinkWeb
	case strings.HasPrefix(l, "mailto:"):
		return LinkEmail
	case strings.HasPrefix(l, "tel:"):
		return LinkTelephone
	}
	return LinkReference
}

// MarkdownToMilestones converts markdown links [text](link) embedded in
// the book into link milestones. Images ![alt](src) are left as is.
func MarkdownToMilestones(text, _, _ string) string {
	if !strings.Contains(text, "](") {
		return text
	}
	return reMarkdownLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := reMarkdownLink.FindStringSubmatch(m)
		if sub[1] == "!" {
			return m
		}
		kind := ClassifyLink(sub[3])
		var b strings.Builder
		b.WriteString(`\`)
		b.WriteString(string(kind))
		b.WriteString(`-s |link="`)
		b.WriteString(sub[3])
		b.WriteString(`"\*`)
		b.WriteString(sub[2])
		b.WriteString(`\`)
		b.WriteString(string(kind))
		b.WriteString(`-e\*`)
		return b.String()
	})
}
