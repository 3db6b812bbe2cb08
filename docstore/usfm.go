package docstore

import (
	"regexp"
	"strings"
)

var reMarker = regexp.MustCompile(`\\(\+?[A-Za-z][A-Za-z0-9-]*)(\*?)`)

// parseUSFM scans USFM/SFM markers relevant for document structure. Text
// content and character styles are kept as is in the document content.
func parseUSFM(text string) (*Document, error) {
	var b builder
	for _, m := range reMarker.FindAllStringSubmatchIndex(text, -1) {
		if m[5] > m[4] {
			// closing marker
			continue
		}
		name, rest := text[m[2]:m[3]], lineRest(text[m[1]:])
		var err error
		switch name {
		case "id":
			code, tail, _ := strings.Cut(rest, " ")
			err = b.book(code, strings.TrimSpace(tail))
		case "h", "toc1", "toc2", "toc3":
			b.header(name, rest)
		case "mt", "mt1":
			b.header("mt", rest)
		case "c":
			err = b.startChapter(firstField(rest))
		case "v":
			err = b.verse(firstField(rest))
		}
		if err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// lineRest returns text up to the end of line or next marker.
func lineRest(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
