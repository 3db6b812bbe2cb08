package docstore

import (
	"strconv"

	"pkbuild/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

// String returns readable tree of the docSet without document content, it
// is stored in debug report.
func (ds *DocSet) String() string {
	if ds == nil {
		return "<nil DocSet>"
	}
	return treeWriter{debug.NewTreeWriter()}.docSet(ds).String()
}

// Dump returns readable trees of all docSets keyed by docSet id.
func (s *Store) Dump() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]string, len(s.docSets))
	for _, ds := range s.docSets {
		res[ds.ID] = ds.String()
	}
	return res
}

func (tw treeWriter) docSet(ds *DocSet) treeWriter {
	tw.Line(0, "DocSet id=%q documents=%d", ds.ID, len(ds.Documents))
	for _, sel := range ds.Selectors {
		tw.Line(1, "Selector %s=%q", sel.Key, sel.Value)
	}
	for i := range ds.Documents {
		tw.document(1, &ds.Documents[i])
	}
	return tw
}

func (tw treeWriter) document(depth int, d *Document) {
	tw.Line(depth, "Document book=%s id=%s type=%s bytes=%d", d.BookCode, d.ID, d.ContentType, len(d.Content))
	for _, h := range d.Headers {
		tw.TextBlock(depth+1, h.Key, h.Value)
	}
	tw.List(depth+1, "tags", d.Tags)
	for _, c := range d.Chapters {
		verses := make([]string, 0, len(c.Verses))
		for _, v := range c.Verses {
			r := v.Range
			if r == "" {
				r = strconv.Itoa(v.Number)
			}
			// verses of a range share it
			if len(verses) > 0 && verses[len(verses)-1] == r {
				continue
			}
			verses = append(verses, r)
		}
		tw.List(depth+1, "Chapter "+strconv.Itoa(c.Number), verses)
	}
}
