package docstore

import (
	"context"
	"strconv"
)

type (
	// CatalogQuery selects what catalog query returns. CV adds chapter and
	// verse numbers of every document.
	CatalogQuery struct {
		CV bool
	}

	CVVerse struct {
		Number string `json:"number"`
		Range  string `json:"range"`
	}

	CVChapter struct {
		Chapter string    `json:"chapter"`
		Verses  []CVVerse `json:"verseNumbers"`
	}

	DocumentCatalog struct {
		ID        string      `json:"id"`
		BookCode  string      `json:"bookCode"`
		H         string      `json:"h"`
		Toc       string      `json:"toc"`
		Toc2      string      `json:"toc2"`
		Toc3      string      `json:"toc3"`
		Tags      []string    `json:"tags"`
		CVNumbers []CVChapter `json:"cvNumbers,omitempty"`
	}

	DocSetCatalog struct {
		ID        string            `json:"id"`
		Selectors []Selector        `json:"selectors"`
		Documents []DocumentCatalog `json:"documents"`
	}

	CatalogResult struct {
		DocSets []DocSetCatalog `json:"docSets"`
	}
)

// Query returns catalog of all docSets in the store.
func (s *Store) Query(ctx context.Context, q CatalogQuery) (*CatalogResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &CatalogResult{DocSets: make([]DocSetCatalog, 0, len(s.docSets))}
	for _, ds := range s.docSets {
		dsc := DocSetCatalog{
			ID:        ds.ID,
			Selectors: append([]Selector(nil), ds.Selectors...),
			Documents: make([]DocumentCatalog, 0, len(ds.Documents)),
		}
		for _, d := range ds.Documents {
			dc := DocumentCatalog{
				ID:       d.ID,
				BookCode: d.BookCode,
				H:        d.Header("h"),
				Toc:      d.Header("toc1"),
				Toc2:     d.Header("toc2"),
				Toc3:     d.Header("toc3"),
				Tags:     append([]string{}, d.Tags...),
			}
			if q.CV {
				dc.CVNumbers = cvNumbers(d.Chapters)
			}
			dsc.Documents = append(dsc.Documents, dc)
		}
		res.DocSets = append(res.DocSets, dsc)
	}
	return res, nil
}

func cvNumbers(chapters []Chapter) []CVChapter {
	res := make([]CVChapter, 0, len(chapters))
	for _, c := range chapters {
		cvc := CVChapter{Chapter: strconv.Itoa(c.Number), Verses: make([]CVVerse, 0, len(c.Verses))}
		for _, v := range c.Verses {
			cvc.Verses = append(cvc.Verses, CVVerse{Number: strconv.Itoa(v.Number), Range: v.Range})
		}
		res = append(res, cvc)
	}
	return res
}

type (
	CatalogDocument struct {
		ID               string                       `json:"id"`
		BookCode         string                       `json:"bookCode"`
		H                string                       `json:"h"`
		Toc              string                       `json:"toc"`
		Toc2             string                       `json:"toc2"`
		Toc3             string                       `json:"toc3"`
		Tags             []string                     `json:"tags"`
		VersesByChapters map[string]map[string]string `json:"versesByChapters"`
	}

	// Catalog is normalized docSet catalog written next to frozen archive.
	Catalog struct {
		ID        string            `json:"id"`
		Selectors []Selector        `json:"selectors"`
		Documents []CatalogDocument `json:"documents"`
	}
)

// ParseChapterVerseMapInDocSets turns chapter/verse lists of catalog query
// results into chapter -> verse -> range maps.
func ParseChapterVerseMapInDocSets(docSets []DocSetCatalog) []Catalog {
	res := make([]Catalog, 0, len(docSets))
	for _, ds := range docSets {
		c := Catalog{
			ID:        ds.ID,
			Selectors: ds.Selectors,
			Documents: make([]CatalogDocument, 0, len(ds.Documents)),
		}
		for _, d := range ds.Documents {
			cd := CatalogDocument{
				ID:               d.ID,
				BookCode:         d.BookCode,
				H:                d.H,
				Toc:              d.Toc,
				Toc2:             d.Toc2,
				Toc3:             d.Toc3,
				Tags:             d.Tags,
				VersesByChapters: make(map[string]map[string]string, len(d.CVNumbers)),
			}
			for _, ch := range d.CVNumbers {
				verses, ok := cd.VersesByChapters[ch.Chapter]
				if !ok {
					verses = make(map[string]string, len(ch.Verses))
					cd.VersesByChapters[ch.Chapter] = verses
				}
				for _, v := range ch.Verses {
					verses[v.Number] = v.Range
				}
			}
			c.Documents = append(c.Documents, cd)
		}
		res = append(res, c)
	}
	return res
}
