package docstore

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type (
	Header struct {
		Key   string `ion:"key"`
		Value string `ion:"value"`
	}

	Verse struct {
		Number int    `ion:"number"`
		Range  string `ion:"range"`
	}

	Chapter struct {
		Number int     `ion:"number"`
		Verses []Verse `ion:"verses"`
	}

	// Document is a single book added to docSet.
	Document struct {
		ID          string    `ion:"id"`
		BookCode    string    `ion:"bookCode"`
		ContentType string    `ion:"contentType"`
		Headers     []Header  `ion:"headers"`
		Tags        []string  `ion:"tags"`
		Chapters    []Chapter `ion:"chapters"`
		Content     string    `ion:"content"`
	}
)

// Header returns value of document header, empty when absent.
func (d *Document) Header(key string) string {
	for _, h := range d.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// canonical book order, unknown book codes go after in alphabetical order
var bookOrder = []string{
	"FRT", "INT",
	"GEN", "EXO", "LEV", "NUM", "DEU", "JOS", "JDG", "RUT", "1SA", "2SA",
	"1KI", "2KI", "1CH", "2CH", "EZR", "NEH", "EST", "JOB", "PSA", "PRO",
	"ECC", "SNG", "ISA", "JER", "LAM", "EZK", "DAN", "HOS", "JOL", "AMO",
	"OBA", "JON", "MIC", "NAM", "HAB", "ZEP", "HAG", "ZEC", "MAL",
	"TOB", "JDT", "ESG", "WIS", "SIR", "BAR", "LJE", "S3Y", "SUS", "BEL",
	"1MA", "2MA", "3MA", "4MA", "1ES", "2ES", "MAN", "PS2", "ODA", "PSS",
	"MAT", "MRK", "LUK", "JHN", "ACT", "ROM", "1CO", "2CO", "GAL", "EPH",
	"PHP", "COL", "1TH", "2TH", "1TI", "2TI", "TIT", "PHM", "HEB", "JAS",
	"1PE", "2PE", "1JN", "2JN", "3JN", "JUD", "REV",
	"GLO", "TDX", "NDX", "BAK", "OTH", "CNC",
}

var bookIndex = func() map[string]int {
	m := make(map[string]int, len(bookOrder))
	for i, code := range bookOrder {
		if _, ok := m[code]; !ok {
			m[code] = i
		}
	}
	return m
}()

func compareBooks(a, b string) int {
	ia, aok := bookIndex[a]
	ib, bok := bookIndex[b]
	switch {
	case aok && bok:
		return ia - ib
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

func sortDocuments(docs []Document) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		return compareBooks(a.BookCode, b.BookCode)
	})
}

var (
	reBookCode = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	reChapter  = regexp.MustCompile(`^[0-9]+$`)
	reVerse    = regexp.MustCompile(`^([0-9]+)[a-z]?(?:-([0-9]+)[a-z]?)?$`)
)

// maximum number of verses single verse range may cover
const maxVerseSpan = 200

// builder accumulates document structure while source is scanned.
type builder struct {
	doc     Document
	chapter *Chapter
}

func (b *builder) book(code, rest string) error {
	if b.doc.BookCode != "" {
		return fmt.Errorf("more than one book in document: %s and %s", b.doc.BookCode, code)
	}
	code = strings.ToUpper(code)
	if !reBookCode.MatchString(code) {
		return fmt.Errorf("invalid book code %q", code)
	}
	b.doc.BookCode = code
	if rest != "" {
		b.header("id", rest)
	}
	return nil
}

func (b *builder) header(key, value string) {
	if value == "" {
		return
	}
	for _, h := range b.doc.Headers {
		if h.Key == key {
			// first one wins
			return
		}
	}
	b.doc.Headers = append(b.doc.Headers, Header{Key: key, Value: value})
}

func (b *builder) startChapter(num string) error {
	if b.doc.BookCode == "" {
		return fmt.Errorf("chapter %s before book identification", num)
	}
	if !reChapter.MatchString(num) {
		return fmt.Errorf("invalid chapter number %q", num)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n == 0 {
		return fmt.Errorf("invalid chapter number %q", num)
	}
	b.doc.Chapters = append(b.doc.Chapters, Chapter{Number: n})
	b.chapter = &b.doc.Chapters[len(b.doc.Chapters)-1]
	return nil
}

func (b *builder) verse(num string) error {
	if b.chapter == nil {
		return fmt.Errorf("verse %s outside of chapter", num)
	}
	m := reVerse.FindStringSubmatch(num)
	if m == nil {
		return fmt.Errorf("invalid verse number %q in chapter %d", num, b.chapter.Number)
	}
	from, _ := strconv.Atoi(m[1])
	to := from
	if m[2] != "" {
		to, _ = strconv.Atoi(m[2])
	}
	if to < from || to-from > maxVerseSpan {
		return fmt.Errorf("invalid verse range %q in chapter %d", num, b.chapter.Number)
	}
	for n := from; n <= to; n++ {
		b.chapter.Verses = append(b.chapter.Verses, Verse{Number: n, Range: num})
	}
	return nil
}

func (b *builder) finish() (*Document, error) {
	if b.doc.BookCode == "" {
		return nil, fmt.Errorf("no book identification found")
	}
	return &b.doc, nil
}
