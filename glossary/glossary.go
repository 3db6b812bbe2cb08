// Package glossary extracts glossary terms from collection glossary books
// and verifies glossary word markers of scripture books against them.
package glossary

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"pkbuild/appdef"
	"pkbuild/common"
)

var (
	reKeyword  = regexp.MustCompile(`\\k\s*([^\\]+)\s*\\k\*`)
	reWord     = regexp.MustCompile(`\\w ([^|\\]*)(?:\|([^\\]*))?\\w\*`)
	reLemmaAtt = regexp.MustCompile(`lemma="([^"]*)"`)
)

// Load reads all glossary books of the collection from
// <booksDir>/<collection id>/ and returns terms in order of appearance.
// Any read error is returned.
func Load(col appdef.Collection, booksDir string) ([]string, error) {
	var terms []string
	for _, b := range col.Books {
		if b.Type != common.BookTypeGlossary {
			continue
		}
		fname := filepath.Join(booksDir, col.ID, filepath.FromSlash(b.File))
		text, err := common.ReadSource(fname)
		if err != nil {
			return nil, fmt.Errorf("unable to load glossary: %w", err)
		}
		terms = append(terms, Terms(text)...)
	}
	return terms, nil
}

// Terms extracts \k TERM\k* keywords.
func Terms(text string) []string {
	var terms []string
	for _, m := range reKeyword.FindAllStringSubmatch(text, -1) {
		terms = append(terms, m[1])
	}
	return terms
}

// Verify unwraps \w ...\w* glossary words which are not defined in
// glossary leaving bare word in place. Word is looked up by its lemma when
// present. Comparison ignores case and surrounding spaces.
func Verify(text string, terms []string) string {
	if !strings.Contains(text, `\w `) {
		return text
	}
	known := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		known[normalize(t)] = struct{}{}
	}
	return reWord.ReplaceAllStringFunc(text, func(m string) string {
		sub := reWord.FindStringSubmatch(m)
		word, key := sub[1], lemma(sub[1], sub[2])
		if _, ok := known[normalize(key)]; ok {
			return m
		}
		return word
	})
}

func lemma(word, attrs string) string {
	switch {
	case attrs == "":
		return word
	case !strings.Contains(attrs, "="):
		// default attribute
		return attrs
	}
	if m := reLemmaAtt.FindStringSubmatch(attrs); m != nil {
		return m[1]
	}
	return word
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
