// Package appdef loads application definition: book collections, their
// books and traits.
package appdef

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/rupor-github/gencfg"
	"golang.org/x/text/language"

	"pkbuild/common"
)

// TraitHasGlossary marks collections which have glossary book(s), their
// scripture books are verified against glossary terms.
const TraitHasGlossary = "has-glossary"

type (
	Book struct {
		ID        string          `json:"id" validate:"required"`
		Name      string          `json:"name"`
		File      string          `json:"file"`
		Type      common.BookType `json:"type" validate:"required"`
		Section   string          `json:"section"`
		Testament string          `json:"testament"`
	}

	Collection struct {
		ID           string          `json:"id" validate:"required,excludesall=/\\"`
		LanguageCode string          `json:"languageCode" validate:"required,excludesall=/\\"`
		Name         string          `json:"name"`
		Books        []Book          `json:"books" validate:"dive"`
		Traits       map[string]bool `json:"traits,omitempty"`
	}

	Definition struct {
		Traits      map[string]bool `json:"traits,omitempty"`
		Collections []Collection    `json:"bookCollections" validate:"dive"`
	}
)

// DocSet returns key of the document store docSet for collection.
func (c *Collection) DocSet() string {
	return c.LanguageCode + "_" + c.ID
}

// HasTrait checks collection trait flag.
func (c *Collection) HasTrait(name string) bool {
	return c.Traits[name]
}

// Load reads application definition XML.
func Load(fname string) (*Definition, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromFile(fname); err != nil {
		return nil, fmt.Errorf("unable to read application definition: %w", err)
	}
	def, err := parse(doc)
	if err != nil {
		return nil, fmt.Errorf("unable to parse application definition (%s): %w", fname, err)
	}
	return def, nil
}

// Parse reads application definition from XML text.
func Parse(data string) (*Definition, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("unable to read application definition: %w", err)
	}
	return parse(doc)
}

func parse(doc *etree.Document) (*Definition, error) {
	root := doc.SelectElement("app-definition")
	if root == nil {
		return nil, errors.New("app-definition element not found")
	}

	def := &Definition{Traits: make(map[string]bool)}
	for _, t := range root.FindElements("./traits/trait") {
		name := t.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		v, err := strconv.ParseBool(t.SelectAttrValue("value", "true"))
		if err != nil {
			return nil, fmt.Errorf("trait %q: %w", name, err)
		}
		def.Traits[name] = v
	}

	for _, el := range root.SelectElements("books") {
		col, err := parseCollection(el)
		if err != nil {
			return nil, err
		}
		def.Collections = append(def.Collections, col)
	}
	def.inheritTraits()

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func parseCollection(el *etree.Element) (Collection, error) {
	col := Collection{
		ID:     el.SelectAttrValue("id", ""),
		Name:   childText(el, "book-collection-name"),
		Traits: make(map[string]bool),
	}
	if ws := el.SelectElement("writing-system"); ws != nil {
		col.LanguageCode = ws.SelectAttrValue("code", "")
	}

	for _, b := range el.SelectElements("book") {
		bt, err := common.BookTypeFromAttr(b.SelectAttrValue("type", ""))
		if err != nil {
			return col, fmt.Errorf("collection %s, book %s: %w", col.ID, b.SelectAttrValue("id", ""), err)
		}
		col.Books = append(col.Books, Book{
			ID:        b.SelectAttrValue("id", ""),
			Name:      childText(b, "name"),
			File:      childText(b, "filename"),
			Type:      bt,
			Section:   childText(b, "section"),
			Testament: childText(b, "testament"),
		})
		if bt == common.BookTypeGlossary {
			col.Traits[TraitHasGlossary] = true
		}
	}
	return col, nil
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// inheritTraits propagates collection traits to the definition and explicit
// definition traits to every collection.
func (d *Definition) inheritTraits() {
	for i := range d.Collections {
		for name, v := range d.Collections[i].Traits {
			if v {
				d.Traits[name] = true
			}
		}
	}
	for name, v := range d.Traits {
		if !v {
			continue
		}
		for i := range d.Collections {
			if d.Collections[i].Traits == nil {
				d.Collections[i].Traits = make(map[string]bool)
			}
			d.Collections[i].Traits[name] = true
		}
	}
}

// Validate checks definition structure. Books which will be read from disk
// must have relative file names which stay inside collection directory.
func (d *Definition) Validate() error {
	if err := gencfg.Validate(d); err != nil {
		return fmt.Errorf("application definition is invalid: %w", err)
	}
	for _, c := range d.Collections {
		for _, b := range c.Books {
			if !b.Type.HasSource() {
				continue
			}
			if b.File == "" {
				return fmt.Errorf("collection %s, book %s: file name is required for %s book", c.ID, b.ID, b.Type)
			}
			if p := path.Clean(strings.ReplaceAll(b.File, `\`, "/")); path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
				return fmt.Errorf("collection %s, book %s: file %q is outside of collection directory", c.ID, b.ID, b.File)
			}
		}
	}
	return nil
}

// CheckLanguage reports language codes which are not well formed BCP 47 or
// ISO 639 codes. Such codes are still usable as docSet keys.
func CheckLanguage(code string) error {
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("language code %q is not recognized: %w", code, err)
	}
	return nil
}

// Warnings lists non fatal anomalies of the definition.
func (d *Definition) Warnings() []string {
	var res []string
	for _, c := range d.Collections {
		if err := CheckLanguage(c.LanguageCode); err != nil {
			res = append(res, fmt.Sprintf("collection %s: %v", c.ID, err))
		}
	}
	return res
}
