package docstore

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// parseUSX reads USX (XML scripture) document.
func parseUSX(text string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, err
	}
	root := doc.SelectElement("usx")
	if root == nil {
		return nil, errors.New("usx root element not found")
	}

	var b builder
	if err := walkUSX(root, &b); err != nil {
		return nil, err
	}
	return b.finish()
}

func walkUSX(el *etree.Element, b *builder) error {
	for _, c := range el.ChildElements() {
		var err error
		switch c.Tag {
		case "book":
			err = b.book(c.SelectAttrValue("code", ""), strings.TrimSpace(c.Text()))
		case "chapter":
			// milestone ends (eid) carry no number
			if num := c.SelectAttrValue("number", ""); num != "" {
				err = b.startChapter(num)
			}
		case "verse":
			if num := c.SelectAttrValue("number", ""); num != "" {
				err = b.verse(num)
			}
		case "para":
			switch style := c.SelectAttrValue("style", ""); style {
			case "h", "toc1", "toc2", "toc3":
				b.header(style, strings.TrimSpace(c.Text()))
			case "mt", "mt1":
				b.header("mt", strings.TrimSpace(c.Text()))
			default:
				err = walkUSX(c, b)
			}
		default:
			err = walkUSX(c, b)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
