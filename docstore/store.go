// Package docstore is in-memory scripture document store. Documents are
// grouped into docSets identified by language and collection abbreviation
// selectors. Store answers catalog queries and can be frozen into compact
// archives and thawed back.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Selector keys identifying docSet.
const (
	SelectorLang = "lang"
	SelectorAbbr = "abbr"
)

// Supported content types.
const (
	ContentUSFM = "usfm"
	ContentSFM  = "sfm"
	ContentUSX  = "usx"
)

type (
	Selector struct {
		Key   string `json:"key" ion:"key"`
		Value string `json:"value" ion:"value"`
	}

	AddDocumentRequest struct {
		Selectors   []Selector
		ContentType string
		Content     string
		Tags        []string
	}

	ResponseError struct {
		Message string `json:"message"`
	}

	ResponseData struct {
		AddDocument bool `json:"addDocument"`
	}

	// Response reports result of mutation, errors are only present when
	// mutation was not successful.
	Response struct {
		Data   ResponseData    `json:"data"`
		Errors []ResponseError `json:"errors,omitempty"`
	}

	DocSet struct {
		ID        string     `ion:"id"`
		Selectors []Selector `ion:"selectors"`
		Documents []Document `ion:"documents"`
	}
)

// String returns JSON form of response used in diagnostics.
func (r *Response) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%+v", *r)
	}
	return string(data)
}

func failed(format string, args ...any) *Response {
	return &Response{Errors: []ResponseError{{Message: fmt.Sprintf(format, args...)}}}
}

// DocSetID builds docSet key from selectors.
func DocSetID(selectors []Selector) (string, error) {
	var lang, abbr string
	for _, s := range selectors {
		switch s.Key {
		case SelectorLang:
			lang = s.Value
		case SelectorAbbr:
			abbr = s.Value
		}
	}
	if lang == "" || abbr == "" {
		return "", fmt.Errorf("selectors %q and %q are required", SelectorLang, SelectorAbbr)
	}
	return lang + "_" + abbr, nil
}

// Store is safe for concurrent use.
type Store struct {
	log *zap.Logger

	mu      sync.Mutex
	docSets []*DocSet
}

func New(log *zap.Logger) *Store {
	return &Store{log: log}
}

// AddDocument parses content and adds document to the docSet selected by
// request selectors. Documents which cannot be added are reported in the
// response, error is only returned when context is done.
func (s *Store) AddDocument(ctx context.Context, req AddDocumentRequest) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := DocSetID(req.Selectors)
	if err != nil {
		return failed("%v", err), nil
	}

	var doc *Document
	switch ct := strings.ToLower(req.ContentType); ct {
	case ContentUSFM, ContentSFM:
		doc, err = parseUSFM(req.Content)
	case ContentUSX:
		doc, err = parseUSX(req.Content)
	default:
		return failed("unsupported content type %q", req.ContentType), nil
	}
	if err != nil {
		return failed("unable to parse %s document: %v", req.ContentType, err), nil
	}
	doc.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(id+"/"+doc.BookCode)).String()
	doc.ContentType = strings.ToLower(req.ContentType)
	doc.Tags = append([]string(nil), req.Tags...)
	doc.Content = req.Content

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.docSet(id, req.Selectors)
	for _, d := range ds.Documents {
		if d.BookCode == doc.BookCode {
			return failed("document with book code %s already exists in docSet %s", doc.BookCode, id), nil
		}
	}
	ds.Documents = append(ds.Documents, *doc)
	sortDocuments(ds.Documents)

	s.log.Debug("Document added", zap.String("docset", id), zap.String("book", doc.BookCode), zap.Int("chapters", len(doc.Chapters)))
	return &Response{Data: ResponseData{AddDocument: true}}, nil
}

// CreateDocSet makes sure docSet exists even if no documents will ever be
// added to it.
func (s *Store) CreateDocSet(selectors []Selector) (string, error) {
	id, err := DocSetID(selectors)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docSet(id, selectors)
	return id, nil
}

// docSet finds or creates docSet, must be called under lock.
func (s *Store) docSet(id string, selectors []Selector) *DocSet {
	for _, ds := range s.docSets {
		if ds.ID == id {
			return ds
		}
	}
	ds := &DocSet{ID: id}
	for _, sel := range selectors {
		if sel.Key == SelectorLang || sel.Key == SelectorAbbr {
			ds.Selectors = append(ds.Selectors, sel)
		}
	}
	s.docSets = append(s.docSets, ds)
	return ds
}

// DocSetIDs lists docSets in order of creation.
func (s *Store) DocSetIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]string, 0, len(s.docSets))
	for _, ds := range s.docSets {
		res = append(res, ds.ID)
	}
	return res
}

// Document returns copy of the document, false when not found.
func (s *Store) Document(docSetID, bookCode string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ds := range s.docSets {
		if ds.ID != docSetID {
			continue
		}
		for _, d := range ds.Documents {
			if d.BookCode == bookCode {
				return d, true
			}
		}
	}
	return Document{}, false
}
