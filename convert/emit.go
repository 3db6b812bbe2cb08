package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"pkbuild/docstore"
)

// Artifact locations relative to output directory.
const (
	CollectionsDir = "collections"
	CatalogDir     = CollectionsDir + "/catalog"
	IndexFile      = CollectionsDir + "/index.js"
	ArchiveExt     = ".pkf"
)

var indexTemplate = template.Must(template.New("index").Funcs(sprig.FuncMap()).Parse(
	`export const collections = [{{ range $i, $id := . }}{{ if $i }}, {{ end }}{{ squote $id }}{{ end }}];`))

// artifacts prepares catalog files, frozen archives and index in this order.
// Catalog results are expected in collection order with a single docSet
// each.
func artifacts(results []*docstore.CatalogResult, frozen map[string][]byte, order []string) ([]File, error) {
	files := make([]File, 0, 2*len(order)+1)
	for _, res := range results {
		if res == nil || len(res.DocSets) == 0 {
			return nil, fmt.Errorf("catalog query returned no docSets")
		}
		cat := docstore.ParseChapterVerseMapInDocSets(res.DocSets[:1])[0]
		data, err := json.Marshal(cat)
		if err != nil {
			return nil, fmt.Errorf("unable to encode catalog of %s: %w", cat.ID, err)
		}
		files = append(files, File{Path: path.Join(CatalogDir, cat.ID+".json"), Content: data})
	}
	for _, id := range order {
		files = append(files, File{Path: path.Join(CollectionsDir, id+ArchiveExt), Content: frozen[id]})
	}
	index, err := Index(order)
	if err != nil {
		return nil, err
	}
	return append(files, File{Path: IndexFile, Content: index}), nil
}

// Index produces module exporting list of docSet ids.
func Index(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, ids); err != nil {
		return nil, fmt.Errorf("unable to generate index: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores files under output directory overwriting existing ones.
func Write(outDir string, files []File) error {
	for _, f := range files {
		fname := filepath.Join(outDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
			return fmt.Errorf("unable to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(fname, f.Content, 0644); err != nil {
			return fmt.Errorf("unable to write %s: %w", f.Path, err)
		}
	}
	return nil
}
