package convert

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pkbuild/appdef"
	"pkbuild/common"
	"pkbuild/docstore"
	"pkbuild/filter"
	"pkbuild/glossary"
	"pkbuild/state"
)

// TaskName identifies book conversion step.
const TaskName = "ConvertBooks"

// ErrDuplicateDocSet is returned when two collections map to the same
// docSet.
var ErrDuplicateDocSet = errors.New("duplicate docSet")

type (
	// File is generated artifact, path is relative to output directory and
	// slash separated.
	File struct {
		Path    string
		Content []byte
	}

	DocSetSummary struct {
		DocSet     string
		Collection string
		Language   string
		Books      []string
		Ignored    []string
		Quizzes    []string
		Glossary   int
		Chapters   int
		Archive    int
		Elapsed    time.Duration
	}

	// Output is result of book conversion. Files is empty when conversion
	// was skipped.
	Output struct {
		TaskName string
		RunID    uuid.UUID
		Skipped  bool
		Files    []File
		DocSets  []DocSetSummary
		Missing  []string
	}
)

// converter keeps per run state shared by all collections.
type converter struct {
	env      *state.LocalEnv
	log      *zap.Logger
	booksDir string
	chain    filter.Chain
	rptDir   string

	// serializes human readable output
	outMu sync.Mutex
}

func (c *converter) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.env.Stdout, format, args...)
}

// Books converts all collections of the definition. For every collection
// books are added to fresh document store concurrently, store is frozen
// after all of them are in and catalog query is started. Catalog queries
// are awaited after all collections are processed. Any failure aborts the
// whole conversion and nothing is produced.
func Books(ctx context.Context, env *state.LocalEnv, dataDir string, def *appdef.Definition) (*Output, error) {
	log := env.Log.Named("books")

	out := &Output{TaskName: TaskName, RunID: uuid.New()}

	ill := filter.NewIllustrations(env.Cfg.Build.IllustrationsPath(dataDir), log)
	ill.OnMissing(func(col, book, file string) {
		if env.Verbose > 0 {
			log.Info("Figure removed, illustration not found", zap.String("collection", col), zap.String("book", book), zap.String("file", file))
		}
	})

	c := &converter{
		env:      env,
		log:      log,
		booksDir: filepath.Join(dataDir, filepath.FromSlash(env.Cfg.Build.BooksPrefix)),
		chain:    filter.New(ill),
		rptDir:   path.Join("runs", out.RunID.String()),
	}

	if err := uniqueDocSets(def.Collections); err != nil {
		return nil, err
	}

	var (
		frozen   = make(map[string][]byte)
		order    []string
		langs    = make(map[string]string)
		catalogs errgroup.Group
		results  = make([]*docstore.CatalogResult, len(def.Collections))
	)
	for i, col := range def.Collections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := col.DocSet()
		if first, used := langs[col.LanguageCode]; used {
			log.Warn("Language already used in another collection, proceeding anyway",
				zap.String("language", col.LanguageCode), zap.String("collection", col.ID), zap.String("used by", first))
		} else {
			langs[col.LanguageCode] = col.ID
		}

		store, summary, err := c.collection(ctx, col)
		if err != nil {
			return nil, err
		}

		archives, err := store.Freeze()
		if err != nil {
			return nil, fmt.Errorf("unable to freeze collection %s: %w", col.ID, err)
		}
		data, ok := archives[id]
		if !ok {
			return nil, fmt.Errorf("unable to freeze collection %s: docSet %s is missing", col.ID, id)
		}
		frozen[id] = data
		if env.Rpt != nil {
			for dsID, dump := range store.Dump() {
				env.Rpt.StoreData(path.Join(c.rptDir, "docsets", dsID+".txt"), []byte(dump))
			}
		}
		order = append(order, id)
		summary.Archive = len(data)
		out.DocSets = append(out.DocSets, summary)

		catalogs.Go(func() error {
			res, err := store.Query(ctx, docstore.CatalogQuery{CV: true})
			if err != nil {
				return fmt.Errorf("unable to query catalog of %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := catalogs.Wait(); err != nil {
		return nil, err
	}
	for i, res := range results {
		for _, ds := range res.DocSets {
			for _, d := range ds.Documents {
				out.DocSets[i].Chapters += len(d.CVNumbers)
			}
		}
	}

	files, err := artifacts(results, frozen, order)
	if err != nil {
		return nil, err
	}
	out.Files = files
	out.Missing = ill.Missing()
	if len(out.Missing) > 0 {
		log.Warn("Figures with missing illustrations were removed", zap.Int("files", len(out.Missing)), zap.String("directory", ill.Dir()))
		env.Rpt.StoreData(path.Join(c.rptDir, "missing-illustrations.txt"), []byte(strings.Join(out.Missing, "\n")+"\n"))
	}
	return out, nil
}

// uniqueDocSets makes sure no two collections share docSet key.
func uniqueDocSets(cols []appdef.Collection) error {
	seen := make(map[string]string, len(cols))
	for _, col := range cols {
		id := col.DocSet()
		if first, exists := seen[id]; exists {
			return fmt.Errorf("%w: %s (collections %s and %s)", ErrDuplicateDocSet, id, first, col.ID)
		}
		seen[id] = col.ID
	}
	return nil
}

// collection adds all books of the collection to a new store.
func (c *converter) collection(ctx context.Context, col appdef.Collection) (*docstore.Store, DocSetSummary, error) {
	start := time.Now()
	summary := DocSetSummary{DocSet: col.DocSet(), Collection: col.ID, Language: col.LanguageCode}

	if c.env.Verbose > 0 {
		c.log.Info("Converting collection", zap.String("collection", col.ID), zap.String("docset", summary.DocSet))
	}

	store := docstore.New(c.log.Named("docstore"))
	if _, err := store.CreateDocSet(selectors(col)); err != nil {
		return nil, summary, fmt.Errorf("collection %s: %w", col.ID, err)
	}

	var terms []string
	if col.HasTrait(appdef.TraitHasGlossary) {
		var err error
		if terms, err = glossary.Load(col, c.booksDir); err != nil {
			return nil, summary, fmt.Errorf("collection %s: %w", col.ID, err)
		}
		summary.Glossary = len(terms)
	}

	g, gctx := errgroup.WithContext(ctx)
	if n := c.env.Cfg.Build.Parallel; n > 0 {
		g.SetLimit(n)
	}
	for _, b := range col.Books {
		switch {
		case b.Type.Ignored():
			summary.Ignored = append(summary.Ignored, b.ID)
		case b.Type == common.BookTypeQuiz:
			c.quiz(col, b)
			summary.Quizzes = append(summary.Quizzes, b.ID)
		default:
			summary.Books = append(summary.Books, b.ID)
			g.Go(func() error {
				return c.scripture(gctx, store, col, b, terms)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, summary, err
	}

	c.printf("%s\n", summaryLine(col.ID, summary.Books, summary.Ignored))
	summary.Elapsed = time.Since(start)
	if c.env.Verbose > 0 {
		c.log.Info("Collection converted", zap.String("collection", col.ID), zap.Duration("elapsed", summary.Elapsed))
	}
	return store, summary, nil
}

// summaryLine formats per collection console line.
func summaryLine(colID string, books, ignored []string) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(colID)
	b.WriteString(":")
	for _, id := range books {
		b.WriteString(" ")
		b.WriteString(id)
	}
	if len(ignored) > 0 {
		b.WriteString(" -- Not Supported: ")
		b.WriteString(strings.Join(ignored, " "))
	}
	return b.String()
}

func selectors(col appdef.Collection) []docstore.Selector {
	return []docstore.Selector{
		{Key: docstore.SelectorLang, Value: col.LanguageCode},
		{Key: docstore.SelectorAbbr, Value: col.ID},
	}
}

// contentType is inferred from book file extension.
func contentType(file string) string {
	if i := strings.LastIndexByte(file, '.'); i >= 0 {
		return file[i+1:]
	}
	return file
}

// quiz books are recognized but not converted yet.
func (c *converter) quiz(col appdef.Collection, b appdef.Book) {
	if c.env.Verbose > 0 {
		c.log.Info("Converting quiz book", zap.String("collection", col.ID), zap.String("book", b.ID))
	}
}

// scripture reads, filters and submits single book to the store.
func (c *converter) scripture(ctx context.Context, store *docstore.Store, col appdef.Collection, b appdef.Book, terms []string) error {
	fname := filepath.Join(c.booksDir, col.ID, filepath.FromSlash(b.File))
	text, err := common.ReadSource(fname)
	if err != nil {
		return fmt.Errorf("unable to read book %s of collection %s: %w", b.ID, col.ID, err)
	}

	text = c.chain.Apply(text, col.ID, b.ID)
	if col.HasTrait(appdef.TraitHasGlossary) {
		text = glossary.Verify(text, terms)
	}
	c.env.Rpt.StoreData(path.Join(c.rptDir, "filtered", col.DocSet(), slug.Make(b.File)), []byte(text))

	resp, err := store.AddDocument(ctx, docstore.AddDocumentRequest{
		Selectors:   selectors(col),
		ContentType: contentType(b.File),
		Content:     text,
		Tags:        []string{"sections:" + b.Section, "testament:" + b.Testament},
	})
	if err != nil {
		return err
	}
	if c.env.Verbose > 0 {
		prefix := ""
		if !resp.Data.AddDocument {
			prefix = "failed: "
		}
		c.printf("%s%s <- %s: %s\n", prefix, col.DocSet(), b.Name, fname)
	}
	if !resp.Data.AddDocument {
		return fmt.Errorf("adding document, likely not USFM? : %s\n%s", fname, resp)
	}
	return nil
}

