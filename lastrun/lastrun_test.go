package lastrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"pkbuild/appdef"
	"pkbuild/common"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "nested", "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func testCollections() []appdef.Collection {
	return []appdef.Collection{{
		ID:           "col1",
		LanguageCode: "en",
		Name:         "English",
		Traits:       map[string]bool{appdef.TraitHasGlossary: true},
		Books: []appdef.Book{
			{ID: "GEN", Name: "Genesis", File: "GEN.usfm", Type: common.BookTypeScripture, Section: "Law", Testament: "OT"},
		},
	}}
}

func TestFirstRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections() error = %v", err)
	}
	if cols != nil {
		t.Errorf("Collections() = %v, want nil on first run", cols)
	}
	if _, err := s.LastRun(ctx); !errors.Is(err, ErrNoState) {
		t.Errorf("LastRun() error = %v, want ErrNoState", err)
	}
	fps, err := s.Fingerprints(ctx)
	if err != nil || len(fps) != 0 {
		t.Errorf("Fingerprints() = %v, %v", fps, err)
	}
}

func TestCommit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:           uuid.New(),
		Collections:  testCollections(),
		Fingerprints: map[string]string{"books/col1/GEN.usfm": Digest([]byte("x"))},
		Artifacts: []Artifact{
			NewArtifact("collections/en_col1.pkf", []byte("archive")),
			NewArtifact("collections/index.js", []byte("index")),
		},
	}
	if err := s.Commit(ctx, run); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cols, err := s.Collections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := Restrict(testCollections()); !reflect.DeepEqual(cols, want) {
		t.Errorf("Collections() = %+v, want %+v", cols, want)
	}
	if cols[0].Name != "" || cols[0].Traits != nil {
		t.Error("remembered collections must be restricted")
	}

	info, err := s.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun() error = %v", err)
	}
	if info.ID != run.ID || len(info.Artifacts) != 2 || info.Artifacts[0].Path != "collections/en_col1.pkf" || info.Artifacts[0].Size != 7 {
		t.Errorf("LastRun() = %+v", info)
	}
	if info.Finished.IsZero() {
		t.Error("LastRun() has no finish time")
	}

	// next commit replaces everything
	next := Run{ID: uuid.New(), Fingerprints: map[string]string{}}
	if err := s.Commit(ctx, next); err != nil {
		t.Fatal(err)
	}
	cols, err = s.Collections(ctx)
	if err != nil || cols == nil || len(cols) != 0 {
		t.Errorf("Collections() = %v, %v, want empty", cols, err)
	}
	info, err = s.LastRun(ctx)
	if err != nil || info.ID != next.ID || len(info.Artifacts) != 0 {
		t.Errorf("LastRun() = %+v, %v", info, err)
	}
	fps, err := s.Fingerprints(ctx)
	if err != nil || len(fps) != 0 {
		t.Errorf("Fingerprints() = %v, %v", fps, err)
	}
}

func TestPersistence(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, Run{ID: uuid.New(), Collections: testCollections()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	cols, err := s.Collections(ctx)
	if err != nil || len(cols) != 1 || cols[0].ID != "col1" {
		t.Errorf("Collections() after reopen = %v, %v", cols, err)
	}
}

func TestChanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	root := t.TempDir()

	write := func(rel, text string) {
		t.Helper()
		fname := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(fname, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// nothing there yet
	changed, current, err := s.Changed(ctx, root, "books")
	if err != nil || len(changed) != 0 || len(current) != 0 {
		t.Fatalf("Changed() = %v, %v, %v", changed, current, err)
	}

	write("books/col1/GEN.usfm", "\\id GEN")
	write("books/col1/EXO.usfm", "\\id EXO")
	write("appdef.xml", "<app-definition/>")

	changed, current, err = s.Changed(ctx, root, "books")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"books/col1/EXO.usfm", "books/col1/GEN.usfm"}; !reflect.DeepEqual(changed, want) {
		t.Errorf("Changed() = %v, want %v", changed, want)
	}
	if err := s.Commit(ctx, Run{ID: uuid.New(), Fingerprints: current}); err != nil {
		t.Fatal(err)
	}

	changed, _, err = s.Changed(ctx, root, "books")
	if err != nil || len(changed) != 0 {
		t.Errorf("Changed() after commit = %v, %v", changed, err)
	}

	write("books/col1/GEN.usfm", "\\id GEN\n\\c 1")
	if err := os.Remove(filepath.Join(root, "books", "col1", "EXO.usfm")); err != nil {
		t.Fatal(err)
	}
	write("books/col2/MAT.usfm", "\\id MAT")

	changed, _, err = s.Changed(ctx, root, "books")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"books/col1/EXO.usfm", "books/col1/GEN.usfm", "books/col2/MAT.usfm"}; !reflect.DeepEqual(changed, want) {
		t.Errorf("Changed() = %v, want %v", changed, want)
	}
}

func TestDigest(t *testing.T) {
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("different data must have different digests")
	}
	if len(Digest(nil)) != 64 {
		t.Errorf("unexpected digest length %d", len(Digest(nil)))
	}
}
