// Package lastrun keeps memory of the last successful conversion between
// program runs: collections it was done for, fingerprints of the sources
// and artifacts it produced.
package lastrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pkbuild/appdef"
)

// ErrNoState is returned when there was no successful run yet.
var ErrNoState = errors.New("no previous run recorded")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	finished    TEXT NOT NULL,
	collections TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fingerprints (
	path   TEXT PRIMARY KEY,
	digest TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS artifacts (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	path   TEXT NOT NULL,
	size   INTEGER NOT NULL,
	digest TEXT NOT NULL,
	PRIMARY KEY (run_id, path)
);
`

type (
	Artifact struct {
		Path   string
		Size   int64
		Digest string
	}

	// Run is result of successful conversion to be remembered.
	Run struct {
		ID           uuid.UUID
		Collections  []appdef.Collection
		Fingerprints map[string]string
		Artifacts    []Artifact
	}

	RunInfo struct {
		ID        uuid.UUID
		Finished  time.Time
		Artifacts []Artifact
	}
)

// NewArtifact describes produced file.
func NewArtifact(path string, data []byte) Artifact {
	return Artifact{Path: filepath.ToSlash(path), Size: int64(len(data)), Digest: Digest(data)}
}

// Store is sqlite backed last run memory, safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
}

// Open opens or creates state database, directory is created if necessary.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create state directory: %w", err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open state database: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare state database: %w", err), conn.Close())
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare state database: %w", err), conn.Close())
	}
	return &Store{conn: conn, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Path returns database file name.
func (s *Store) Path() string {
	return s.path
}

// Restrict keeps only collection properties conversion depends on.
func Restrict(cols []appdef.Collection) []appdef.Collection {
	if cols == nil {
		return nil
	}
	res := make([]appdef.Collection, 0, len(cols))
	for _, c := range cols {
		res = append(res, appdef.Collection{
			ID:           c.ID,
			LanguageCode: c.LanguageCode,
			Books:        append([]appdef.Book(nil), c.Books...),
		})
	}
	return res
}

// interruptible binds connection to context for the duration of the call.
func (s *Store) interruptible(ctx context.Context) func() {
	old := s.conn.SetInterrupt(ctx.Done())
	return func() { s.conn.SetInterrupt(old) }
}

// LastRun describes last remembered run.
func (s *Store) LastRun(ctx context.Context) (*RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.interruptible(ctx)()

	var (
		info  *RunInfo
		inner error
	)
	err := sqlitex.Execute(s.conn, `SELECT id, finished FROM runs ORDER BY finished DESC, rowid DESC LIMIT 1`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := uuid.Parse(stmt.ColumnText(0))
			if err != nil {
				return fmt.Errorf("bad run id: %w", err)
			}
			finished, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(1))
			if err != nil {
				inner = err
			}
			info = &RunInfo{ID: id, Finished: finished}
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to read last run: %w", err)
	}
	if info == nil {
		return nil, ErrNoState
	}
	if inner != nil {
		return nil, fmt.Errorf("unable to read last run time: %w", inner)
	}

	err = sqlitex.Execute(s.conn, `SELECT path, size, digest FROM artifacts WHERE run_id = ? ORDER BY path`,
		&sqlitex.ExecOptions{
			Args: []any{info.ID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				info.Artifacts = append(info.Artifacts, Artifact{
					Path:   stmt.ColumnText(0),
					Size:   stmt.ColumnInt64(1),
					Digest: stmt.ColumnText(2),
				})
				return nil
			}})
	if err != nil {
		return nil, fmt.Errorf("unable to read artifacts: %w", err)
	}
	return info, nil
}

// Collections returns collections of the last successful run, nil when
// there was none.
func (s *Store) Collections(ctx context.Context) ([]appdef.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.interruptible(ctx)()

	var data string
	found := false
	err := sqlitex.Execute(s.conn, `SELECT collections FROM runs ORDER BY finished DESC, rowid DESC LIMIT 1`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			data, found = stmt.ColumnText(0), true
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to read collections: %w", err)
	}
	if !found {
		return nil, nil
	}
	cols := []appdef.Collection{}
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unable to decode remembered collections: %w", err)
	}
	return cols, nil
}

// Commit remembers successful run replacing previous fingerprints. Only the
// last run is kept.
func (s *Store) Commit(ctx context.Context, run Run) (err error) {
	cols, err := json.Marshal(Restrict(run.Collections))
	if err != nil {
		return fmt.Errorf("unable to encode collections: %w", err)
	}
	if run.Collections == nil {
		cols = []byte("[]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.interruptible(ctx)()

	defer sqlitex.Save(s.conn)(&err)

	if err = sqlitex.Execute(s.conn, `DELETE FROM runs`, nil); err != nil {
		return fmt.Errorf("unable to clear runs: %w", err)
	}
	if err = sqlitex.Execute(s.conn, `INSERT INTO runs (id, finished, collections) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{run.ID.String(), time.Now().UTC().Format(time.RFC3339Nano), string(cols)}}); err != nil {
		return fmt.Errorf("unable to store run: %w", err)
	}
	for _, a := range run.Artifacts {
		if err = sqlitex.Execute(s.conn, `INSERT OR REPLACE INTO artifacts (run_id, path, size, digest) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{run.ID.String(), a.Path, a.Size, a.Digest}}); err != nil {
			return fmt.Errorf("unable to store artifact %s: %w", a.Path, err)
		}
	}
	if err = sqlitex.Execute(s.conn, `DELETE FROM fingerprints`, nil); err != nil {
		return fmt.Errorf("unable to clear fingerprints: %w", err)
	}
	for p, d := range run.Fingerprints {
		if err = sqlitex.Execute(s.conn, `INSERT INTO fingerprints (path, digest) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{p, d}}); err != nil {
			return fmt.Errorf("unable to store fingerprint %s: %w", p, err)
		}
	}
	return nil
}
