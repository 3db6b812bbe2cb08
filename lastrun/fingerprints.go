package lastrun

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Digest returns hex encoded blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileDigest(fname string) (string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint computes digests of all regular files under root/prefix. Keys
// are slash separated paths relative to root. Missing prefix directory
// results in empty map.
func Fingerprint(ctx context.Context, root, prefix string) (map[string]string, error) {
	res := make(map[string]string)
	start := filepath.Join(root, filepath.FromSlash(prefix))
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		digest, err := fileDigest(p)
		if err != nil {
			return err
		}
		res[filepath.ToSlash(rel)] = digest
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fingerprint %s: %w", start, err)
	}
	return res, nil
}

// Fingerprints returns digests remembered by the last run.
func (s *Store) Fingerprints(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.interruptible(ctx)()

	res := make(map[string]string)
	err := sqlitex.Execute(s.conn, `SELECT path, digest FROM fingerprints`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			res[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to read fingerprints: %w", err)
	}
	return res, nil
}

// Changed compares current sources under root/prefix with remembered ones
// and returns sorted list of added, removed and modified paths together
// with current fingerprints.
func (s *Store) Changed(ctx context.Context, root, prefix string) ([]string, map[string]string, error) {
	current, err := Fingerprint(ctx, root, prefix)
	if err != nil {
		return nil, nil, err
	}
	last, err := s.Fingerprints(ctx)
	if err != nil {
		return nil, nil, err
	}
	return Diff(last, current), current, nil
}

// Diff lists paths which differ between two fingerprint sets.
func Diff(last, current map[string]string) []string {
	var res []string
	for p, d := range current {
		if ld, ok := last[p]; !ok || ld != d {
			res = append(res, p)
		}
	}
	for p := range last {
		if _, ok := current[p]; !ok {
			res = append(res, p)
		}
	}
	sort.Strings(res)
	return res
}

