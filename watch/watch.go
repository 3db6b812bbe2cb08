// Package watch reports batches of changed files under a directory tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher monitors directory tree recursively. Changes are collected until
// nothing happens for debounce interval and then delivered as a single
// batch of slash separated paths relative to the root.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   []string
	log      *zap.Logger

	fsw     *fsnotify.Watcher
	batches chan []string
	errors  chan error
}

// New creates watcher and starts watching root. Paths under any of ignore
// directories are never reported.
func New(root string, debounce time.Duration, log *zap.Logger, ignore ...string) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file system watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		log:      log,
		fsw:      fsw,
		batches:  make(chan []string),
		errors:   make(chan error, 16),
	}
	for _, p := range ignore {
		if p, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, p)
		}
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Batches delivers changed paths, sorted and without duplicates.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Errors delivers non fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) ignored(p string) bool {
	for _, dir := range w.ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Warn("Unable to access path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("unable to watch %s: %w", p, err)
		}
		w.log.Debug("Watching", zap.String("dir", p))
		return nil
	})
}

func (w *Watcher) relative(p string) (string, bool) {
	if w.ignored(p) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Run processes file system events until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var (
		pending = make(map[string]struct{})
		ready   []string
		fire    <-chan time.Time
	)
	for {
		var out chan<- []string
		if len(ready) > 0 {
			out = w.batches
		}

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file system watcher closed")
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && !w.ignored(ev.Name) {
					if err := w.addTree(ev.Name); err != nil {
						w.report(err)
					}
				}
			}
			rel, ok := w.relative(ev.Name)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file system watcher closed")
			}
			w.report(err)

		case <-fire:
			fire = nil
			ready = merge(ready, pending)
			pending = make(map[string]struct{})

		case out <- ready:
			ready = nil
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errors <- err:
	default:
		w.log.Warn("Watcher error dropped", zap.Error(err))
	}
}

func merge(ready []string, pending map[string]struct{}) []string {
	set := make(map[string]struct{}, len(ready)+len(pending))
	for _, p := range ready {
		set[p] = struct{}{}
	}
	for p := range pending {
		set[p] = struct{}{}
	}
	res := make([]string, 0, len(set))
	for p := range set {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}
