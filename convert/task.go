package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pkbuild/appdef"
	"pkbuild/changes"
	"pkbuild/lastrun"
	"pkbuild/state"
)

// Task drives book conversion step: it decides whether conversion is
// necessary, runs it, writes artifacts and remembers successful run.
type Task struct {
	env *state.LocalEnv
	log *zap.Logger

	DataDir   string
	OutputDir string
	// changes to paths with these prefixes (relative to data directory)
	// should trigger the task
	TriggerFiles []string
}

func NewTask(env *state.LocalEnv, dataDir, outDir string) *Task {
	triggers := []string{env.Cfg.Build.BooksPrefix}
	if rel, err := filepath.Rel(dataDir, env.Cfg.Build.AppDefPath(dataDir)); err == nil && !strings.HasPrefix(rel, "..") {
		triggers = append(triggers, filepath.ToSlash(rel))
	}
	return &Task{
		env:          env,
		log:          env.Log.Named("task"),
		DataDir:      dataDir,
		OutputDir:    outDir,
		TriggerFiles: triggers,
	}
}

// Triggered checks if any of modified paths concerns the task.
func (t *Task) Triggered(modified []string) bool {
	for _, p := range modified {
		for _, trigger := range t.TriggerFiles {
			if p == trigger || strings.HasPrefix(p, trigger+"/") {
				return true
			}
		}
	}
	return false
}

// Run executes the task. Modified lists paths (relative to data directory,
// slash separated) known to be changed since the previous run, changes
// detected by comparing source fingerprints are added to it.
func (t *Task) Run(ctx context.Context, modified []string) (out *Output, err error) {
	start := time.Now()

	lockPath := t.env.Cfg.Build.LockPath(t.OutputDir)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("unable to create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("unable to acquire build lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another build is using output directory %s", t.OutputDir)
	}
	defer func() {
		err = multierr.Append(err, lock.Unlock())
	}()

	appDefPath := t.env.Cfg.Build.AppDefPath(t.DataDir)
	def, err := appdef.Load(appDefPath)
	if err != nil {
		return nil, err
	}
	if err := t.env.Rpt.StoreCopy("data/appdef.xml", appDefPath); err != nil {
		t.log.Warn("Unable to store application definition in report", zap.Error(err))
	}
	for _, w := range def.Warnings() {
		t.log.Warn("Suspicious application definition", zap.String("problem", w))
	}

	st, err := lastrun.Open(t.env.Cfg.Build.StateFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	last, err := st.Collections(ctx)
	if err != nil {
		return nil, err
	}
	changed, fingerprints, err := st.Changed(ctx, t.DataDir, t.env.Cfg.Build.BooksPrefix)
	if err != nil {
		return nil, err
	}
	modified = mergePaths(modified, changed)
	t.log.Debug("Changes detected", zap.Strings("paths", modified), zap.Bool("first run", last == nil))

	if !t.env.Force {
		skip, err := changes.ShouldSkip(last, def.Collections, modified, t.env.Cfg.Build.BooksPrefix)
		if err != nil {
			return nil, err
		}
		if skip && t.outputsPresent() {
			t.log.Info("Books have not changed, conversion skipped")
			return &Output{TaskName: TaskName, Skipped: true}, nil
		}
	}

	if out, err = Books(ctx, t.env, t.DataDir, def); err != nil {
		return nil, err
	}
	if err := Write(t.OutputDir, out.Files); err != nil {
		return nil, err
	}

	run := lastrun.Run{ID: out.RunID, Collections: def.Collections, Fingerprints: fingerprints}
	for _, f := range out.Files {
		run.Artifacts = append(run.Artifacts, lastrun.NewArtifact(f.Path, f.Content))
		t.env.Rpt.StoreData(path.Join("runs", out.RunID.String(), "artifacts", f.Path), f.Content)
	}
	if err := st.Commit(ctx, run); err != nil {
		return nil, err
	}

	if t.env.Verbose > 0 {
		fmt.Fprintln(t.env.Stdout, renderSummary(out))
	}
	t.log.Info("Books converted", zap.Int("collections", len(out.DocSets)), zap.Int("files", len(out.Files)), zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// outputsPresent checks that previously generated index still exists.
func (t *Task) outputsPresent() bool {
	_, err := os.Stat(filepath.Join(t.OutputDir, filepath.FromSlash(IndexFile)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.log.Debug("Unable to check generated index", zap.Error(err))
	}
	return err == nil
}

func mergePaths(a, b []string) []string {
	res := append(slices.Clone(a), b...)
	sort.Strings(res)
	return slices.Compact(res)
}
