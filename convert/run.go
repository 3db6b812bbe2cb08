package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pkbuild/state"
	"pkbuild/watch"
)

// prepareEnv resolves directories and flags shared by convert and watch.
func prepareEnv(env *state.LocalEnv, cmd *cli.Command) (err error) {
	log := env.Log.Named("convert")

	env.DataDir = cmd.Args().Get(0)
	if len(env.DataDir) == 0 {
		env.DataDir = env.Cfg.Build.DataDir
	}
	if env.DataDir, err = filepath.Abs(env.DataDir); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many data directories", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	env.OutputDir = cmd.String("out")
	if len(env.OutputDir) == 0 {
		env.OutputDir = env.Cfg.Build.OutputDir
	}
	if env.OutputDir, err = filepath.Abs(env.OutputDir); err != nil {
		return err
	}

	env.Force = cmd.Bool("force")
	env.Verbose = cmd.Int("verbose")
	return nil
}

// Run is "convert" command: one-shot conversion of all book collections.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	if err := prepareEnv(env, cmd); err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("data", env.DataDir), zap.String("destination", env.OutputDir))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, err := NewTask(env, env.DataDir, env.OutputDir).Run(ctx, nil)
	return err
}

// Watch is "watch" command: conversion followed by rebuilds every time
// sources change. Failed rebuilds are reported and watching continues.
func Watch(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	if err := prepareEnv(env, cmd); err != nil {
		return err
	}

	task := NewTask(env, env.DataDir, env.OutputDir)
	ignore := []string{env.OutputDir, env.Cfg.Build.LockPath(env.OutputDir)}
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		ignore = append(ignore, env.Cfg.Build.StateFile+suffix)
	}
	w, err := watch.New(env.DataDir, env.Cfg.Build.Watch.Debounce, log, ignore...)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if _, err := task.Run(ctx, nil); err != nil {
		log.Error("Initial conversion failed", zap.Error(err))
	}
	log.Info("Watching for changes", zap.String("data", env.DataDir), zap.Duration("debounce", env.Cfg.Build.Watch.Debounce))

	for {
		select {
		case <-ctx.Done():
			return <-done
		case err := <-done:
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watcher stopped: %w", err)
		case err := <-w.Errors():
			log.Warn("Watcher problem", zap.Error(err))
		case batch := <-w.Batches():
			if !task.Triggered(batch) {
				log.Debug("Changes do not affect books", zap.Strings("paths", batch))
				continue
			}
			log.Info("Changes detected, converting", zap.Strings("paths", batch))
			if _, err := task.Run(ctx, batch); err != nil {
				log.Error("Conversion failed", zap.Error(err))
			}
		}
	}
}
