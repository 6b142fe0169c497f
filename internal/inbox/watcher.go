// Package inbox watches a directory for batch job files and translates each
// one as it arrives.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/export"
	"horse.fit/aidesk/internal/jobfile"
	"horse.fit/aidesk/internal/workflow"
)

const (
	ResultsDir   = "results"
	ProcessedDir = "processed"
	FailedDir    = "failed"

	// DefaultSettleDelay gives writers time to finish a file after it appears.
	DefaultSettleDelay = 500 * time.Millisecond
)

type BatchRunner interface {
	TranslateBatch(ctx context.Context, req workflow.BatchRequest) (workflow.BatchResult, error)
	Workspace() *workflow.Workspace
}

// SourceDetector guesses the language of jobs with source_lang "auto".
type SourceDetector interface {
	DetectISO6391(text string) string
}

type Options struct {
	SettleDelay time.Duration
	// ProcessExisting runs job files already in the directory at start.
	ProcessExisting bool
}

type Watcher struct {
	dir      string
	runner   BatchRunner
	detector SourceDetector
	logger   zerolog.Logger
	opts     Options
}

func New(dir string, runner BatchRunner, detector SourceDetector, logger zerolog.Logger, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat inbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox %s is not a directory", dir)
	}
	for _, sub := range []string{ResultsDir, ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}

	return &Watcher{
		dir:      dir,
		runner:   runner,
		detector: detector,
		logger:   logger,
		opts:     opts,
	}, nil
}

// Run blocks until ctx is done. Jobs are processed one at a time because batch
// translation admits a single execution.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("add watch path: %w", err)
	}
	w.logger.Info().Str("dir", w.dir).Msg("inbox watcher started")

	if w.opts.ProcessExisting {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("read inbox: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !w.accepts(entry.Name()) {
				continue
			}
			w.handle(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("inbox watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) || !w.accepts(event.Name) {
				continue
			}
			w.logger.Info().Str("file", event.Name).Msg("job file detected")

			select {
			case <-time.After(w.opts.SettleDelay):
			case <-ctx.Done():
				return nil
			}
			w.handle(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	return !strings.HasPrefix(name, ".") && jobfile.Supported(name)
}

func (w *Watcher) handle(ctx context.Context, path string) {
	resultPath, err := w.ProcessFile(ctx, path)
	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		w.logger.Error().Err(err).Str("file", path).Msg("job failed")
	} else {
		w.logger.Info().Str("file", path).Str("result", resultPath).Msg("job completed")
	}

	target := filepath.Join(w.dir, dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn().Err(err).Str("file", path).Msg("move job file")
	}
}

// ProcessFile runs one job file and writes a JSON export of the workspace into
// the results directory. A batch that stops after translating some items still
// gets an export.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (string, error) {
	job, err := jobfile.Load(path)
	if err != nil {
		return "", err
	}

	detected := ""
	if job.AutoDetect() {
		if w.detector == nil {
			return "", fmt.Errorf("job %s needs source detection but no detector is configured", job.Name)
		}
		detected = w.detector.DetectISO6391(strings.Join(job.Texts, "\n"))
		if detected == "" {
			return "", fmt.Errorf("could not detect the source language of job %s", job.Name)
		}
	}

	// A started batch runs to completion even when the watcher is stopping.
	result, batchErr := w.runner.TranslateBatch(context.WithoutCancel(ctx), workflow.BatchRequest{
		Texts: job.Texts,
		Pair:  job.Pair(detected),
	})

	if batchErr != nil && len(result.Items) == 0 {
		return "", batchErr
	}

	exporter := export.Exporter{Prefix: job.Name}
	artifact := exporter.Export(export.FormatJSON, w.runner.Workspace().Snapshot(), time.Now())
	resultPath := filepath.Join(w.dir, ResultsDir, artifact.Filename)
	if err := os.WriteFile(resultPath, artifact.Content, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return resultPath, batchErr
}
