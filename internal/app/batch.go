package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/cli"
	"horse.fit/aidesk/internal/inbox"
	"horse.fit/aidesk/internal/jobfile"
	"horse.fit/aidesk/internal/logging"
	"horse.fit/aidesk/internal/workflow"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 waits for the model however long it takes)")
	file := fs.String("file", "", "Job file (JSON or YAML) with target_lang and texts")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	exports := addExportFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	job, err := jobfile.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid job file: %v\n", err)
		return 2
	}

	rt, err := newRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	detected := ""
	if job.AutoDetect() {
		detected = rt.detector.DetectISO6391(strings.Join(job.Texts, "\n"))
		if detected == "" {
			fmt.Fprintln(os.Stderr, "Could not detect the source language; set source_lang in the job file")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Detected source language: %s\n", detected)
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	events, unsubscribe := rt.runner.Hub().Subscribe(64)
	go func() {
		for ev := range events {
			if ev.Type == workflow.EventTypeBatchItem && ev.Batch != nil {
				fmt.Fprintf(os.Stderr, "Translating %d/%d...\n", ev.Batch.Completed, ev.Batch.Total)
			}
		}
	}()

	result, batchErr := rt.runner.TranslateBatch(ctx, workflow.BatchRequest{Texts: job.Texts, Pair: job.Pair(detected)})
	unsubscribe()

	if batchErr != nil {
		fmt.Fprintln(os.Stderr, capability.UserMessage(batchErr))
		if len(result.Items) == 0 {
			return 1
		}
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(result.Items))
		for _, item := range result.Items {
			rows = append(rows, []string{
				fmt.Sprintf("%d", item.Index+1),
				truncateForTable(item.Input, 40),
				truncateForTable(item.Output, 60),
			})
		}
		if err := writeTable([]string{"#", "input", "output"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(os.Stderr, "batch job=%s total=%d translated=%d skipped=%d complete=%t\n",
		job.Name, result.Total, len(result.Items), result.Skipped, result.Complete)

	if code := exports.write(rt); code != 0 {
		return code
	}
	if batchErr != nil {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", "", "Inbox directory to watch for job files")
	settle := fs.Duration("settle", inbox.DefaultSettleDelay, "Wait after a file appears before reading it")
	existing := fs.Bool("existing", true, "Process job files already in the directory")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*dir) == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		return 2
	}

	rt, err := newRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	watcher, err := inbox.New(*dir, rt.runner, rt.detector, logging.Component(rt.logger, "inbox"), inbox.Options{
		SettleDelay:     *settle,
		ProcessExisting: *existing,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start watcher: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Run(ctx); err != nil {
		rt.logger.Error().Err(err).Str("dir", *dir).Msg("watcher failed")
		fmt.Fprintf(os.Stderr, "Watcher failed: %v\n", err)
		return 1
	}
	return 0
}
