package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/config"
	"horse.fit/aidesk/internal/export"
	"horse.fit/aidesk/internal/workflow"
)

func TestRunUnknownCommand(t *testing.T) {
	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("exit code without args = %d, want 2", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("help exit code = %d, want 0", code)
	}
}

func TestInputTextJoinsArgsOrReadsStdin(t *testing.T) {
	t.Parallel()

	got, err := inputText([]string{"Hello", "world"}, strings.NewReader("ignored"))
	if err != nil || got != "Hello world" {
		t.Fatalf("args = %q, %v", got, err)
	}

	got, err = inputText([]string{"-"}, strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Fatalf("stdin = %q, %v", got, err)
	}

	got, err = inputText(nil, strings.NewReader(""))
	if err != nil || got != "" {
		t.Fatalf("empty stdin = %q, %v", got, err)
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("default = %q, %v", got, err)
	}
	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("json = %q, %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatal("expected error for yaml")
	}
}

func TestWriteExportCreatesFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	snapshot := workflow.Snapshot{Translation: workflow.TranslationRecord{
		Input:      "Hello",
		Output:     "Hola",
		SourceLang: "en",
		TargetLang: "es",
	}}

	path, err := writeExport(export.Exporter{}, "txt", dir, snapshot, time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatalf("write export: %v", err)
	}
	if filepath.Base(path) != "ai-results-1700000000000.txt" {
		t.Fatalf("path = %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(raw), "Hola") {
		t.Fatalf("export body = %s", raw)
	}

	if _, err := writeExport(export.Exporter{}, "pdf", dir, snapshot, time.Now()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 10); got != "short" {
		t.Fatalf("short = %q", got)
	}
	if got := truncateForTable("abcdefghij", 6); got != "abc..." {
		t.Fatalf("long = %q", got)
	}
}

func TestSummarizerWithoutBackendIsUnavailable(t *testing.T) {
	t.Parallel()

	summarizer, err := newSummarizer(&config.Config{SummarizerBackend: "none"})
	if err != nil {
		t.Fatalf("newSummarizer() error = %v", err)
	}
	availability, err := summarizer.Availability(context.Background())
	if err != nil || availability != capability.Unavailable {
		t.Fatalf("availability = %s, %v", availability, err)
	}

	runner := workflow.NewRunner(capability.Surface{Summarizer: summarizer}, zerolog.Nop(), workflow.Options{
		AfterFunc: func(time.Duration, func()) {},
	})
	_, err = runner.Summarize(context.Background(), capability.SummarizeRequest{
		Text:    "Some long text",
		Options: capability.DefaultSummaryOptions(capability.SummaryTLDR),
	})
	if kind := capability.KindOf(err); kind != capability.ErrorUnavailable {
		t.Fatalf("error kind = %s, want %s", kind, capability.ErrorUnavailable)
	}
}

func TestCommandContextDeadlineOnlyWhenRequested(t *testing.T) {
	t.Parallel()

	ctx, cancel := commandContext(0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline by default")
	}

	ctx, cancel = commandContext(time.Minute)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected a deadline when --timeout is set")
	}
}
