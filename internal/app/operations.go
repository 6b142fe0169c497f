package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/cli"
	"horse.fit/aidesk/internal/workflow"
)

// exportFlags adds --export and --out to a command that produces results.
type exportFlags struct {
	format *string
	dir    *string
}

func addExportFlags(fs *flag.FlagSet) exportFlags {
	return exportFlags{
		format: fs.String("export", "", "Also export results: json, csv or txt"),
		dir:    fs.String("out", ".", "Directory for exported results"),
	}
}

func (f exportFlags) write(rt *runtime) int {
	if strings.TrimSpace(*f.format) == "" {
		return 0
	}
	path, err := writeExport(rt.exporter, *f.format, *f.dir, rt.runner.Workspace().Snapshot(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Exported results to %s\n", path)
	return 0
}

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 waits for the model however long it takes)")
	from := fs.String("from", "en", "Source language (ISO 639-1)")
	to := fs.String("to", "es", "Target language (ISO 639-1)")
	exports := addExportFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	pair := capability.NewLanguagePair(*from, *to)
	if errs := pair.Validate(); errs != nil {
		fmt.Fprintln(os.Stderr, "--from and --to must be valid language codes")
		return 2
	}
	text, err := inputText(fs.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rt, err := newRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	result, err := rt.runner.Translate(ctx, capability.TranslateRequest{Text: text, Pair: pair})
	if code := reportOperation(result, err); code != 0 {
		return code
	}
	fmt.Println(result.Output)
	return exports.write(rt)
}

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 waits for the model however long it takes)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	exports := addExportFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}
	text, err := inputText(fs.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rt, err := newRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	result, err := rt.runner.Detect(ctx, capability.DetectRequest{Text: text})
	if code := reportOperation(result, err); code != 0 {
		return code
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result.Detections); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return exports.write(rt)
	}

	rows := make([][]string, 0, len(result.Detections))
	for _, detection := range result.Detections {
		rows = append(rows, []string{detection.Language, fmt.Sprintf("%.1f%%", detection.Confidence*100)})
	}
	if err := writeTable([]string{"language", "confidence"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return exports.write(rt)
}

func runSummarize(args []string) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 waits for the model however long it takes)")
	summaryType := fs.String("type", string(capability.SummaryTLDR), "Summary type: tldr, key-points, teaser, headline")
	length := fs.String("length", string(capability.LengthMedium), "Summary length: short, medium, long")
	markdown := fs.Bool("markdown", false, "Ask for Markdown instead of plain text")
	sharedContext := fs.String("context", "", "Shared context given to the summarizer")
	pageURL := fs.String("url", "", "Summarize the readable text of a web page")
	exports := addExportFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	parsedType, err := capability.ParseSummaryType(*summaryType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --type: %v\n", err)
		return 2
	}
	opts := capability.SummaryOptions{
		Type:          parsedType,
		Format:        capability.FormatPlainText,
		Length:        capability.SummaryLength(strings.ToLower(strings.TrimSpace(*length))),
		SharedContext: strings.TrimSpace(*sharedContext),
	}
	if *markdown {
		opts.Format = capability.FormatMarkdown
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		return 2
	}

	rt, err := newRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	var text string
	if strings.TrimSpace(*pageURL) != "" {
		doc, err := rt.reader.Fetch(ctx, *pageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read page: %v\n", err)
			return 1
		}
		if doc.Title != "" {
			fmt.Fprintf(os.Stderr, "Summarizing %q\n", doc.Title)
		}
		text = doc.Text
	} else {
		text, err = inputText(fs.Args(), os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	result, err := rt.runner.Summarize(ctx, capability.SummarizeRequest{Text: text, Options: opts})
	if code := reportOperation(result, err); code != 0 {
		return code
	}
	fmt.Println(result.Output)
	return exports.write(rt)
}

// reportOperation prints the user-facing outcome to stderr and returns a
// non-zero exit code on failure.
func reportOperation(result capability.OperationResult, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, capability.UserMessage(err))
		if capability.KindOf(err) == capability.ErrorValidationEmpty {
			return 2
		}
		return 1
	}
	notice := workflow.ResultNotice(result)
	fmt.Fprintf(os.Stderr, "[%s] %s\n", notice.Level, notice.Message)
	return 0
}
