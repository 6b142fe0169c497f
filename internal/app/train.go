package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/cli"
	"horse.fit/aidesk/internal/logging"
	"horse.fit/aidesk/internal/training"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func runTrain(args []string) int {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	name := fs.String("name", "", "Name of the custom model")
	base := fs.String("base", string(capability.KindTranslation), "Capability to customize: translation, detection, summarization")
	var examples stringList
	fs.Var(&examples, "example", "Training example (repeatable)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	req := training.Request{
		Name:     *name,
		BaseKind: capability.Kind(strings.ToLower(strings.TrimSpace(*base))),
		Examples: examples,
	}
	if errs := req.Validate(); errs != nil {
		fields := make([]string, 0, len(errs))
		for field := range errs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(os.Stderr, "%s %s\n", field, errs[field])
		}
		return 2
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Training %q on %s (%d examples)...\n", req.Name, req.BaseKind, len(req.Examples))
	result, err := training.NewTrainer(cfg.TrainingDelay, logging.Component(logger, "training")).Train(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		return 1
	}

	if err := printJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
