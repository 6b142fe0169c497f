package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "summarize":
		return runSummarize(args[1:])
	case "batch":
		return runBatch(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "train":
		return runTrain(args[1:])
	case "hash-password":
		return runHashPassword(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "aidesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  aidesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health         Report availability of each AI capability")
	fmt.Fprintln(os.Stderr, "  languages      List supported translation languages")
	fmt.Fprintln(os.Stderr, "  translate      Translate text between two languages")
	fmt.Fprintln(os.Stderr, "  detect         Rank the likely languages of a text")
	fmt.Fprintln(os.Stderr, "  summarize      Summarize text or a web page")
	fmt.Fprintln(os.Stderr, "  batch          Translate every text in a JSON or YAML job file")
	fmt.Fprintln(os.Stderr, "  watch          Translate job files dropped into a directory")
	fmt.Fprintln(os.Stderr, "  train          Run a simulated custom model training job")
	fmt.Fprintln(os.Stderr, "  hash-password  Print a bcrypt hash for API_PASSWORD_HASH")
	fmt.Fprintln(os.Stderr, "  serve          Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"aidesk <command> -h\" for command-specific flags.")
}
