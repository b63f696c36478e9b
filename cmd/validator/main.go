// Package main provides the command line validator.
// Usage: validator validate --input feed.zip --output report.json.zst
//        validator schema [--schema tables.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/feed"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/schema/gtfs"
	"feedvalidator/pkg/logger"
)

const (
	exitOK          = 0
	exitFeedErrors  = 1
	exitSchemaError = 2
	exitUsage       = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "validate":
		return runValidate(ctx, args[1:], stdout, stderr)
	case "schema":
		return runSchema(ctx, args[1:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Feed Validator CLI

Usage:
  validator <command> [options]

Commands:
  validate  Validate a feed directory or zip archive
  schema    Print the tables a feed is validated against
  help      Show this help

Environment Variables:
  LOG_LEVEL             debug, info, warn, error (default warn)
  SCHEMA_FILE           YAML table declarations replacing the built-in schema
  VALIDATOR_WORKERS     Parallel table loads and checks (default GOMAXPROCS)
  MAX_NOTICES_PER_CODE  Stored notices per code, 0 keeps all

Exit codes:
  0  feed has no errors
  1  feed has error notices
  2  schema could not be built
  3  usage or input error

Examples:
  validator validate --input gtfs.zip
  validator validate --input ./feed --output report.json.zst --workers 4
  validator schema --schema my-tables.yaml`)
}

type commonFlags struct {
	schema   string
	logLevel string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.schema, "schema", os.Getenv("SCHEMA_FILE"), "YAML table declarations (default: built-in GTFS schema)")
	fs.StringVar(&f.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "log level")
}

func (f *commonFlags) logger(stderr io.Writer) *logger.Logger {
	log, err := logger.New(logger.Config{Level: f.logLevel, OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return logger.Default()
	}
	return log
}

// loadPlan builds the plan, reporting schema errors with their details.
func loadPlan(ctx context.Context, path string, stderr io.Writer) (*derive.FeedPlan, int) {
	plan, err := gtfs.Load(ctx, path)
	if err == nil {
		for _, w := range plan.Schema.Warnings() {
			logger.Warn(ctx, "schema warning", "warning", w)
		}
		return plan, exitOK
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		fmt.Fprintf(stderr, "Error: %s: %s %v\n", appErr.Code, appErr.Message, appErr.Details)
		if apperror.IsSchemaError(err) {
			return nil, exitSchemaError
		}
		return nil, exitUsage
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return nil, exitSchemaError
}

func runValidate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)
	input := fs.String("input", "", "feed directory or zip archive (required)")
	output := fs.String("output", "-", "report path, - for stdout; a .zst suffix compresses with zstd")
	workers := fs.Int("workers", getEnvInt("VALIDATOR_WORKERS", 0), "parallel workers, 0 for GOMAXPROCS")
	maxNotices := fs.Int("max-notices", getEnvInt("MAX_NOTICES_PER_CODE", 0), "stored notices per code, 0 keeps all")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *input == "" && fs.NArg() == 1 {
		*input = fs.Arg(0)
	}
	if *input == "" {
		fmt.Fprintln(stderr, "Error: --input is required")
		fs.Usage()
		return exitUsage
	}

	log := common.logger(stderr)
	defer func() { _ = log.Sync() }()
	ctx = logger.WithLogger(ctx, log)

	plan, code := loadPlan(ctx, common.schema, stderr)
	if plan == nil {
		return code
	}

	in, err := feed.Open(*input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer in.Close()

	v := feed.NewValidator(plan, feed.Config{Workers: *workers, MaxNoticesPerCode: *maxNotices})
	gtfs.Register(v.Registry())

	res, err := v.Validate(ctx, in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: validation aborted: %v\n", err)
		return exitUsage
	}

	if err := writeReport(res, *output, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	counts := res.Notices.CountBySeverity()
	fmt.Fprintf(stderr, "%s: %d errors, %d warnings, %d infos in %s\n",
		res.Feed, counts[notice.SeverityError], counts[notice.SeverityWarning], counts[notice.SeverityInfo], res.Duration)
	if res.Notices.HasErrors() {
		return exitFeedErrors
	}
	return exitOK
}

func writeReport(res *feed.Result, output string, stdout io.Writer) error {
	if output == "" || output == "-" {
		return res.WriteReport(stdout, notice.CompressionNone)
	}

	compression := notice.CompressionNone
	if strings.HasSuffix(output, ".zst") {
		compression = notice.CompressionZstd
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := res.WriteReport(f, compression); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runSchema(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)
	table := fs.String("table", "", "print a single table")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	log := common.logger(stderr)
	defer func() { _ = log.Sync() }()
	ctx = logger.WithLogger(ctx, log)

	plan, code := loadPlan(ctx, common.schema, stderr)
	if plan == nil {
		return code
	}

	var view any = plan.Schema.Summaries()
	if *table != "" {
		t, ok := plan.Schema.Table(*table)
		if !ok {
			fmt.Fprintf(stderr, "Error: unknown table %s\n", *table)
			return exitUsage
		}
		view = plan.Schema.Summarize(t)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	return exitOK
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
