// Package flags declares the CLI flags for the checkmate command.
package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/checkmate-ci/checkmate/annotations"
	"github.com/checkmate-ci/checkmate/parser"
	"github.com/checkmate-ci/checkmate/reporting"
)

const EnvVarPrefix = "CHECKMATE"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Reporter = &cli.StringFlag{
		Name:    "reporter",
		Value:   "",
		EnvVars: prefixEnvVars("REPORTER"),
		Usage:   "Reporter that produced the input files (one of: " + strings.Join(parser.Names(), ", ") + ")",
	}
	RunName = &cli.StringFlag{
		Name:    "name",
		Value:   "",
		EnvVars: prefixEnvVars("NAME"),
		Usage:   "Display name for the report (defaults to the input file path)",
	}
	Input = &cli.StringSliceFlag{
		Name:    "input",
		Aliases: []string{"i"},
		EnvVars: prefixEnvVars("INPUT"),
		Usage:   "Glob pattern matching result files, may be repeated (eg. 'build/test-results/*.xml')",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to a run config file declaring multiple input groups (eg. 'checkmate.yaml')",
	}
	TrackedFiles = &cli.StringFlag{
		Name:    "tracked-files",
		Value:   "",
		EnvVars: prefixEnvVars("TRACKED_FILES"),
		Usage:   "Path to a newline-separated list of repository files used to resolve annotation paths",
	}
	GoModule = &cli.StringFlag{
		Name:    "go-module",
		Value:   "",
		EnvVars: prefixEnvVars("GO_MODULE"),
		Usage:   "Path to a go.mod file used to map Go import paths onto repository directories",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "-",
		EnvVars: prefixEnvVars("OUTPUT"),
		Usage:   "File to write the markdown report to, '-' for stdout",
	}
	HTMLOutput = &cli.StringFlag{
		Name:    "html-out",
		Value:   "",
		EnvVars: prefixEnvVars("HTML_OUT"),
		Usage:   "File to additionally write an HTML rendering of the report to",
	}
	AnnotationsOut = &cli.StringFlag{
		Name:    "annotations-out",
		Value:   "",
		EnvVars: prefixEnvVars("ANNOTATIONS_OUT"),
		Usage:   "File to write failure annotations to as JSON",
	}
	MaxAnnotations = &cli.IntFlag{
		Name:    "max-annotations",
		Value:   annotations.DefaultMaxCount,
		EnvVars: prefixEnvVars("MAX_ANNOTATIONS"),
		Usage:   "Maximum number of annotations to emit across all input files",
	}
	ListSuites = &cli.StringFlag{
		Name:    "list-suites",
		Value:   string(reporting.SuitesAll),
		EnvVars: prefixEnvVars("LIST_SUITES"),
		Usage:   "Which suites to list in the report ('all' or 'failed')",
	}
	ListTests = &cli.StringFlag{
		Name:    "list-tests",
		Value:   string(reporting.TestsAll),
		EnvVars: prefixEnvVars("LIST_TESTS"),
		Usage:   "Which test cases to list in the report ('all', 'failed' or 'none')",
	}
	OnlySummary = &cli.BoolFlag{
		Name:    "only-summary",
		Value:   false,
		EnvVars: prefixEnvVars("ONLY_SUMMARY"),
		Usage:   "Restrict the report to the summary table, listing no suites or cases",
	}
	BaseURL = &cli.StringFlag{
		Name:    "base-url",
		Value:   "",
		EnvVars: prefixEnvVars("BASE_URL"),
		Usage:   "Base URL test case links point at (links are omitted when unset)",
	}
	IDPrefix = &cli.StringFlag{
		Name:    "id-prefix",
		Value:   "",
		EnvVars: prefixEnvVars("ID_PREFIX"),
		Usage:   "Prefix for HTML anchor IDs, for embedding several reports in one page",
	}
	MaxReportBytes = &cli.IntFlag{
		Name:    "max-report-bytes",
		Value:   65535,
		EnvVars: prefixEnvVars("MAX_REPORT_BYTES"),
		Usage:   "Truncate the markdown report to at most this many bytes, 0 to disable",
	}
	FailOnError = &cli.BoolFlag{
		Name:    "fail-on-error",
		Value:   true,
		EnvVars: prefixEnvVars("FAIL_ON_ERROR"),
		Usage:   "Exit with a non-zero code when any test failed",
	}
	FailOnEmpty = &cli.BoolFlag{
		Name:    "fail-on-empty",
		Value:   true,
		EnvVars: prefixEnvVars("FAIL_ON_EMPTY"),
		Usage:   "Exit with a non-zero code when no input files matched",
	}
	Serial = &cli.BoolFlag{
		Name:    "serial",
		Value:   false,
		EnvVars: prefixEnvVars("SERIAL"),
		Usage:   "Parse input files one at a time instead of in parallel",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: prefixEnvVars("CONCURRENCY"),
		Usage:   "Number of files to parse in parallel, 0 to use all CPUs",
	}
	HTTPAddr = &cli.StringFlag{
		Name:    "http-addr",
		Value:   "",
		EnvVars: prefixEnvVars("HTTP_ADDR"),
		Usage:   "Address to serve /healthz and /metrics on (eg. '127.0.0.1:7300'), disabled when unset",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Lowest log level that will be output ('trace', 'debug', 'info', 'warn', 'error' or 'crit')",
	}
	LogFormat = &cli.StringFlag{
		Name:    "log-format",
		Value:   "terminal",
		EnvVars: prefixEnvVars("LOG_FORMAT"),
		Usage:   "Format the log output with ('terminal' or 'json')",
	}
	Tracing = &cli.BoolFlag{
		Name:    "tracing",
		Value:   false,
		EnvVars: prefixEnvVars("TRACING"),
		Usage:   "Enable OpenTelemetry tracing for the conversion run",
	}
)

var requiredFlags = []cli.Flag{
	Reporter,
	ConfigFile,
}

var optionalFlags = []cli.Flag{
	RunName,
	Input,
	TrackedFiles,
	GoModule,
	Output,
	HTMLOutput,
	AnnotationsOut,
	MaxAnnotations,
	ListSuites,
	ListTests,
	OnlySummary,
	BaseURL,
	IDPrefix,
	MaxReportBytes,
	FailOnError,
	FailOnEmpty,
	Serial,
	Concurrency,
	HTTPAddr,
	LogLevel,
	LogFormat,
	Tracing,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired verifies that the inputs are described one way or the
// other: a reporter for the command line patterns, or a config file.
func CheckRequired(ctx *cli.Context) error {
	if !ctx.IsSet(Reporter.Name) && !ctx.IsSet(ConfigFile.Name) {
		return fmt.Errorf("either flag %s or flag %s is required", Reporter.Name, ConfigFile.Name)
	}
	return nil
}
