package checkmate

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/checkmate-ci/checkmate/flags"
	"github.com/checkmate-ci/checkmate/loader"
	"github.com/checkmate-ci/checkmate/reporting"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	Groups         []loader.Group        // Input groups, each naming a reporter and its file patterns
	TrackedFiles   string                // Path to the newline-separated tracked file list, optional
	GoModule       string                // Path to a go.mod used to resolve Go import paths, optional
	Output         string                // Markdown report destination, "-" for stdout
	HTMLOutput     string                // HTML report destination, empty to skip
	AnnotationsOut string                // Annotations JSON destination, empty to skip
	MaxAnnotations int                   // Annotation cap across all inputs
	ListSuites     reporting.SuiteFilter // Which suites the report lists
	ListTests      reporting.CaseFilter  // Which cases the report lists
	OnlySummary    bool                  // Restrict the report to the summary table
	BaseURL        string                // Base URL for test case links, empty to omit links
	IDPrefix       string                // Prefix for HTML anchor IDs
	MaxBytes       int                   // Markdown report size cap in bytes, 0 to disable
	FailOnError    bool                  // Exit non-zero when any test failed
	FailOnEmpty    bool                  // Exit non-zero when no input files matched
	Serial         bool                  // Whether to parse files serially instead of in parallel
	Concurrency    int                   // Number of concurrent parse workers (0 = auto-determine)
	HTTPAddr       string                // Address for the healthz/metrics server, empty to disable
	Tracing        bool                  // Whether OpenTelemetry tracing is enabled
	Log            log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	// Parse flags
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		Output:         ctx.String(flags.Output.Name),
		HTMLOutput:     ctx.String(flags.HTMLOutput.Name),
		AnnotationsOut: ctx.String(flags.AnnotationsOut.Name),
		MaxAnnotations: ctx.Int(flags.MaxAnnotations.Name),
		OnlySummary:    ctx.Bool(flags.OnlySummary.Name),
		BaseURL:        ctx.String(flags.BaseURL.Name),
		IDPrefix:       ctx.String(flags.IDPrefix.Name),
		MaxBytes:       ctx.Int(flags.MaxReportBytes.Name),
		FailOnError:    ctx.Bool(flags.FailOnError.Name),
		FailOnEmpty:    ctx.Bool(flags.FailOnEmpty.Name),
		Serial:         ctx.Bool(flags.Serial.Name),
		Concurrency:    ctx.Int(flags.Concurrency.Name),
		HTTPAddr:       ctx.String(flags.HTTPAddr.Name),
		Tracing:        ctx.Bool(flags.Tracing.Name),
		TrackedFiles:   ctx.String(flags.TrackedFiles.Name),
		GoModule:       ctx.String(flags.GoModule.Name),
		Log:            log,
	}

	if err := resolveGroups(ctx, cfg); err != nil {
		return nil, err
	}

	var err error
	cfg.ListSuites, err = parseSuiteFilter(ctx.String(flags.ListSuites.Name))
	if err != nil {
		return nil, err
	}
	cfg.ListTests, err = parseCaseFilter(ctx.String(flags.ListTests.Name))
	if err != nil {
		return nil, err
	}

	if cfg.MaxAnnotations < 0 {
		return nil, fmt.Errorf("max-annotations must not be negative, got %d", cfg.MaxAnnotations)
	}
	if cfg.MaxBytes < 0 {
		return nil, fmt.Errorf("max-report-bytes must not be negative, got %d", cfg.MaxBytes)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if cfg.Output == "" {
		return nil, errors.New("output destination is required, use '-' for stdout")
	}

	return cfg, nil
}

// resolveGroups fills cfg.Groups either from a run config file or from the
// reporter flag plus the command line patterns. The two styles are mutually
// exclusive so a config file never has half of its inputs overridden.
func resolveGroups(ctx *cli.Context, cfg *Config) error {
	patterns := ctx.StringSlice(flags.Input.Name)
	patterns = append(patterns, ctx.Args().Slice()...)

	configFile := ctx.String(flags.ConfigFile.Name)
	if configFile != "" {
		if ctx.IsSet(flags.Reporter.Name) || len(patterns) > 0 {
			return errors.New("--config cannot be combined with --reporter or input patterns")
		}
		runConfig, err := loader.LoadRunConfig(configFile)
		if err != nil {
			return err
		}
		cfg.Groups = runConfig.Groups
		// Command line flags win over the config file for resolver inputs.
		if cfg.TrackedFiles == "" {
			cfg.TrackedFiles = runConfig.TrackedFiles
		}
		if cfg.GoModule == "" {
			cfg.GoModule = runConfig.GoModule
		}
		return nil
	}

	if len(patterns) == 0 {
		return errors.New("no input patterns given")
	}
	cfg.Groups = []loader.Group{{
		Name:     ctx.String(flags.RunName.Name),
		Reporter: ctx.String(flags.Reporter.Name),
		Paths:    patterns,
	}}
	return nil
}

func parseSuiteFilter(value string) (reporting.SuiteFilter, error) {
	switch reporting.SuiteFilter(value) {
	case reporting.SuitesAll, reporting.SuitesFailedOnly:
		return reporting.SuiteFilter(value), nil
	default:
		return "", fmt.Errorf("invalid list-suites value %q, must be %q or %q",
			value, reporting.SuitesAll, reporting.SuitesFailedOnly)
	}
}

func parseCaseFilter(value string) (reporting.CaseFilter, error) {
	switch reporting.CaseFilter(value) {
	case reporting.TestsAll, reporting.TestsFailedOnly, reporting.TestsNone:
		return reporting.CaseFilter(value), nil
	default:
		return "", fmt.Errorf("invalid list-tests value %q, must be %q, %q or %q",
			value, reporting.TestsAll, reporting.TestsFailedOnly, reporting.TestsNone)
	}
}
