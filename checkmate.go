// Package checkmate converts test result files produced by other tools
// into one canonical report: a markdown document, an optional HTML page,
// an optional annotations JSON file and a console summary table.
package checkmate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/checkmate-ci/checkmate/annotations"
	"github.com/checkmate-ci/checkmate/loader"
	"github.com/checkmate-ci/checkmate/metrics"
	"github.com/checkmate-ci/checkmate/parser"
	"github.com/checkmate-ci/checkmate/reporting"
	"github.com/checkmate-ci/checkmate/resolver"
	"github.com/checkmate-ci/checkmate/types"
	"github.com/ethereum/go-ethereum/log"
)

// checkmate converts raw test result files into reports.
type checkmate struct {
	config   *Config
	version  string
	loader   *loader.Loader
	parsers  []parser.Parser // one per input group, same index as config.Groups
	reporter MetricsReporter
	tracer   trace.Tracer

	results []*types.TestRunResult
}

func New(config *Config, version string) (*checkmate, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
	}

	config.Log.Debug("Creating checkmate with config",
		"groups", len(config.Groups),
		"output", config.Output,
		"annotationsOut", config.AnnotationsOut,
		"failOnError", config.FailOnError,
		"failOnEmpty", config.FailOnEmpty)

	// Unknown reporter names fail here, before any input file is read.
	parsers := make([]parser.Parser, len(config.Groups))
	for i, group := range config.Groups {
		p, err := parser.New(group.Reporter)
		if err != nil {
			return nil, fmt.Errorf("group %d (%q): %w", i, group.Name, err)
		}
		parsers[i] = p
	}

	return &checkmate{
		config:   config,
		version:  version,
		loader:   loader.New(loader.Config{Log: config.Log}),
		parsers:  parsers,
		reporter: NewDefaultMetricsReporter(),
		tracer:   otel.Tracer("report converter"),
	}, nil
}

// Run executes one conversion: load the input files, parse them into the
// canonical model, render the reports and emit annotations. It returns a
// *TestFailureError when the inputs contain failed tests and fail-on-error
// is set, and a *RuntimeError for operational problems.
func (c *checkmate) Run(ctx context.Context) (err error) {
	// Panics while parsing untrusted input are runtime errors, not crashes.
	defer func() {
		if r := recover(); r != nil {
			c.config.Log.Error("Runtime error occurred", "error", r)
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	runID := uuid.New().String()
	logger := c.config.Log.New("run_id", runID)
	logger.Info("Starting conversion", "groups", len(c.config.Groups), "version", c.version)

	ctx, span := c.tracer.Start(ctx, "conversion run")
	defer span.End()

	inputs, err := c.load(ctx)
	if err != nil {
		return NewRuntimeError(err)
	}
	if len(inputs) == 0 {
		if c.config.FailOnEmpty {
			return NewRuntimeError(errors.New("no input files matched"))
		}
		logger.Warn("No input files matched, writing an empty report")
	}

	if err := c.parse(ctx, runID, logger, inputs); err != nil {
		return NewRuntimeError(err)
	}

	res, err := c.buildResolver()
	if err != nil {
		return NewRuntimeError(err)
	}

	data := reporting.NewReportBuilder().Build(c.results)

	if err := c.render(ctx, runID, logger, data); err != nil {
		return NewRuntimeError(err)
	}

	if err := c.annotate(ctx, runID, logger, res); err != nil {
		return NewRuntimeError(err)
	}

	for _, result := range c.results {
		c.reporter.ReportResults(runID, result)
	}

	logger.Info("Conversion completed",
		"files", len(c.results),
		"tests", data.Stats.Total,
		"passed", data.Stats.Passed,
		"failed", data.Stats.Failed,
		"skipped", data.Stats.Skipped)

	if data.Stats.Failed > 0 && c.config.FailOnError {
		return NewTestFailureError(fmt.Sprintf("%d of %d tests failed", data.Stats.Failed, data.Stats.Total))
	}
	return nil
}

// groupInput pairs one loaded file with the group that matched it.
type groupInput struct {
	group int
	path  string
	data  []byte
}

// load expands every group's patterns and reads the matched files.
func (c *checkmate) load(ctx context.Context) ([]groupInput, error) {
	_, span := c.tracer.Start(ctx, "load inputs")
	defer span.End()

	var inputs []groupInput
	for i, group := range c.config.Groups {
		loaded, err := c.loader.Load(group.Paths)
		if err != nil {
			return nil, err
		}
		for _, in := range loaded {
			inputs = append(inputs, groupInput{group: i, path: in.Path, data: in.Data})
		}
	}
	return inputs, nil
}

// parse converts every input file with its group's parser. Files are
// independent, so a bad file never stops its siblings; all parse errors
// are aggregated and reported together after the whole batch.
func (c *checkmate) parse(ctx context.Context, runID string, logger log.Logger, inputs []groupInput) error {
	_, span := c.tracer.Start(ctx, "parse inputs")
	defer span.End()

	names := runNames(c.config.Groups, inputs)
	results := make([]*types.TestRunResult, len(inputs))
	parseErrs := make([]error, len(inputs))

	var eg errgroup.Group
	eg.SetLimit(c.workers())
	for i, in := range inputs {
		i, in := i, in
		eg.Go(func() error {
			p := c.parsers[in.group]
			result, err := p.Parse(names[i], in.data)
			metrics.RecordParse(runID, p.Name(), err)
			if err != nil {
				logger.Error("Failed to parse report file", "file", in.path, "reporter", p.Name(), "error", err)
				parseErrs[i] = err
				return nil
			}
			logger.Debug("Parsed report file", "file", in.path, "reporter", p.Name(), "tests", result.Stats().Total)
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var errs []error
	for _, err := range parseErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d input files failed to parse: %w", len(errs), len(inputs), errors.Join(errs...))
	}

	c.results = results
	return nil
}

// runNames assigns the display name for every input: the group name when it
// matched a single file, "name: path" when it matched several, and the bare
// path for unnamed groups.
func runNames(groups []loader.Group, inputs []groupInput) []string {
	perGroup := make(map[int]int, len(groups))
	for _, in := range inputs {
		perGroup[in.group]++
	}
	names := make([]string, len(inputs))
	for i, in := range inputs {
		name := groups[in.group].Name
		switch {
		case name == "":
			names[i] = in.path
		case perGroup[in.group] > 1:
			names[i] = fmt.Sprintf("%s: %s", name, in.path)
		default:
			names[i] = name
		}
	}
	return names
}

// workers returns the parse concurrency.
func (c *checkmate) workers() int {
	if c.config.Serial {
		return 1
	}
	if c.config.Concurrency > 0 {
		return c.config.Concurrency
	}
	return runtime.NumCPU()
}

// buildResolver loads the tracked file list and the optional go.mod. A nil
// resolver is valid and leaves annotation locations unresolved.
func (c *checkmate) buildResolver() (*resolver.Resolver, error) {
	if c.config.TrackedFiles == "" {
		return nil, nil
	}
	files, err := loader.LoadTrackedFiles(c.config.TrackedFiles)
	if err != nil {
		return nil, err
	}
	res := resolver.New(files)
	if c.config.GoModule != "" {
		gomod, err := os.ReadFile(c.config.GoModule)
		if err != nil {
			return nil, fmt.Errorf("reading go module file: %w", err)
		}
		res = res.WithGoModule(gomod)
	}
	c.config.Log.Debug("Built path resolver", "tracked", res.Tracked())
	return res, nil
}

// render writes the markdown report to its destination, the HTML page when
// requested, and the console table when the markdown went to a file.
func (c *checkmate) render(ctx context.Context, runID string, logger log.Logger, data *reporting.ReportData) error {
	_, span := c.tracer.Start(ctx, "render report")
	defer span.End()

	markdown := reporting.RenderMarkdownData(data, reporting.Options{
		ListSuites:  c.config.ListSuites,
		ListTests:   c.config.ListTests,
		OnlySummary: c.config.OnlySummary,
		BaseURL:     c.config.BaseURL,
		IDPrefix:    c.config.IDPrefix,
		MaxBytes:    c.config.MaxBytes,
	})
	metrics.RecordRenderedReport(runID, "markdown", len(markdown))

	var writer reporting.ReportWriter
	if c.config.Output == "-" {
		writer = reporting.NewStdoutWriter()
	} else {
		writer = reporting.NewFileWriter(c.config.Output)
	}
	if err := writer.Write(markdown); err != nil {
		return fmt.Errorf("writing markdown report: %w", err)
	}
	logger.Info("Wrote markdown report", "destination", c.config.Output, "bytes", len(markdown))

	if c.config.HTMLOutput != "" {
		formatter, err := reporting.NewHTMLFormatter("Test Report", "")
		if err != nil {
			return err
		}
		page, err := formatter.Format(data)
		if err != nil {
			return fmt.Errorf("rendering html report: %w", err)
		}
		if err := reporting.NewFileWriter(c.config.HTMLOutput).Write(page); err != nil {
			return fmt.Errorf("writing html report: %w", err)
		}
		metrics.RecordRenderedReport(runID, "html", len(page))
		logger.Info("Wrote HTML report", "destination", c.config.HTMLOutput, "bytes", len(page))
	}

	// The console table doubles as the human summary when the markdown
	// goes to a file instead of stdout.
	if c.config.Output != "-" {
		c.printResultsTable(data)
	}
	return nil
}

// annotate emits the capped failure annotations as JSON.
func (c *checkmate) annotate(ctx context.Context, runID string, logger log.Logger, res *resolver.Resolver) error {
	if c.config.AnnotationsOut == "" {
		return nil
	}
	_, span := c.tracer.Start(ctx, "emit annotations")
	defer span.End()

	anns := annotations.Build(c.results, c.config.MaxAnnotations, res)
	f, err := os.Create(c.config.AnnotationsOut)
	if err != nil {
		return fmt.Errorf("creating annotations file: %w", err)
	}
	defer f.Close()
	if err := annotations.WriteJSON(f, anns); err != nil {
		return fmt.Errorf("writing annotations: %w", err)
	}
	metrics.RecordAnnotations(runID, len(anns))
	logger.Info("Wrote annotations", "destination", c.config.AnnotationsOut, "count", len(anns))
	return nil
}

// printResultsTable prints the converted results to the console.
func (c *checkmate) printResultsTable(data *reporting.ReportData) {
	showCases := c.config.ListTests != reporting.TestsNone && !c.config.OnlySummary
	formatter := reporting.NewTableFormatter(
		fmt.Sprintf("Test Report (%s)", formatDuration(data.Stats.Duration)), showCases)
	out, err := formatter.Format(data)
	if err != nil {
		c.config.Log.Error("Failed to format results table", "error", err)
		return
	}
	fmt.Print(out)
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
