// Package reporting turns parsed run results into human-readable output:
// a markdown report, a console table and a standalone HTML page. All
// formats consume the same ReportData built once per run set.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/checkmate-ci/checkmate/types"
)

// SuitePathSeparator joins suite ancestry into one display path.
const SuitePathSeparator = " / "

// ReportSuite is one suite row, flattened out of the tree with enough
// position info to rebuild the hierarchy in any output format.
type ReportSuite struct {
	Name  string
	Path  []string // ancestry including this suite, placeholder-named
	Depth int      // 0 for top-level suites
	Stats types.Stats
	Suite *types.TestSuite

	// Tree position, consumed by the console table's prefix builder.
	IsLast     bool
	ParentLast []bool
}

// PathString returns the ancestry joined for display.
func (s ReportSuite) PathString() string {
	return strings.Join(s.Path, SuitePathSeparator)
}

// ReportRun is one parsed input file with its flattened suite rows.
type ReportRun struct {
	Name   string
	Result *types.TestRunResult
	Stats  types.Stats
	Suites []ReportSuite // depth-first pre-order, matching source order
}

// ReportCase is a failed case with its owning run and suite path, used
// for flat failure listings.
type ReportCase struct {
	Run   string
	Suite string
	Case  *types.TestCase
}

// ReportData contains all the structured data any report format needs,
// computed once from the parsed results.
type ReportData struct {
	Timestamp    time.Time
	Stats        types.Stats
	PassRate     float64
	PassRateText string
	HasFailures  bool
	Runs         []ReportRun
	FailedCases  []ReportCase // source order within each run, runs in input order
}

// ReportBuilder constructs ReportData from parsed run results.
type ReportBuilder struct {
	now func() time.Time
}

// NewReportBuilder creates a new report builder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{now: time.Now}
}

// WithClock overrides the timestamp source. Tests use this to pin output.
func (rb *ReportBuilder) WithClock(now func() time.Time) *ReportBuilder {
	rb.now = now
	return rb
}

// Build flattens every run's suite tree and derives the aggregate
// statistics. Input order is preserved everywhere: runs keep their given
// order, suites and cases keep source order.
func (rb *ReportBuilder) Build(results []*types.TestRunResult) *ReportData {
	data := &ReportData{
		Timestamp:   rb.now(),
		Runs:        make([]ReportRun, 0, len(results)),
		FailedCases: make([]ReportCase, 0),
	}

	for _, result := range results {
		run := ReportRun{
			Name:   types.NameOrPlaceholder(result.Name),
			Result: result,
			Stats:  result.Stats(),
		}
		for i, suite := range result.Suites {
			rb.flattenSuite(&run, data, suite, nil, i == len(result.Suites)-1, nil)
		}
		data.Runs = append(data.Runs, run)

		data.Stats.Total += run.Stats.Total
		data.Stats.Passed += run.Stats.Passed
		data.Stats.Failed += run.Stats.Failed
		data.Stats.Skipped += run.Stats.Skipped
		data.Stats.Duration += run.Stats.Duration
	}

	if data.Stats.Total > 0 {
		data.PassRate = float64(data.Stats.Passed) / float64(data.Stats.Total) * 100
		data.PassRateText = fmt.Sprintf("%.1f", data.PassRate)
	}
	data.HasFailures = data.Stats.Failed > 0

	return data
}

// flattenSuite appends the suite row and its failed cases, then recurses
// into children. Cases come before child suites, matching Walk order.
func (rb *ReportBuilder) flattenSuite(run *ReportRun, data *ReportData, suite *types.TestSuite, ancestry []string, isLast bool, parentLast []bool) {
	name := types.NameOrPlaceholder(suite.Name)
	path := make([]string, 0, len(ancestry)+1)
	path = append(path, ancestry...)
	path = append(path, name)

	run.Suites = append(run.Suites, ReportSuite{
		Name:       name,
		Path:       path,
		Depth:      len(ancestry),
		Stats:      suite.Stats(),
		Suite:      suite,
		IsLast:     isLast,
		ParentLast: parentLast,
	})

	for _, tc := range suite.Cases {
		if tc.Status == types.TestStatusFail {
			data.FailedCases = append(data.FailedCases, ReportCase{
				Run:   run.Name,
				Suite: strings.Join(path, SuitePathSeparator),
				Case:  tc,
			})
		}
	}

	childParentLast := make([]bool, 0, len(parentLast)+1)
	childParentLast = append(childParentLast, parentLast...)
	childParentLast = append(childParentLast, isLast)
	for i, child := range suite.Suites {
		rb.flattenSuite(run, data, child, path, i == len(suite.Suites)-1, childParentLast)
	}
}
