package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/checkmate-ci/checkmate/types"
	"github.com/checkmate-ci/checkmate/ui"
)

// TableFormatter renders report data as a colored console table with one
// row per report, suite and (optionally) case.
type TableFormatter struct {
	title     string
	showCases bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(title string, showCases bool) *TableFormatter {
	return &TableFormatter{
		title:     title,
		showCases: showCases,
	}
}

// Format formats the report data as an ASCII table.
func (tf *TableFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(tf.title)

	t.AppendHeader(table.Row{
		"Type", "Name", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Name", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, run := range data.Runs {
		t.AppendRow(table.Row{
			"Report",
			run.Name,
			formatDuration(run.Stats.Duration),
			run.Stats.Total,
			run.Stats.Passed,
			run.Stats.Failed,
			run.Stats.Skipped,
			statusText(run.Stats.Status()),
		})

		for _, s := range run.Suites {
			prefix := ui.BuildTreePrefix(s.Depth+1, s.IsLast, s.ParentLast)
			t.AppendRow(table.Row{
				"Suite",
				prefix + s.Name,
				formatDuration(s.Stats.Duration),
				"-", // suites aggregate their cases, don't double count
				s.Stats.Passed,
				s.Stats.Failed,
				s.Stats.Skipped,
				statusText(s.Stats.Status()),
			})

			if tf.showCases {
				tf.appendCaseRows(t, s)
			}
		}

		t.AppendSeparator()
	}

	// Table color keyed to the overall outcome.
	switch data.Stats.Status() {
	case types.TestStatusFail:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(data.Stats.Duration),
		data.Stats.Total,
		data.Stats.Passed,
		data.Stats.Failed,
		data.Stats.Skipped,
		statusText(data.Stats.Status()),
	})

	t.Render()
	return buf.String(), nil
}

// appendCaseRows adds one row per direct case of the suite. A case is the
// last branch of its suite only when no child suites follow it.
func (tf *TableFormatter) appendCaseRows(t table.Writer, s ReportSuite) {
	parentLast := make([]bool, 0, len(s.ParentLast)+1)
	parentLast = append(parentLast, s.ParentLast...)
	parentLast = append(parentLast, s.IsLast)

	for i, tc := range s.Suite.Cases {
		isLast := i == len(s.Suite.Cases)-1 && len(s.Suite.Suites) == 0
		prefix := ui.BuildTreePrefix(s.Depth+2, isLast, parentLast)
		t.AppendRow(table.Row{
			"Test",
			fmt.Sprintf("%s%s %s", prefix, statusIcon(tc.Status), types.NameOrPlaceholder(tc.Name)),
			formatDuration(tc.Duration),
			1,
			boolToInt(tc.Status == types.TestStatusPass),
			boolToInt(tc.Status == types.TestStatusFail),
			boolToInt(tc.Status == types.TestStatusSkip),
			statusText(tc.Status),
		})
	}
}

// statusText converts a status to its table display string.
func statusText(status types.TestStatus) string {
	return strings.ToUpper(string(status))
}

// boolToInt converts a boolean to int for table display.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
