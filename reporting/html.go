package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/checkmate-ci/checkmate/templates"
	"github.com/checkmate-ci/checkmate/types"
)

// HTMLFormatter renders report data as a standalone HTML page.
type HTMLFormatter struct {
	template *template.Template
	title    string
}

// NewHTMLFormatter parses the given template content; an empty string
// selects the built-in page.
func NewHTMLFormatter(title, templateContent string) (*HTMLFormatter, error) {
	if templateContent == "" {
		templateContent = templates.ReportHTML
	}
	tmpl, err := template.New("report").Funcs(templates.GetTemplateFunc()).Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &HTMLFormatter{
		template: tmpl,
		title:    title,
	}, nil
}

// HTMLData is the root payload handed to the report template.
type HTMLData struct {
	Title        string
	GeneratedAt  string
	DurationText string
	Total        int
	Passed       int
	Failed       int
	Skipped      int
	PassRateText string
	HasFailures  bool
	Runs         []HTMLRun
}

// HTMLRun mirrors one parsed input file.
type HTMLRun struct {
	Name   string
	Status types.TestStatus
	Stats  types.Stats
	Suites []HTMLSuite
}

// HTMLSuite is one suite block with its direct cases.
type HTMLSuite struct {
	Name   string
	Path   string
	Depth  int
	Status types.TestStatus
	Stats  types.Stats
	Cases  []HTMLCase
}

// HTMLCase is one case row.
type HTMLCase struct {
	Name     string
	Status   types.TestStatus
	Duration time.Duration
	Message  string
	Detail   string
}

// Format formats the report data as HTML.
func (hf *HTMLFormatter) Format(data *ReportData) (string, error) {
	page := &HTMLData{
		Title:        hf.title,
		GeneratedAt:  data.Timestamp.Format(time.RFC3339),
		DurationText: formatDuration(data.Stats.Duration),
		Total:        data.Stats.Total,
		Passed:       data.Stats.Passed,
		Failed:       data.Stats.Failed,
		Skipped:      data.Stats.Skipped,
		PassRateText: data.PassRateText,
		HasFailures:  data.HasFailures,
		Runs:         make([]HTMLRun, 0, len(data.Runs)),
	}

	for _, run := range data.Runs {
		htmlRun := HTMLRun{
			Name:   run.Name,
			Status: run.Stats.Status(),
			Stats:  run.Stats,
			Suites: make([]HTMLSuite, 0, len(run.Suites)),
		}
		for _, s := range run.Suites {
			suite := HTMLSuite{
				Name:   s.Name,
				Path:   s.PathString(),
				Depth:  s.Depth,
				Status: s.Stats.Status(),
				Stats:  s.Stats,
				Cases:  make([]HTMLCase, 0, len(s.Suite.Cases)),
			}
			for _, tc := range s.Suite.Cases {
				suite.Cases = append(suite.Cases, HTMLCase{
					Name:     types.NameOrPlaceholder(tc.Name),
					Status:   tc.Status,
					Duration: tc.Duration,
					Message:  tc.Message,
					Detail:   tc.Detail,
				})
			}
			htmlRun.Suites = append(htmlRun.Suites, suite)
		}
		page.Runs = append(page.Runs, htmlRun)
	}

	var buf bytes.Buffer
	if err := hf.template.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return buf.String(), nil
}
