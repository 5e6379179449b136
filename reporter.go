package checkmate

import (
	"github.com/checkmate-ci/checkmate/metrics"
	"github.com/checkmate-ci/checkmate/types"
)

// MetricsReporter is responsible for reporting metrics from converted reports.
type MetricsReporter interface {
	ReportResults(runID string, result *types.TestRunResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the converted report to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(runID string, result *types.TestRunResult) {
	metrics.RecordReport(runID, result.Name, result.Result(), result.Stats())
}
