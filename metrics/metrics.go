package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/checkmate-ci/checkmate/types"
)

const (
	MetricsNamespace = "checkmate"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	parsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "parses_total",
		Help:      "Count of parsed report files",
	}, []string{
		"run_id",
		"reporter",
		"result",
	})

	reportResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "report_results",
		Help:      "Result of converted report files",
	}, []string{
		"run_id",
		"report",
		"result",
	})

	reportTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_tests_total",
		Help:      "Total number of test cases per report",
	}, []string{
		"run_id",
		"report",
	})

	reportTestsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_tests_passed",
		Help:      "Number of passed test cases per report",
	}, []string{
		"run_id",
		"report",
	})

	reportTestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_tests_failed",
		Help:      "Number of failed test cases per report",
	}, []string{
		"run_id",
		"report",
	})

	reportTestsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_tests_skipped",
		Help:      "Number of skipped test cases per report",
	}, []string{
		"run_id",
		"report",
	})

	reportDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "report_duration_seconds",
		Help:      "Summed test duration per report",
	}, []string{
		"run_id",
		"report",
	})

	annotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "annotations_total",
		Help:      "Number of emitted source annotations",
	}, []string{
		"run_id",
	})

	renderedBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "rendered_report_bytes",
		Help:      "Size of a rendered report artifact",
	}, []string{
		"run_id",
		"format",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordParse counts one parse attempt for an input file.
func RecordParse(runID string, reporter string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if Debug {
		log.Debug("metric inc",
			"m", "parses_total",
			"run_id", runID,
			"reporter", reporter,
			"result", result,
		)
	}
	parsesTotal.WithLabelValues(runID, reporter, result).Inc()
}

// RecordReport publishes the aggregate counts of one converted report file.
func RecordReport(runID string, report string, result types.RunResult, stats types.Stats) {
	if Debug {
		log.Debug("metric record",
			"m", "report_results",
			"run_id", runID,
			"report", report,
			"result", result,
			"total", stats.Total,
		)
	}
	reportResults.WithLabelValues(runID, report, string(result)).Set(1)
	reportTestsTotal.WithLabelValues(runID, report).Add(float64(stats.Total))
	reportTestsPassed.WithLabelValues(runID, report).Add(float64(stats.Passed))
	reportTestsFailed.WithLabelValues(runID, report).Add(float64(stats.Failed))
	reportTestsSkipped.WithLabelValues(runID, report).Add(float64(stats.Skipped))
	reportDuration.WithLabelValues(runID, report).Set(stats.Duration.Seconds())
}

// RecordAnnotations counts the annotations emitted for a run.
func RecordAnnotations(runID string, count int) {
	annotationsTotal.WithLabelValues(runID).Add(float64(count))
}

// RecordRenderedReport publishes the byte size of a rendered artifact.
func RecordRenderedReport(runID string, format string, size int) {
	renderedBytes.WithLabelValues(runID, format).Set(float64(size))
}
