package templates

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/checkmate-ci/checkmate/types"
)

// GetTemplateFunc returns the centralized template functions used across
// the HTML outputs.
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			if d < time.Second {
				return fmt.Sprintf("%dms", d.Milliseconds())
			}
			return d.Truncate(time.Millisecond).String()
		},
		"statusClass": func(status types.TestStatus) string {
			return statusString(status)
		},
		"statusText": func(status types.TestStatus) string {
			return strings.ToUpper(statusString(status))
		},
		"multiply": func(a, b int) int {
			return a * b
		},
		"overallStatus": func(stats types.Stats) types.TestStatus {
			return stats.Status()
		},
	}
}

// statusString returns a consistent lowercase status string safe to use
// as a CSS class.
func statusString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "pass"
	case types.TestStatusFail:
		return "fail"
	case types.TestStatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}
