// Package templates holds the embedded HTML page and the template
// functions shared by HTML report output.
package templates

import _ "embed"

// ReportHTML is the built-in standalone report page.
//
//go:embed report.html
var ReportHTML string
