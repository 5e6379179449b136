// Package annotations turns failed test cases into source-anchored
// annotations, the bounded list CI systems attach to changed files.
package annotations

import (
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/checkmate-ci/checkmate/resolver"
	"github.com/checkmate-ci/checkmate/types"
)

// SeverityFailure is the only severity produced. Passed and skipped cases
// never become annotations.
const SeverityFailure = "failure"

// DefaultMaxCount matches the per-request annotation ceiling common CI
// check APIs enforce.
const DefaultMaxCount = 50

// maxDetailBytes bounds the detail portion of one annotation message so a
// runaway stack trace cannot blow up the publish payload.
const maxDetailBytes = 64 * 1024

const truncatedMarker = "\n[truncated]"

const suitePathSeparator = " / "

// Annotation is one failure anchored to a tracked source location. Field
// order is part of the JSON output contract.
type Annotation struct {
	Path        string `json:"path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartColumn int    `json:"start_column,omitempty"`
	EndColumn   int    `json:"end_column,omitempty"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Report      string `json:"report"`
	Suite       string `json:"suite"`
}

// Build collects annotations for failed cases in source order within each
// result and in result order across results, stopping at maxCount. A
// maxCount of zero returns an empty list without walking anything. The
// output is deterministic: same input, same maxCount, same annotations.
func Build(results []*types.TestRunResult, maxCount int, res *resolver.Resolver) []Annotation {
	out := make([]Annotation, 0)
	if maxCount <= 0 {
		return out
	}

	for _, result := range results {
		if len(out) == maxCount {
			break
		}
		runName := types.NameOrPlaceholder(result.Name)
		for _, suite := range result.Suites {
			if !collectSuite(&out, maxCount, res, runName, suite, nil) {
				break
			}
		}
	}
	return out
}

// collectSuite appends annotations for the suite's failed cases, then
// recurses into children. Returns false once the cap is reached.
func collectSuite(out *[]Annotation, maxCount int, res *resolver.Resolver, run string, suite *types.TestSuite, ancestry []string) bool {
	path := make([]string, 0, len(ancestry)+1)
	path = append(path, ancestry...)
	path = append(path, types.NameOrPlaceholder(suite.Name))

	for _, tc := range suite.Cases {
		if tc.Status != types.TestStatusFail {
			continue
		}
		if len(*out) == maxCount {
			return false
		}
		*out = append(*out, newAnnotation(run, strings.Join(path, suitePathSeparator), tc, res))
	}
	for _, child := range suite.Suites {
		if !collectSuite(out, maxCount, res, run, child, path) {
			return false
		}
	}
	return true
}

func newAnnotation(run, suitePath string, tc *types.TestCase, res *resolver.Resolver) Annotation {
	loc := resolveCase(tc, res)
	ann := Annotation{
		Path:      loc.Path,
		StartLine: loc.Line,
		EndLine:   loc.Line,
		Severity:  SeverityFailure,
		Title:     types.NameOrPlaceholder(tc.Name),
		Message:   annotationMessage(tc),
		Report:    run,
		Suite:     suitePath,
	}
	if loc.Column > 0 {
		ann.StartColumn = loc.Column
		ann.EndColumn = loc.Column
	}
	return ann
}

// resolveCase finds the best source anchor for a failed case: the
// explicitly reported location first, then the first tracked stack frame
// in the detail, then the class path itself. Cases that resolve nowhere
// anchor at the repository root so they still surface.
func resolveCase(tc *types.TestCase, res *resolver.Resolver) resolver.Location {
	if res != nil {
		if loc, ok := res.Resolve(tc.Location); ok {
			return normalizeLocation(loc)
		}
		if loc, ok := res.FirstTrackedFrame(tc.Detail, res.PackageDir(tc.ClassName)); ok {
			return normalizeLocation(loc)
		}
		if loc, ok := res.Resolve(tc.ClassName); ok {
			return normalizeLocation(loc)
		}
	}
	return resolver.Location{Path: ".", Line: 1}
}

// normalizeLocation pins line-less matches to line one. A column without a
// line is meaningless, so it is dropped with it.
func normalizeLocation(loc resolver.Location) resolver.Location {
	if loc.Line <= 0 {
		loc.Line = 1
		loc.Column = 0
	}
	return loc
}

// annotationMessage combines the failure message with the size-bounded
// detail text.
func annotationMessage(tc *types.TestCase) string {
	detail := boundText(tc.Detail, maxDetailBytes)
	switch {
	case tc.Message == "" && detail == "":
		return "Test failed"
	case tc.Message == "":
		return detail
	case detail == "":
		return tc.Message
	default:
		return tc.Message + "\n\n" + detail
	}
}

// boundText caps s at limit bytes, cutting on a rune boundary and marking
// the cut.
func boundText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - len(truncatedMarker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}

// WriteJSON writes the annotations as an indented JSON array. An empty
// build writes "[]", never "null".
func WriteJSON(w io.Writer, anns []Annotation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(anns)
}
