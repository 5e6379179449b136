package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/checkmate-ci/checkmate/types"
)

const (
	goActionRun    = "run"
	goActionPass   = "pass"
	goActionFail   = "fail"
	goActionSkip   = "skip"
	goActionOutput = "output"
)

// goJSONParser handles `go test -json` (test2json) event streams. Each
// package becomes a suite; each test, subtests included, becomes a case
// keyed by its full slash-separated name.
type goJSONParser struct{}

func (p *goJSONParser) Name() string { return ReporterGoJSON }

// goEvent is one test2json event line.
type goEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Output  string    `json:"Output"`
	Elapsed float64   `json:"Elapsed"` // seconds
}

// openGoTest accumulates output for a test until its result event arrives.
type openGoTest struct {
	output strings.Builder
}

func (p *goJSONParser) Parse(fileID string, data []byte) (*types.TestRunResult, error) {
	run := &types.TestRunResult{Name: fileID}

	suites := make(map[string]*types.TestSuite)
	suiteOf := func(pkg string) *types.TestSuite {
		s, ok := suites[pkg]
		if !ok {
			s = &types.TestSuite{Name: types.NameOrPlaceholder(pkg)}
			suites[pkg] = s
			run.Suites = append(run.Suites, s)
		}
		return s
	}

	open := make(map[string]*openGoTest)      // "pkg\x00test" -> accumulated output
	pkgOutput := make(map[string]*strings.Builder)
	pkgHasTests := make(map[string]bool)
	key := func(pkg, test string) string { return pkg + "\x00" + test }

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	sawEvent := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev goEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			// The go toolchain interleaves raw non-JSON lines with events
			// when builds fail or subprocesses write to the terminal.
			continue
		}
		if ev.Action == "" {
			continue
		}
		sawEvent = true

		if ev.Test == "" {
			// Package-level event.
			switch ev.Action {
			case goActionOutput:
				b, ok := pkgOutput[ev.Package]
				if !ok {
					b = &strings.Builder{}
					pkgOutput[ev.Package] = b
				}
				b.WriteString(ev.Output)
			case goActionFail:
				suite := suiteOf(ev.Package)
				if !pkgHasTests[ev.Package] {
					// A package that failed without running any test is a
					// build or setup failure; surface it as a failed case
					// so the run cannot look green.
					detail := ""
					if b, ok := pkgOutput[ev.Package]; ok {
						detail = cleanText(b.String())
					}
					suite.Cases = append(suite.Cases, &types.TestCase{
						Name:      fmt.Sprintf("%s (package)", path.Base(ev.Package)),
						ClassName: ev.Package,
						Status:    types.TestStatusFail,
						Duration:  elapsedSeconds(ev.Elapsed),
						Message:   firstLine(detail),
						Detail:    detail,
					})
				}
			case goActionPass, goActionSkip:
				suiteOf(ev.Package)
			}
			continue
		}

		k := key(ev.Package, ev.Test)
		switch ev.Action {
		case goActionRun:
			open[k] = &openGoTest{}
		case goActionOutput:
			if t, ok := open[k]; ok {
				t.output.WriteString(ev.Output)
			}
		case goActionPass, goActionFail, goActionSkip:
			pkgHasTests[ev.Package] = true
			tc := &types.TestCase{
				Name:      types.NameOrPlaceholder(ev.Test),
				ClassName: ev.Package,
				Duration:  elapsedSeconds(ev.Elapsed),
			}
			output := ""
			if t, ok := open[k]; ok {
				output = cleanText(t.output.String())
				delete(open, k)
			}
			switch ev.Action {
			case goActionPass:
				tc.Status = types.TestStatusPass
			case goActionSkip:
				tc.Status = types.TestStatusSkip
				tc.Message = goSkipReason(output)
			case goActionFail:
				tc.Status = types.TestStatusFail
				tc.Message = goFailureMessage(output)
				tc.Detail = output
			}
			suite := suiteOf(ev.Package)
			suite.Cases = append(suite.Cases, tc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseError(fileID, err)
	}
	if !sawEvent {
		return nil, &ParseError{File: fileID, Err: fmt.Errorf("no test2json events found")}
	}
	return run, nil
}

// elapsedSeconds converts test2json's float Elapsed seconds to a duration,
// clamping negatives to zero.
func elapsedSeconds(f float64) time.Duration {
	if f < 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}

// goFailureMessage picks the most informative line out of a failed test's
// output: the first assertion or panic line when one exists, otherwise the
// first line of output.
func goFailureMessage(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "Error:") || strings.Contains(trimmed, "panic:") {
			return trimmed
		}
	}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "=== ") || strings.HasPrefix(trimmed, "--- ") {
			continue
		}
		return trimmed
	}
	return firstLine(output)
}

// goSkipReason extracts the reason following a "--- SKIP:" marker line.
func goSkipReason(output string) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if strings.Contains(line, "--- SKIP:") && i+1 < len(lines) {
			return strings.TrimSpace(lines[i+1])
		}
	}
	return ""
}
