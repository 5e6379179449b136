package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/checkmate-ci/checkmate/types"
)

// mochaParser handles the single-document JSON produced by mocha's json
// reporter (and the jest/vitest reporters that imitate it). The document
// carries every test in execution order under "tests" plus categorized
// subsets; the subsets are only consulted when a test entry does not state
// its own outcome.
type mochaParser struct{}

func (p *mochaParser) Name() string { return ReporterMochaJSON }

type mochaDocument struct {
	Stats    *mochaStats `json:"stats"`
	Tests    []mochaTest `json:"tests"`
	Pending  []mochaTest `json:"pending"`
	Failures []mochaTest `json:"failures"`
	Passes   []mochaTest `json:"passes"`
}

type mochaStats struct {
	Suites   int `json:"suites"`
	Tests    int `json:"tests"`
	Passes   int `json:"passes"`
	Pending  int `json:"pending"`
	Failures int `json:"failures"`
}

type mochaTest struct {
	Title     string   `json:"title"`
	FullTitle string   `json:"fullTitle"`
	File      string   `json:"file"`
	Duration  float64  `json:"duration"` // milliseconds
	State     string   `json:"state"`
	Pending   bool     `json:"pending"`
	Err       mochaErr `json:"err"`
}

type mochaErr struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

func (p *mochaParser) Parse(fileID string, data []byte) (*types.TestRunResult, error) {
	var doc mochaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newParseError(fileID, err)
	}
	// "stats" is the structural marker of the dialect; a JSON document
	// without it is some other reporter's output.
	if doc.Stats == nil {
		return nil, &ParseError{File: fileID, Err: fmt.Errorf("missing \"stats\" object")}
	}

	pendingTitles := make(map[string]bool, len(doc.Pending))
	for _, t := range doc.Pending {
		pendingTitles[t.FullTitle] = true
	}
	failedTitles := make(map[string]bool, len(doc.Failures))
	for _, t := range doc.Failures {
		failedTitles[t.FullTitle] = true
	}

	// One suite per distinct describe-path, ordered by first appearance in
	// "tests" so the document's execution order survives grouping.
	run := &types.TestRunResult{Name: fileID}
	suiteByName := make(map[string]*types.TestSuite)
	for i := range doc.Tests {
		t := &doc.Tests[i]
		suiteName := types.NameOrPlaceholder(mochaSuiteTitle(t))
		suite, ok := suiteByName[suiteName]
		if !ok {
			suite = &types.TestSuite{Name: suiteName}
			suiteByName[suiteName] = suite
			run.Suites = append(run.Suites, suite)
		}
		suite.Cases = append(suite.Cases, convertMochaTest(t, pendingTitles, failedTitles))
	}
	return run, nil
}

func convertMochaTest(t *mochaTest, pendingTitles, failedTitles map[string]bool) *types.TestCase {
	tc := &types.TestCase{
		Name:      types.NameOrPlaceholder(t.Title),
		ClassName: strings.TrimSpace(mochaSuiteTitle(t)),
		Status:    mochaStatus(t, pendingTitles, failedTitles),
		Duration:  millisToDuration(t.Duration),
		Location:  strings.TrimSpace(t.File),
	}
	if tc.Status == types.TestStatusFail {
		tc.Message = cleanText(t.Err.Message)
		tc.Detail = cleanText(t.Err.Stack)
		if tc.Message == "" {
			tc.Message = firstLine(tc.Detail)
		}
	}
	return tc
}

func mochaStatus(t *mochaTest, pendingTitles, failedTitles map[string]bool) types.TestStatus {
	switch t.State {
	case "passed":
		return types.TestStatusPass
	case "failed":
		return types.TestStatusFail
	case "pending":
		return types.TestStatusSkip
	}
	// Older mocha omits "state" on the combined list; fall back to the
	// error payload and the categorized subsets.
	switch {
	case t.Err.Message != "" || t.Err.Stack != "" || failedTitles[t.FullTitle]:
		return types.TestStatusFail
	case t.Pending || pendingTitles[t.FullTitle]:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}

// mochaSuiteTitle recovers the describe-path by trimming the test's own
// title off its fullTitle ("Auth login rejects bad password" with title
// "rejects bad password" -> "Auth login").
func mochaSuiteTitle(t *mochaTest) string {
	full := strings.TrimSpace(t.FullTitle)
	title := strings.TrimSpace(t.Title)
	if title != "" && strings.HasSuffix(full, title) {
		return strings.TrimSpace(strings.TrimSuffix(full, title))
	}
	return full
}
