package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkmate-ci/checkmate/types"
)

const mochaBasicJSON = `{
  "stats": {"suites": 1, "tests": 3, "passes": 2, "pending": 0, "failures": 1, "duration": 45},
  "tests": [
    {"title": "accepts valid input", "fullTitle": "validator accepts valid input", "file": "/repo/test/validator.spec.js", "duration": 12, "currentRetry": 0, "err": {}},
    {"title": "rejects empty input", "fullTitle": "validator rejects empty input", "file": "/repo/test/validator.spec.js", "duration": 8, "currentRetry": 0, "err": {}},
    {"title": "flags mismatch", "fullTitle": "validator flags mismatch", "file": "/repo/test/validator.spec.js", "duration": 25, "currentRetry": 0, "err": {"message": "expected true, got false", "stack": "AssertionError: expected true, got false\n    at Context.<anonymous> (test/validator.spec.js:14:5)"}}
  ],
  "pending": [],
  "failures": [
    {"title": "flags mismatch", "fullTitle": "validator flags mismatch", "err": {"message": "expected true, got false"}}
  ],
  "passes": [
    {"title": "accepts valid input", "fullTitle": "validator accepts valid input", "err": {}},
    {"title": "rejects empty input", "fullTitle": "validator rejects empty input", "err": {}}
  ]
}`

func TestMochaParser_Parse(t *testing.T) {
	p, err := New(ReporterMochaJSON)
	require.NoError(t, err)

	run, err := p.Parse("mocha.json", []byte(mochaBasicJSON))
	require.NoError(t, err)

	require.Len(t, run.Suites, 1)
	suite := run.Suites[0]
	assert.Equal(t, "validator", suite.Name)
	require.Len(t, suite.Cases, 3)

	assert.Equal(t, types.TestStatusPass, suite.Cases[0].Status)
	assert.Equal(t, 12*time.Millisecond, suite.Cases[0].Duration)
	assert.Equal(t, "/repo/test/validator.spec.js", suite.Cases[0].Location)

	failed := suite.Cases[2]
	assert.Equal(t, "flags mismatch", failed.Name)
	assert.Equal(t, types.TestStatusFail, failed.Status)
	assert.Equal(t, "expected true, got false", failed.Message)
	assert.Contains(t, failed.Detail, "validator.spec.js:14:5")

	stats := run.Stats()
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, types.RunResultFailed, run.Result())
}

func TestMochaParser_StateField(t *testing.T) {
	doc := `{
  "stats": {"tests": 3},
  "tests": [
    {"title": "a", "fullTitle": "s a", "state": "passed"},
    {"title": "b", "fullTitle": "s b", "state": "failed"},
    {"title": "c", "fullTitle": "s c", "state": "pending"}
  ]
}`

	p, _ := New(ReporterMochaJSON)
	run, err := p.Parse("state.json", []byte(doc))
	require.NoError(t, err)

	cases := run.Suites[0].Cases
	require.Len(t, cases, 3)
	assert.Equal(t, types.TestStatusPass, cases[0].Status)
	assert.Equal(t, types.TestStatusFail, cases[1].Status)
	assert.Equal(t, types.TestStatusSkip, cases[2].Status)
}

func TestMochaParser_PendingByMembership(t *testing.T) {
	// Older mocha: no state field; pending tests only identifiable through
	// the pending array.
	doc := `{
  "stats": {"tests": 2, "pending": 1},
  "tests": [
    {"title": "runs", "fullTitle": "suite runs", "err": {}},
    {"title": "later", "fullTitle": "suite later", "err": {}}
  ],
  "pending": [
    {"title": "later", "fullTitle": "suite later"}
  ]
}`

	p, _ := New(ReporterMochaJSON)
	run, err := p.Parse("pending.json", []byte(doc))
	require.NoError(t, err)

	cases := run.Suites[0].Cases
	assert.Equal(t, types.TestStatusPass, cases[0].Status)
	assert.Equal(t, types.TestStatusSkip, cases[1].Status)
}

func TestMochaParser_SuiteGrouping(t *testing.T) {
	doc := `{
  "stats": {"tests": 4},
  "tests": [
    {"title": "one", "fullTitle": "alpha one", "state": "passed"},
    {"title": "two", "fullTitle": "beta two", "state": "passed"},
    {"title": "three", "fullTitle": "alpha three", "state": "passed"},
    {"title": "rootless", "fullTitle": "rootless", "state": "passed"}
  ]
}`

	p, _ := New(ReporterMochaJSON)
	run, err := p.Parse("groups.json", []byte(doc))
	require.NoError(t, err)

	// Suites appear in first-appearance order; a test defined outside any
	// describe block lands in the placeholder suite.
	require.Len(t, run.Suites, 3)
	assert.Equal(t, "alpha", run.Suites[0].Name)
	assert.Equal(t, "beta", run.Suites[1].Name)
	assert.Equal(t, types.PlaceholderName, run.Suites[2].Name)
	assert.Len(t, run.Suites[0].Cases, 2)
}

func TestMochaParser_NonASCII(t *testing.T) {
	doc := `{
  "stats": {"tests": 1},
  "tests": [
    {"title": "проверяет юникод", "fullTitle": "кодировка проверяет юникод", "state": "failed", "err": {"message": "ожидалось true — получено false"}}
  ]
}`

	p, _ := New(ReporterMochaJSON)
	run, err := p.Parse("unicode.json", []byte(doc))
	require.NoError(t, err)
	tc := run.Suites[0].Cases[0]
	assert.Equal(t, "проверяет юникод", tc.Name)
	assert.Equal(t, "ожидалось true — получено false", tc.Message)
}

func TestMochaParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `<testsuites/>`},
		{name: "truncated", doc: `{"stats": {"tests": 1}, "tests": [`},
		{name: "missing stats", doc: `{"tests": []}`},
		{name: "empty", doc: ``},
	}

	p, _ := New(ReporterMochaJSON)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := p.Parse("bad.json", []byte(tt.doc))
			assert.Nil(t, run)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad.json", pe.File)
		})
	}
}

func TestMochaSuiteTitle(t *testing.T) {
	tests := []struct {
		name string
		test mochaTest
		want string
	}{
		{name: "nested describes", test: mochaTest{Title: "works", FullTitle: "outer inner works"}, want: "outer inner"},
		{name: "no describe", test: mochaTest{Title: "works", FullTitle: "works"}, want: ""},
		{name: "title not a suffix", test: mochaTest{Title: "works", FullTitle: "other thing"}, want: "other thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mochaSuiteTitle(&tt.test))
		})
	}
}
