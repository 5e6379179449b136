package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkmate-ci/checkmate/types"
)

// fixtureRun returns one run with a failing top-level suite and a nested
// all-passing suite tree. Shared by the formatter tests.
func fixtureRun() *types.TestRunResult {
	return &types.TestRunResult{
		Name: "backend-tests",
		Suites: []*types.TestSuite{
			{
				Name: "Auth",
				Cases: []*types.TestCase{
					{Name: "logs in with valid credentials", Status: types.TestStatusPass, Duration: 12 * time.Millisecond},
					{
						Name:     "rejects expired token",
						Status:   types.TestStatusFail,
						Duration: 30 * time.Millisecond,
						Message:  "expected 401, got 200",
						Detail:   "Error: expected 401, got 200\n    at Object.<anonymous> (test/auth.spec.js:14:5)",
					},
					{Name: "refreshes session", Status: types.TestStatusSkip, Message: "flaky on CI"},
				},
			},
			{
				Name: "Payments",
				Cases: []*types.TestCase{
					{Name: "charges a saved card", Status: types.TestStatusPass, Duration: 40 * time.Millisecond},
				},
				Suites: []*types.TestSuite{
					{
						Name: "Refunds",
						Cases: []*types.TestCase{
							{Name: "refunds within 30 days", Status: types.TestStatusPass, Duration: 25 * time.Millisecond},
						},
					},
				},
			},
		},
	}
}

func TestReportBuilderBuild(t *testing.T) {
	data := NewReportBuilder().Build([]*types.TestRunResult{fixtureRun()})

	assert.Equal(t, 5, data.Stats.Total, "should count every case transitively")
	assert.Equal(t, 3, data.Stats.Passed)
	assert.Equal(t, 1, data.Stats.Failed)
	assert.Equal(t, 1, data.Stats.Skipped)
	assert.True(t, data.HasFailures)
	assert.Equal(t, "60.0", data.PassRateText)

	require.Len(t, data.Runs, 1)
	run := data.Runs[0]
	assert.Equal(t, "backend-tests", run.Name)

	require.Len(t, run.Suites, 3, "suites should be flattened depth-first")
	assert.Equal(t, "Auth", run.Suites[0].Name)
	assert.Equal(t, 0, run.Suites[0].Depth)
	assert.False(t, run.Suites[0].IsLast)
	assert.Equal(t, "Payments", run.Suites[1].Name)
	assert.True(t, run.Suites[1].IsLast)
	assert.Equal(t, "Refunds", run.Suites[2].Name)
	assert.Equal(t, 1, run.Suites[2].Depth)
	assert.Equal(t, []bool{true}, run.Suites[2].ParentLast)
	assert.Equal(t, "Payments / Refunds", run.Suites[2].PathString())

	require.Len(t, data.FailedCases, 1)
	assert.Equal(t, "backend-tests", data.FailedCases[0].Run)
	assert.Equal(t, "Auth", data.FailedCases[0].Suite)
	assert.Equal(t, "rejects expired token", data.FailedCases[0].Case.Name)
}

func TestReportBuilderEmptyResults(t *testing.T) {
	data := NewReportBuilder().Build(nil)

	assert.Zero(t, data.Stats.Total)
	assert.False(t, data.HasFailures)
	assert.Empty(t, data.PassRateText, "pass rate is undefined without cases")
	assert.Empty(t, data.Runs)
	assert.Empty(t, data.FailedCases)
}

func TestReportBuilderFailureOrderAcrossRuns(t *testing.T) {
	first := &types.TestRunResult{
		Name: "first",
		Suites: []*types.TestSuite{{
			Name: "s",
			Cases: []*types.TestCase{
				{Name: "f1", Status: types.TestStatusFail},
				{Name: "ok", Status: types.TestStatusPass},
				{Name: "f2", Status: types.TestStatusFail},
			},
		}},
	}
	second := &types.TestRunResult{
		Name: "second",
		Suites: []*types.TestSuite{{
			Name: "s",
			Cases: []*types.TestCase{
				{Name: "f3", Status: types.TestStatusFail},
			},
		}},
	}

	data := NewReportBuilder().Build([]*types.TestRunResult{first, second})

	var got []string
	for _, fc := range data.FailedCases {
		got = append(got, fc.Run+"/"+fc.Case.Name)
	}
	assert.Equal(t, []string{"first/f1", "first/f2", "second/f3"}, got,
		"failed cases keep source order within a run and run order across runs")
}

func TestReportBuilderPlaceholderNames(t *testing.T) {
	run := &types.TestRunResult{
		Suites: []*types.TestSuite{{
			Cases: []*types.TestCase{{Status: types.TestStatusFail}},
		}},
	}

	data := NewReportBuilder().Build([]*types.TestRunResult{run})

	require.Len(t, data.Runs, 1)
	assert.Equal(t, types.PlaceholderName, data.Runs[0].Name)
	require.Len(t, data.Runs[0].Suites, 1)
	assert.Equal(t, types.PlaceholderName, data.Runs[0].Suites[0].Name)
	require.Len(t, data.FailedCases, 1)
	assert.Equal(t, types.PlaceholderName, data.FailedCases[0].Suite)
}

func TestReportBuilderWithClock(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	data := NewReportBuilder().WithClock(func() time.Time { return at }).Build(nil)
	assert.Equal(t, at, data.Timestamp)
}
