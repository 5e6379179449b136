package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkmate-ci/checkmate/types"
)

func TestTableFormatterFormat(t *testing.T) {
	data := NewReportBuilder().Build([]*types.TestRunResult{fixtureRun()})

	out, err := NewTableFormatter("Test Results", true).Format(data)
	require.NoError(t, err)

	assert.Contains(t, out, "Test Results", "title row")
	assert.Contains(t, out, "backend-tests")
	assert.Contains(t, out, "├── Auth", "top-level suite with siblings below")
	assert.Contains(t, out, "└── Payments", "last top-level suite")
	assert.Contains(t, out, "    └── Refunds", "nested suite under a last parent")
	assert.Contains(t, out, "✓ logs in with valid credentials")
	assert.Contains(t, out, "✗ rejects expired token")
	assert.Contains(t, out, "⊝ refreshes session")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "FAIL", "overall status reflects the failure")
}

func TestTableFormatterCasePrefixes(t *testing.T) {
	data := NewReportBuilder().Build([]*types.TestRunResult{fixtureRun()})

	out, err := NewTableFormatter("", true).Format(data)
	require.NoError(t, err)

	// The skip is the last case of Auth, which has no child suites.
	assert.Contains(t, out, "│   └── ⊝ refreshes session")
	// Payments has a child suite, so its case is not the last branch.
	assert.Contains(t, out, "    ├── ✓ charges a saved card")
	assert.Contains(t, out, "        └── ✓ refunds within 30 days")
}

func TestTableFormatterWithoutCases(t *testing.T) {
	data := NewReportBuilder().Build([]*types.TestRunResult{fixtureRun()})

	out, err := NewTableFormatter("", false).Format(data)
	require.NoError(t, err)

	assert.Contains(t, out, "├── Auth")
	assert.NotContains(t, out, "logs in with valid credentials", "case rows disabled")
}

func TestTableFormatterAllPassing(t *testing.T) {
	run := &types.TestRunResult{
		Name: "green",
		Suites: []*types.TestSuite{{
			Name:  "s",
			Cases: []*types.TestCase{{Name: "ok", Status: types.TestStatusPass}},
		}},
	}
	data := NewReportBuilder().Build([]*types.TestRunResult{run})

	out, err := NewTableFormatter("", true).Format(data)
	require.NoError(t, err)

	assert.Contains(t, out, "PASS")
	assert.NotContains(t, out, "✗", "all-passing run shows no failure markers")
}
