package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkmate-ci/checkmate/types"
)

const junitBasicXML = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="com.example.AuthTest" tests="3" failures="1" time="0.35">
    <testcase name="logsIn" classname="com.example.AuthTest" time="0.1"/>
    <testcase name="rejectsBadPassword" classname="com.example.AuthTest" time="0.2">
      <failure message="expected 401, got 200" type="AssertionError">at com.example.AuthTest.rejectsBadPassword(AuthTest.java:42)</failure>
    </testcase>
    <testcase name="skipsLegacyFlow" classname="com.example.AuthTest" time="0.05">
      <skipped message="legacy flow disabled"/>
    </testcase>
  </testsuite>
</testsuites>`

func TestJUnitParser_Parse(t *testing.T) {
	p, err := New(ReporterJavaJUnit)
	require.NoError(t, err)

	run, err := p.Parse("auth.xml", []byte(junitBasicXML))
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "auth.xml", run.Name)
	require.Len(t, run.Suites, 1)

	suite := run.Suites[0]
	assert.Equal(t, "com.example.AuthTest", suite.Name)
	require.Len(t, suite.Cases, 3)

	assert.Equal(t, types.TestStatusPass, suite.Cases[0].Status)
	assert.Equal(t, 100*time.Millisecond, suite.Cases[0].Duration)

	failed := suite.Cases[1]
	assert.Equal(t, types.TestStatusFail, failed.Status)
	assert.Equal(t, "expected 401, got 200", failed.Message)
	assert.Contains(t, failed.Detail, "AuthTest.java:42")

	skipped := suite.Cases[2]
	assert.Equal(t, types.TestStatusSkip, skipped.Status)
	assert.Equal(t, "legacy flow disabled", skipped.Message)

	stats := run.Stats()
	assert.Equal(t, types.Stats{Total: 3, Passed: 1, Failed: 1, Skipped: 1, Duration: 350 * time.Millisecond}, stats)
	assert.Equal(t, types.RunResultFailed, run.Result())
}

func TestJUnitParser_BareSuiteRoot(t *testing.T) {
	doc := `<testsuite name="single">
  <testcase name="works" time="0.01"/>
</testsuite>`

	p, _ := New(ReporterJavaJUnit)
	run, err := p.Parse("single.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, run.Suites, 1)
	assert.Equal(t, "single", run.Suites[0].Name)
	require.Len(t, run.Suites[0].Cases, 1)
}

func TestJUnitParser_NestedSuites(t *testing.T) {
	doc := `<testsuites>
  <testsuite name="outer">
    <testcase name="top"/>
    <testsuite name="inner">
      <testcase name="deep">
        <error message="boom" type="RuntimeError">stack here</error>
      </testcase>
      <testsuite name="innermost">
        <testcase name="deepest"/>
      </testsuite>
    </testsuite>
  </testsuite>
</testsuites>`

	p, _ := New(ReporterJavaJUnit)
	run, err := p.Parse("nested.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, run.Suites, 1)

	outer := run.Suites[0]
	require.Len(t, outer.Suites, 1)
	inner := outer.Suites[0]
	assert.Equal(t, "inner", inner.Name)
	require.Len(t, inner.Cases, 1)

	// <error> children count as failed.
	assert.Equal(t, types.TestStatusFail, inner.Cases[0].Status)
	assert.Equal(t, "boom", inner.Cases[0].Message)

	require.Len(t, inner.Suites, 1)
	assert.Equal(t, "innermost", inner.Suites[0].Name)

	stats := run.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Failed)
}

func TestJUnitParser_MissingAttributesDefault(t *testing.T) {
	doc := `<testsuites>
  <testsuite>
    <testcase/>
  </testsuite>
</testsuites>`

	p, _ := New(ReporterJavaJUnit)
	run, err := p.Parse("sparse.xml", []byte(doc))
	require.NoError(t, err)

	suite := run.Suites[0]
	assert.Equal(t, types.PlaceholderName, suite.Name)
	require.Len(t, suite.Cases, 1)
	assert.Equal(t, types.PlaceholderName, suite.Cases[0].Name)
	assert.Equal(t, time.Duration(0), suite.Cases[0].Duration)
	assert.Equal(t, types.TestStatusPass, suite.Cases[0].Status)
}

func TestJUnitParser_DuplicateCaseNamesAcrossSuites(t *testing.T) {
	doc := `<testsuites>
  <testsuite name="chrome"><testcase name="renders"/></testsuite>
  <testsuite name="firefox"><testcase name="renders"/></testsuite>
</testsuites>`

	p, _ := New(ReporterJavaJUnit)
	run, err := p.Parse("dup.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, run.Suites, 2)
	assert.Equal(t, 2, run.Stats().Total, "same case name in different suites must stay distinct")
}

func TestJUnitParser_FileLineAttributes(t *testing.T) {
	doc := `<testsuites>
  <testsuite name="jest">
    <testcase name="adds" file="src/math.test.js" line="12">
      <failure>expected 3, got 4</failure>
    </testcase>
  </testsuite>
</testsuites>`

	p, _ := New(ReporterJestJUnit)
	run, err := p.Parse("jest.xml", []byte(doc))
	require.NoError(t, err)

	tc := run.Suites[0].Cases[0]
	assert.Equal(t, "src/math.test.js:12", tc.Location)
	// Failure with no message attribute falls back to the body's first line.
	assert.Equal(t, "expected 3, got 4", tc.Message)
}

func TestJUnitParser_NonUTF8Charset(t *testing.T) {
	// "échoué" in ISO-8859-1: é = 0xE9.
	doc := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?>
<testsuites>
  <testsuite name="latin">
    <testcase name="accents">
      <failure message="`), append([]byte{0xE9, 'c', 'h', 'o', 'u', 0xE9}, []byte(`"/>
    </testcase>
  </testsuite>
</testsuites>`)...)...)

	p, _ := New(ReporterJavaJUnit)
	run, err := p.Parse("latin.xml", doc)
	require.NoError(t, err)
	assert.Equal(t, "échoué", run.Suites[0].Cases[0].Message)
}

func TestJUnitParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "truncated document", doc: `<testsuites><testsuite name="x">`},
		{name: "not xml at all", doc: `{"stats":{}}`},
		{name: "empty input", doc: ``},
		{name: "wrong root element", doc: `<TestRun><Results/></TestRun>`},
	}

	p, _ := New(ReporterJavaJUnit)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := p.Parse("bad.xml", []byte(tt.doc))
			assert.Nil(t, run, "malformed input must not produce a partial result")
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad.xml", pe.File)
		})
	}
}

func TestJUnitParser_Deterministic(t *testing.T) {
	p, _ := New(ReporterJavaJUnit)
	first, err := p.Parse("auth.xml", []byte(junitBasicXML))
	require.NoError(t, err)
	second, err := p.Parse("auth.xml", []byte(junitBasicXML))
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical bytes must yield an identical tree")
}
