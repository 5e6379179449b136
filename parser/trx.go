package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/checkmate-ci/checkmate/types"
)

// trxParser handles Visual Studio / VSTest TRX files. A TRX document keeps
// outcomes and test definitions in two separate sections joined by testId;
// suite identity (the class name) only exists on the definition side.
type trxParser struct{}

func (p *trxParser) Name() string { return ReporterDotnetTrx }

type trxDocument struct {
	XMLName     xml.Name      `xml:"TestRun"`
	Results     *trxResults   `xml:"Results"`
	Definitions []trxUnitTest `xml:"TestDefinitions>UnitTest"`
}

type trxResults struct {
	Results []trxResult `xml:"UnitTestResult"`
}

type trxResult struct {
	TestID    string     `xml:"testId,attr"`
	TestName  string     `xml:"testName,attr"`
	Outcome   string     `xml:"outcome,attr"`
	Duration  string     `xml:"duration,attr"`
	StartTime string     `xml:"startTime,attr"`
	EndTime   string     `xml:"endTime,attr"`
	Output    *trxOutput `xml:"Output"`
}

type trxOutput struct {
	StdOut    string        `xml:"StdOut"`
	ErrorInfo *trxErrorInfo `xml:"ErrorInfo"`
}

type trxErrorInfo struct {
	Message    string `xml:"Message"`
	StackTrace string `xml:"StackTrace"`
}

type trxUnitTest struct {
	ID     string        `xml:"id,attr"`
	Name   string        `xml:"name,attr"`
	Method trxTestMethod `xml:"TestMethod"`
}

type trxTestMethod struct {
	ClassName string `xml:"className,attr"`
	Name      string `xml:"name,attr"`
}

func (p *trxParser) Parse(fileID string, data []byte) (*types.TestRunResult, error) {
	var doc trxDocument
	dec := newXMLDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, newParseError(fileID, err)
	}
	if doc.Results == nil {
		return nil, &ParseError{File: fileID, Err: fmt.Errorf("missing <Results> section")}
	}

	classByID := make(map[string]string, len(doc.Definitions))
	for _, def := range doc.Definitions {
		classByID[def.ID] = trxClassName(def.Method.ClassName)
	}

	// Group results into one suite per class, suites ordered by first
	// appearance in <Results> so reruns of the same file stay identical.
	run := &types.TestRunResult{Name: fileID}
	suiteByClass := make(map[string]*types.TestSuite)
	for i := range doc.Results.Results {
		r := &doc.Results.Results[i]
		class := classByID[r.TestID]
		suite, ok := suiteByClass[class]
		if !ok {
			suite = &types.TestSuite{Name: types.NameOrPlaceholder(class)}
			suiteByClass[class] = suite
			run.Suites = append(run.Suites, suite)
		}
		suite.Cases = append(suite.Cases, convertTrxResult(r, class))
	}
	return run, nil
}

func convertTrxResult(r *trxResult, class string) *types.TestCase {
	tc := &types.TestCase{
		Name:      types.NameOrPlaceholder(r.TestName),
		ClassName: class,
		Status:    trxStatus(r.Outcome),
		Duration:  trxDuration(r.Duration),
	}
	if r.Output != nil && r.Output.ErrorInfo != nil {
		tc.Message = cleanText(r.Output.ErrorInfo.Message)
		tc.Detail = cleanText(r.Output.ErrorInfo.StackTrace)
	}
	return tc
}

// trxStatus maps the TRX outcome vocabulary onto the three-state model.
// Anything that ran and did not succeed is failed; everything that never
// ran (NotExecuted, Inconclusive, Pending...) is skipped.
func trxStatus(outcome string) types.TestStatus {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "passed", "passedbutrunaborted":
		return types.TestStatusPass
	case "failed", "error", "timeout", "aborted":
		return types.TestStatusFail
	default:
		return types.TestStatusSkip
	}
}

// trxClassName drops the assembly suffix MSTest appends to class names
// ("Ns.Class, Assembly, Version=..." -> "Ns.Class").
func trxClassName(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// trxDuration parses the TRX "HH:MM:SS.fffffff" duration attribute.
// Missing or malformed values collapse to zero.
func trxDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || hours < 0 || minutes < 0 || seconds < 0 {
		return 0
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(math.Round(seconds*float64(time.Second)))
}
