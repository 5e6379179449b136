package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/checkmate-ci/checkmate/types"
)

// junitParser handles the JUnit XML family. Serves both the java-junit and
// jest-junit reporter names: jest's junit output is the same schema, it
// just writes file paths into classname and stack traces into the failure
// body.
type junitParser struct {
	name string
}

func (p *junitParser) Name() string { return p.name }

// junitSuite is one <testsuite> element. Suites nest arbitrarily deep;
// every attribute is optional in the wild.
type junitSuite struct {
	Name   string       `xml:"name,attr"`
	File   string       `xml:"file,attr"`
	Suites []junitSuite `xml:"testsuite"`
	Cases  []junitCase  `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	File      string        `xml:"file,attr"`
	Line      string        `xml:"line,attr"`
	Time      string        `xml:"time,attr"`
	Failures  []junitDetail `xml:"failure"`
	Errors    []junitDetail `xml:"error"`
	Skipped   *junitDetail  `xml:"skipped"`
}

type junitDetail struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func (p *junitParser) Parse(fileID string, data []byte) (*types.TestRunResult, error) {
	dec := newXMLDecoder(bytes.NewReader(data))

	// Locate the document element ourselves: valid reports root at either
	// <testsuites> or a bare <testsuite>.
	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, &ParseError{File: fileID, Err: fmt.Errorf("no root element found")}
		}
		if err != nil {
			return nil, newParseError(fileID, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			root = se
			break
		}
	}

	var suites []junitSuite
	switch root.Name.Local {
	case "testsuites":
		var doc struct {
			Suites []junitSuite `xml:"testsuite"`
		}
		if err := dec.DecodeElement(&doc, &root); err != nil {
			return nil, newParseError(fileID, err)
		}
		suites = doc.Suites
	case "testsuite":
		var suite junitSuite
		if err := dec.DecodeElement(&suite, &root); err != nil {
			return nil, newParseError(fileID, err)
		}
		suites = []junitSuite{suite}
	default:
		line, _ := dec.InputPos()
		return nil, &ParseError{
			File: fileID,
			Line: line,
			Err:  fmt.Errorf("root element is <%s>, want <testsuites> or <testsuite>", root.Name.Local),
		}
	}

	run := &types.TestRunResult{Name: fileID}
	for i := range suites {
		run.Suites = append(run.Suites, convertJUnitSuite(&suites[i]))
	}
	return run, nil
}

func convertJUnitSuite(src *junitSuite) *types.TestSuite {
	suite := &types.TestSuite{Name: types.NameOrPlaceholder(src.Name)}
	for i := range src.Cases {
		suite.Cases = append(suite.Cases, convertJUnitCase(&src.Cases[i]))
	}
	for i := range src.Suites {
		suite.Suites = append(suite.Suites, convertJUnitSuite(&src.Suites[i]))
	}
	return suite
}

func convertJUnitCase(src *junitCase) *types.TestCase {
	tc := &types.TestCase{
		Name:      types.NameOrPlaceholder(src.Name),
		ClassName: strings.TrimSpace(src.ClassName),
		Status:    types.TestStatusPass,
		Duration:  secondsToDuration(src.Time),
		Location:  junitLocation(src.File, src.Line),
	}

	switch {
	case len(src.Failures) > 0 || len(src.Errors) > 0:
		// An <error> (infrastructure crash) counts as failed: the case did
		// not pass and must surface in failure listings.
		tc.Status = types.TestStatusFail
		details := append(append([]junitDetail{}, src.Failures...), src.Errors...)
		tc.Message = junitMessage(details[0])
		tc.Detail = junitDetailText(details)
	case src.Skipped != nil:
		tc.Status = types.TestStatusSkip
		tc.Message = cleanText(src.Skipped.Message)
	}

	return tc
}

// junitMessage picks the short reason for a failure element: the message
// attribute when present, otherwise the first line of the body.
func junitMessage(d junitDetail) string {
	if msg := cleanText(d.Message); msg != "" {
		return msg
	}
	return firstLine(cleanText(d.Body))
}

// junitDetailText joins failure/error bodies in document order, keeping the
// embedded stack traces verbatim apart from ANSI cleanup.
func junitDetailText(details []junitDetail) string {
	var parts []string
	for _, d := range details {
		if body := cleanText(d.Body); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n")
}

// junitLocation builds a "file:line" location from the optional testcase
// attributes written by jest-junit, pytest and friends.
func junitLocation(file, line string) string {
	file = strings.TrimSpace(file)
	if file == "" {
		return ""
	}
	if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n > 0 {
		return fmt.Sprintf("%s:%d", file, n)
	}
	return file
}
