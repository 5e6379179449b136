// Package parser converts framework-specific test report files into the
// canonical result model. Each reporter name maps to exactly one Parser;
// the format is always selected explicitly, never sniffed from the bytes.
package parser

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/checkmate-ci/checkmate/types"
)

// Reporter names accepted by New.
const (
	ReporterJavaJUnit   = "java-junit"
	ReporterJestJUnit   = "jest-junit"
	ReporterDotnetTrx   = "dotnet-trx"
	ReporterMochaJSON   = "mocha-json"
	ReporterDartJSON    = "dart-json"
	ReporterFlutterJSON = "flutter-json"
	ReporterGoJSON      = "go-json"
)

// ErrUnknownReporter is returned by New for reporter names with no parser.
var ErrUnknownReporter = errors.New("unknown reporter")

// Parser converts one report file into a TestRunResult. Implementations
// hold no mutable state, so a single Parser may parse many files
// concurrently.
type Parser interface {
	// Parse builds the result model from one file's bytes. The returned
	// tree preserves the document's suite and case order exactly; identical
	// bytes always yield an identical tree. A document that is not
	// well-formed for the parser's dialect yields a *ParseError, never a
	// partial result.
	Parse(fileID string, data []byte) (*types.TestRunResult, error)
	// Name returns the reporter name this parser is registered under.
	Name() string
}

// New returns the Parser for the given reporter name, or an
// ErrUnknownReporter-wrapped error listing the supported names.
func New(reporter string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(reporter)) {
	case ReporterJavaJUnit:
		return &junitParser{name: ReporterJavaJUnit}, nil
	case ReporterJestJUnit:
		return &junitParser{name: ReporterJestJUnit}, nil
	case ReporterDotnetTrx:
		return &trxParser{}, nil
	case ReporterMochaJSON:
		return &mochaParser{}, nil
	case ReporterDartJSON:
		return &dartParser{name: ReporterDartJSON}, nil
	case ReporterFlutterJSON:
		return &dartParser{name: ReporterFlutterJSON}, nil
	case ReporterGoJSON:
		return &goJSONParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownReporter, reporter, strings.Join(Names(), ", "))
	}
}

// Names returns every supported reporter name in stable order.
func Names() []string {
	return []string{
		ReporterJavaJUnit,
		ReporterJestJUnit,
		ReporterDotnetTrx,
		ReporterMochaJSON,
		ReporterDartJSON,
		ReporterFlutterJSON,
		ReporterGoJSON,
	}
}

// ParseError describes one report file that could not be parsed as its
// declared format. It carries whatever position context the underlying
// decoder exposed so callers can point at the offending input.
type ParseError struct {
	File   string // file identifier as handed to Parse
	Line   int    // 1-based line when known, else 0
	Offset int64  // byte offset when known, else 0
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("parse %s: line %d: %v", e.File, e.Line, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("parse %s: offset %d: %v", e.File, e.Offset, e.Err)
	default:
		return fmt.Sprintf("parse %s: %v", e.File, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// newParseError wraps a decoder error, lifting line/offset context out of
// the standard xml/json error types when present.
func newParseError(file string, err error) *ParseError {
	pe := &ParseError{File: file, Err: err}
	var xmlErr *xml.SyntaxError
	var jsonErr *json.SyntaxError
	switch {
	case errors.As(err, &xmlErr):
		pe.Line = xmlErr.Line
	case errors.As(err, &jsonErr):
		pe.Offset = jsonErr.Offset
	}
	return pe
}

// lineParseError is newParseError for line-oriented (NDJSON) dialects where
// the failing line number is tracked by the caller.
func lineParseError(file string, line int, err error) *ParseError {
	return &ParseError{File: file, Line: line, Err: err}
}

// newXMLDecoder returns a decoder that transparently decodes the charsets
// XML documents declare in practice (windows-1252, iso-8859-1, shift_jis...),
// not just UTF-8.
func newXMLDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	}
	return dec
}

// cleanText strips ANSI escape sequences and normalizes line endings.
// Frameworks colorize assertion output; the escapes are noise in reports
// and annotations.
func cleanText(s string) string {
	s = stripansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// secondsToDuration converts a float seconds attribute ("0.042") to a
// duration. Malformed and negative values collapse to zero; report files
// in the wild carry both. Rounded, not truncated, so decimal fractions
// that are inexact in binary ("0.12") still map to the obvious duration.
func secondsToDuration(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}

// millisToDuration converts a millisecond count to a duration, clamping
// negatives to zero.
func millisToDuration(ms float64) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
