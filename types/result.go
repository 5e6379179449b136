package types

import (
	"strings"
	"time"
)

// TestStatus represents the outcome of a single test case
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// RunResult represents the overall outcome of one parsed report file
type RunResult string

const (
	RunResultSuccess RunResult = "success"
	RunResultFailed  RunResult = "failed"
)

// PlaceholderName substitutes empty case/suite names so that no entry is
// ever dropped from counts. Parsers apply it; nothing downstream re-checks.
const PlaceholderName = "(unnamed)"

// NameOrPlaceholder returns the trimmed name, or PlaceholderName when the
// reported name is empty or whitespace-only.
func NameOrPlaceholder(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return PlaceholderName
}

// TestCase is a single executed test extracted from a report file.
// Immutable once the owning parser returns.
type TestCase struct {
	Name      string        // display name, never empty after parsing
	ClassName string        // fully-qualified class/module path as reported, may be empty
	Status    TestStatus    // pass, fail or skip
	Duration  time.Duration // execution time, never negative
	Message   string        // short failure/skip reason, empty when passed
	Detail    string        // stack trace or captured output, opaque text
	Location  string        // raising location as the format reported it ("file:line[:col]"), may be empty
}

// TestSuite is an ordered group of cases plus optional nested child suites.
// Aggregate counts are always derived on demand, never stored, so they can
// not diverge from the tree.
type TestSuite struct {
	Name   string
	Cases  []*TestCase
	Suites []*TestSuite
}

// TestRunResult is the canonical model produced from one report file.
// Multiple files yield multiple TestRunResults; they are merged only for
// output aggregation, never into one tree.
type TestRunResult struct {
	Name   string // report/file identifier
	Suites []*TestSuite
}

// Stats contains aggregate counts derived from a suite or run subtree
type Stats struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Status collapses counts into a single display status: any failure wins,
// an all-skipped subtree shows as skipped, everything else as passed.
func (s Stats) Status() TestStatus {
	switch {
	case s.Failed > 0:
		return TestStatusFail
	case s.Total > 0 && s.Total == s.Skipped:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}

func (s *Stats) add(o Stats) {
	s.Total += o.Total
	s.Passed += o.Passed
	s.Failed += o.Failed
	s.Skipped += o.Skipped
	s.Duration += o.Duration
}

func (s *Stats) count(tc *TestCase) {
	s.Total++
	switch tc.Status {
	case TestStatusPass:
		s.Passed++
	case TestStatusFail:
		s.Failed++
	case TestStatusSkip:
		s.Skipped++
	}
	s.Duration += tc.Duration
}

// Stats sums the suite's own cases plus all nested suites recursively
func (s *TestSuite) Stats() Stats {
	var stats Stats
	for _, tc := range s.Cases {
		stats.count(tc)
	}
	for _, child := range s.Suites {
		stats.add(child.Stats())
	}
	return stats
}

// Walk visits the suite's cases in source order, then recurses into child
// suites, also in source order. The visitor receives the immediate owning
// suite of each case. Traversal stops when the visitor returns false.
func (s *TestSuite) Walk(visitor func(owner *TestSuite, tc *TestCase) bool) bool {
	for _, tc := range s.Cases {
		if !visitor(s, tc) {
			return false
		}
	}
	for _, child := range s.Suites {
		if !child.Walk(visitor) {
			return false
		}
	}
	return true
}

// Stats sums over all top-level suites transitively
func (r *TestRunResult) Stats() Stats {
	var stats Stats
	for _, s := range r.Suites {
		stats.add(s.Stats())
	}
	return stats
}

// Result is failed iff any contained case failed
func (r *TestRunResult) Result() RunResult {
	if r.Stats().Failed > 0 {
		return RunResultFailed
	}
	return RunResultSuccess
}

// Walk visits every case reachable from the run's suites in source order
func (r *TestRunResult) Walk(visitor func(owner *TestSuite, tc *TestCase) bool) {
	for _, s := range r.Suites {
		if !s.Walk(visitor) {
			return
		}
	}
}
