package reporting

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/checkmate-ci/checkmate/types"
)

// SuiteFilter selects which suite rows appear in the rendered tree.
type SuiteFilter string

const (
	SuitesAll        SuiteFilter = "all"
	SuitesFailedOnly SuiteFilter = "failed"
)

// CaseFilter selects which case rows appear under each suite.
type CaseFilter string

const (
	TestsAll        CaseFilter = "all"
	TestsFailedOnly CaseFilter = "failed"
	TestsNone       CaseFilter = "none"
)

// Options controls markdown rendering. The zero value lists everything,
// uncapped, with same-page anchors.
type Options struct {
	ListSuites  SuiteFilter
	ListTests   CaseFilter
	OnlySummary bool   // aggregate counts only, no suite tree
	BaseURL     string // prefix for anchor links, empty means same page
	IDPrefix    string // disambiguates anchors when several reports share a page
	MaxBytes    int    // output cap in bytes, 0 means uncapped
}

func (o Options) normalized() Options {
	if o.ListSuites == "" {
		o.ListSuites = SuitesAll
	}
	if o.ListTests == "" {
		o.ListTests = TestsAll
	}
	return o
}

// TruncationMarker ends every capped report. Truncation is never silent.
const TruncationMarker = "\n\n[report truncated]\n"

// RenderMarkdown renders the parsed results as one markdown document, one
// section per input file in input order. Output is deterministic for a
// fixed input and options.
func RenderMarkdown(results []*types.TestRunResult, opts Options) string {
	return RenderMarkdownData(NewReportBuilder().Build(results), opts)
}

// RenderMarkdownData renders already-built report data. Callers producing
// several formats build the data once and feed it to each renderer.
func RenderMarkdownData(data *ReportData, opts Options) string {
	opts = opts.normalized()
	anchors := newAnchorSet(opts.IDPrefix)

	var b strings.Builder
	for i, run := range data.Runs {
		if i > 0 {
			b.WriteString("\n")
		}
		renderRunMarkdown(&b, run, opts, anchors)
	}
	return truncateReport(b.String(), opts.MaxBytes)
}

func renderRunMarkdown(b *strings.Builder, run ReportRun, opts Options, anchors *anchorSet) {
	fmt.Fprintf(b, "## %s %s\n\n", statusIcon(run.Stats.Status()), escapeMarkdown(run.Name))
	fmt.Fprintf(b, "**%s** in %s\n", countsLine(run.Stats), formatDuration(run.Stats.Duration))
	if opts.OnlySummary {
		return
	}

	var suites []ReportSuite
	var slugs []string
	for _, s := range run.Suites {
		if opts.ListSuites == SuitesFailedOnly && s.Stats.Failed == 0 {
			continue
		}
		suites = append(suites, s)
		slugs = append(slugs, anchors.slug(run.Name, s.PathString()))
	}
	if len(suites) == 0 {
		return
	}

	// Suite overview tree. Rows link to the detail sections below; with
	// case listing disabled there are no sections, so no links either.
	withSections := opts.ListTests != TestsNone
	b.WriteString("\n")
	for i, s := range suites {
		indent := strings.Repeat("  ", s.Depth)
		label := fmt.Sprintf("%s %s", statusIcon(s.Stats.Status()), escapeMarkdown(s.Name))
		if withSections {
			fmt.Fprintf(b, "%s- [%s](%s#%s): %s\n", indent, label, opts.BaseURL, slugs[i], countsLine(s.Stats))
		} else {
			fmt.Fprintf(b, "%s- %s: %s\n", indent, label, countsLine(s.Stats))
		}
	}
	if !withSections {
		return
	}

	for i, s := range suites {
		b.WriteString("\n")
		fmt.Fprintf(b, "<a id=%q></a>\n", slugs[i])
		fmt.Fprintf(b, "### %s %s\n\n", statusIcon(s.Stats.Status()), escapeMarkdown(s.PathString()))
		fmt.Fprintf(b, "%s in %s\n", countsLine(s.Stats), formatDuration(s.Stats.Duration))

		rows := false
		for _, tc := range s.Suite.Cases {
			if opts.ListTests == TestsFailedOnly && tc.Status != types.TestStatusFail {
				continue
			}
			if !rows {
				b.WriteString("\n")
				rows = true
			}
			renderCaseMarkdown(b, tc)
		}
	}
}

func renderCaseMarkdown(b *strings.Builder, tc *types.TestCase) {
	fmt.Fprintf(b, "- %s %s", statusIcon(tc.Status), escapeMarkdown(types.NameOrPlaceholder(tc.Name)))
	if tc.Duration > 0 {
		fmt.Fprintf(b, " (%s)", formatDuration(tc.Duration))
	}
	b.WriteString("\n")

	switch {
	case tc.Status == types.TestStatusFail && tc.Detail != "":
		renderDetailsBlock(b, tc.Message, tc.Detail)
	case tc.Status == types.TestStatusFail && tc.Message != "":
		fmt.Fprintf(b, "  %s\n", escapeMarkdown(tc.Message))
	case tc.Status == types.TestStatusSkip && tc.Message != "":
		fmt.Fprintf(b, "  %s\n", escapeMarkdown(tc.Message))
	}
}

// renderDetailsBlock emits the failure detail inside a collapsible block
// so long stack traces do not dominate the page.
func renderDetailsBlock(b *strings.Builder, message, detail string) {
	summary := message
	if summary == "" {
		summary = "failure output"
	}
	b.WriteString("<details>\n")
	fmt.Fprintf(b, "<summary>%s</summary>\n\n", html.EscapeString(summary))
	fence := codeFence(detail)
	b.WriteString(fence + "\n")
	b.WriteString(detail)
	if !strings.HasSuffix(detail, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence + "\n")
	b.WriteString("</details>\n")
}

// codeFence returns a backtick fence longer than any run of backticks in
// the text, so arbitrary failure output cannot break out of the block.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest < 2 {
		longest = 2
	}
	return strings.Repeat("`", longest+1)
}

// truncateReport cuts the report to maxBytes and appends the truncation
// marker, backing up so the cut never lands inside a UTF-8 sequence.
func truncateReport(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes - len(TruncationMarker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}

// countsLine renders the canonical "N passed, N failed, N skipped" triple.
func countsLine(stats types.Stats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped", stats.Passed, stats.Failed, stats.Skipped)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	">", "&gt;",
)

// escapeMarkdown neutralizes markdown and HTML metacharacters in reported
// names, which are untrusted text.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// anchorSet hands out document-unique anchor ids.
type anchorSet struct {
	prefix string
	used   map[string]int
}

func newAnchorSet(prefix string) *anchorSet {
	return &anchorSet{prefix: prefix, used: make(map[string]int)}
}

func (a *anchorSet) slug(parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if a.prefix != "" {
		elems = append(elems, a.prefix)
	}
	elems = append(elems, parts...)
	base := slugify(strings.Join(elems, "-"))
	if base == "" {
		base = "suite"
	}
	n := a.used[base]
	a.used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// slugify lowercases and reduces a string to [a-z0-9-], collapsing every
// other character run into a single dash.
func slugify(s string) string {
	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
