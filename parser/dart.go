package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/checkmate-ci/checkmate/types"
)

// dartParser handles the newline-delimited JSON event protocol emitted by
// `dart test --reporter json` and `flutter test --machine`. The two tools
// speak the same protocol, so one implementation serves both reporter
// names. Suites arrive as events, groups nest inside them, and each test
// is a testStart/testDone pair with error events in between.
type dartParser struct {
	name string
}

func (p *dartParser) Name() string { return p.name }

type dartEvent struct {
	Type string `json:"type"`
	Time int64  `json:"time"` // milliseconds since run start

	Suite *dartSuite `json:"suite"`
	Group *dartGroup `json:"group"`
	Test  *dartTest  `json:"test"`

	TestID     int    `json:"testID"`
	Result     string `json:"result"`
	Skipped    bool   `json:"skipped"`
	Hidden     bool   `json:"hidden"`
	Error      string `json:"error"`
	StackTrace string `json:"stackTrace"`
}

type dartSuite struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

type dartGroup struct {
	ID       int    `json:"id"`
	SuiteID  int    `json:"suiteID"`
	ParentID *int   `json:"parentID"`
	Name     string `json:"name"`
}

type dartTest struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	SuiteID  int           `json:"suiteID"`
	GroupIDs []int         `json:"groupIDs"`
	Line     *int          `json:"line"`
	Column   *int          `json:"column"`
	URL      string        `json:"url"`
	Metadata *dartMetadata `json:"metadata"`
}

type dartMetadata struct {
	Skip       bool   `json:"skip"`
	SkipReason string `json:"skipReason"`
}

// openDartTest tracks a test between its testStart and testDone events.
type openDartTest struct {
	tc        *types.TestCase
	container *types.TestSuite
	start     int64
	failed    bool
	details   []string
}

func (p *dartParser) Parse(fileID string, data []byte) (*types.TestRunResult, error) {
	run := &types.TestRunResult{Name: fileID}

	suiteNodes := make(map[int]*types.TestSuite) // suite event id -> tree node
	suitePaths := make(map[int]string)
	groupNodes := make(map[int]*types.TestSuite) // group id -> tree node (or enclosing node for unnamed root groups)
	groupNames := make(map[int]string)           // group id -> full name prefix
	openTests := make(map[int]*openDartTest)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	sawEvent := false
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev dartEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, lineParseError(fileID, lineNo, err)
		}
		sawEvent = true

		switch ev.Type {
		case "suite":
			if ev.Suite == nil {
				return nil, lineParseError(fileID, lineNo, fmt.Errorf("suite event without suite payload"))
			}
			node := &types.TestSuite{Name: types.NameOrPlaceholder(ev.Suite.Path)}
			suiteNodes[ev.Suite.ID] = node
			suitePaths[ev.Suite.ID] = strings.TrimSpace(ev.Suite.Path)
			run.Suites = append(run.Suites, node)

		case "group":
			if ev.Group == nil {
				return nil, lineParseError(fileID, lineNo, fmt.Errorf("group event without group payload"))
			}
			g := ev.Group
			parent, ok := suiteNodes[g.SuiteID]
			if !ok {
				return nil, lineParseError(fileID, lineNo, fmt.Errorf("group %d references unknown suite %d", g.ID, g.SuiteID))
			}
			prefix := ""
			if g.ParentID != nil {
				if pn, ok := groupNodes[*g.ParentID]; ok {
					parent = pn
				}
				prefix = groupNames[*g.ParentID]
			}
			if strings.TrimSpace(g.Name) == "" {
				// The implicit root group; alias it to its container.
				groupNodes[g.ID] = parent
				groupNames[g.ID] = prefix
				continue
			}
			node := &types.TestSuite{Name: types.NameOrPlaceholder(dartDisplayName(g.Name, prefix))}
			parent.Suites = append(parent.Suites, node)
			groupNodes[g.ID] = node
			groupNames[g.ID] = g.Name

		case "testStart":
			if ev.Test == nil {
				return nil, lineParseError(fileID, lineNo, fmt.Errorf("testStart event without test payload"))
			}
			t := ev.Test
			container, ok := suiteNodes[t.SuiteID]
			if !ok {
				return nil, lineParseError(fileID, lineNo, fmt.Errorf("test %d references unknown suite %d", t.ID, t.SuiteID))
			}
			prefix := ""
			if len(t.GroupIDs) > 0 {
				last := t.GroupIDs[len(t.GroupIDs)-1]
				if gn, ok := groupNodes[last]; ok {
					container = gn
				}
				prefix = groupNames[last]
			}
			tc := &types.TestCase{
				Name:      types.NameOrPlaceholder(dartDisplayName(t.Name, prefix)),
				ClassName: suitePaths[t.SuiteID],
				Status:    types.TestStatusPass,
				Location:  dartLocation(t),
			}
			if t.Metadata != nil && t.Metadata.SkipReason != "" {
				tc.Message = cleanText(t.Metadata.SkipReason)
			}
			openTests[t.ID] = &openDartTest{tc: tc, container: container, start: ev.Time}

		case "error":
			open, ok := openTests[ev.TestID]
			if !ok {
				continue
			}
			open.failed = true
			if msg := cleanText(ev.Error); msg != "" {
				if open.tc.Message == "" {
					open.tc.Message = msg
				} else {
					open.details = append(open.details, msg)
				}
			}
			if stack := cleanText(ev.StackTrace); stack != "" {
				open.details = append(open.details, stack)
			}

		case "testDone":
			open, ok := openTests[ev.TestID]
			if !ok {
				continue
			}
			delete(openTests, ev.TestID)
			// Hidden tests are the runner's own bookkeeping entries
			// (loading, setUpAll...), not user tests.
			if ev.Hidden {
				continue
			}
			switch {
			case ev.Result == "failure" || ev.Result == "error" || open.failed:
				open.tc.Status = types.TestStatusFail
			case ev.Skipped:
				open.tc.Status = types.TestStatusSkip
			default:
				open.tc.Status = types.TestStatusPass
				open.tc.Message = ""
			}
			if ev.Time > open.start {
				open.tc.Duration = millisToDuration(float64(ev.Time - open.start))
			}
			open.tc.Detail = strings.Join(open.details, "\n")
			open.container.Cases = append(open.container.Cases, open.tc)
		}
		// start, allSuites, print, debug and done events carry nothing the
		// model needs.
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseError(fileID, err)
	}
	if !sawEvent {
		return nil, &ParseError{File: fileID, Err: fmt.Errorf("empty event stream")}
	}
	return run, nil
}

// dartDisplayName strips the enclosing group prefix from a full test/group
// name; the protocol names everything by its full path joined with spaces.
func dartDisplayName(full, parentPrefix string) string {
	full = strings.TrimSpace(full)
	parentPrefix = strings.TrimSpace(parentPrefix)
	if parentPrefix != "" && strings.HasPrefix(full, parentPrefix+" ") {
		return full[len(parentPrefix)+1:]
	}
	return full
}

// dartLocation renders the test's url/line/column as "path:line:col",
// dropping the file:// scheme so tracked-file matching sees a plain path.
func dartLocation(t *dartTest) string {
	url := strings.TrimSpace(t.URL)
	if url == "" {
		return ""
	}
	url = strings.TrimPrefix(url, "file://")
	if t.Line != nil && *t.Line > 0 {
		if t.Column != nil && *t.Column > 0 {
			return fmt.Sprintf("%s:%d:%d", url, *t.Line, *t.Column)
		}
		return fmt.Sprintf("%s:%d", url, *t.Line)
	}
	return url
}
