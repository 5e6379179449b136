// Package resolver maps reported test identifiers (dotted class paths,
// stack-trace frames, explicit file:line references) onto the caller's
// tracked repository files. Resolution never guesses: a location either
// matches a tracked file or reports unresolved.
package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
)

// Location is a resolved position inside a tracked file. Line and Column
// are 1-based; zero means unknown.
type Location struct {
	Path   string
	Line   int
	Column int
}

// Resolver matches raw locations against a fixed tracked-file list. The
// list's order is part of the contract: between equally good matches the
// earlier tracked file always wins, so resolution is reproducible across
// runs.
type Resolver struct {
	files    []trackedFile
	goModule string
}

type trackedFile struct {
	path      string   // as provided by the caller, whitespace-trimmed
	segs      []string // separator-normalized path segments
	baseForms []string // basename with progressively stripped extensions
}

// New builds a Resolver over the given repository-relative paths. An empty
// list is valid; every location then resolves as unresolved.
func New(trackedFiles []string) *Resolver {
	r := &Resolver{}
	for _, p := range trackedFiles {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		norm := strings.ReplaceAll(trimmed, "\\", "/")
		norm = strings.TrimPrefix(norm, "./")
		segs := strings.Split(norm, "/")
		r.files = append(r.files, trackedFile{
			path:      trimmed,
			segs:      segs,
			baseForms: baseForms(segs[len(segs)-1]),
		})
	}
	return r
}

// WithGoModule teaches the resolver the repository's module path from a
// go.mod so Go import paths can be mapped to package directories. A
// malformed go.mod is ignored rather than failing resolution.
func (r *Resolver) WithGoModule(gomod []byte) *Resolver {
	f, err := modfile.Parse("go.mod", gomod, nil)
	if err == nil && f.Module != nil {
		r.goModule = f.Module.Mod.Path
	}
	return r
}

// Tracked reports how many tracked files the resolver holds.
func (r *Resolver) Tracked() int { return len(r.files) }

// Resolve maps one raw location onto a tracked file. The input may be an
// explicit path with optional :line[:column] suffix, or a dotted
// class/module path. The boolean is false when nothing tracked matches.
func (r *Resolver) Resolve(rawLocation string) (Location, bool) {
	raw := strings.TrimSpace(rawLocation)
	if raw == "" || len(r.files) == 0 {
		return Location{}, false
	}
	if looksLikePath(raw) {
		path, line, col := splitLineCol(raw)
		if loc, ok := r.matchPath(path, line, col); ok {
			return loc, true
		}
		return Location{}, false
	}
	return r.matchDotted(raw)
}

// PackageDir maps a Go import path inside the configured module onto its
// repository-relative directory ("auth" for example.com/app/auth under
// module example.com/app). Empty when no module is configured or the path
// lies outside it.
func (r *Resolver) PackageDir(importPath string) string {
	importPath = strings.TrimSpace(importPath)
	if r.goModule == "" || importPath == "" {
		return ""
	}
	if importPath == r.goModule {
		return "."
	}
	if rest, ok := strings.CutPrefix(importPath, r.goModule+"/"); ok {
		return rest
	}
	return ""
}

// Stack frame shapes seen across frameworks:
//
//	at Object.<anonymous> (test/validator.spec.js:14:5)   jest/mocha
//	in C:\src\AuthTests.cs:line 54                        .NET
//	test/calculator_test.dart 11:7 main.<fn>              dart
//	auth_test.go:42: expected 401, got 200                go
var (
	frameCSharpRe = regexp.MustCompile(`in ([\w$@:./\\~-]+\.[A-Za-z]\w*):line (\d+)`)
	frameColonRe  = regexp.MustCompile(`([\w$@./\\~-]+\.[A-Za-z]\w*):(\d+)(?::(\d+))?`)
	frameSpaceRe  = regexp.MustCompile(`([\w$@./\\~-]+\.[A-Za-z]\w*) (\d+):(\d+)`)
)

// FirstTrackedFrame scans failure detail text line by line and resolves
// the first stack frame naming a tracked file. dir, when non-empty,
// additionally tries each frame path under that directory, which pins
// bare basenames ("auth_test.go") to the package that reported them.
func (r *Resolver) FirstTrackedFrame(detail, dir string) (Location, bool) {
	if detail == "" || len(r.files) == 0 {
		return Location{}, false
	}
	for _, line := range strings.Split(detail, "\n") {
		for _, cand := range frameCandidates(line) {
			if dir != "" && dir != "." && !strings.Contains(cand.path, "/") {
				if loc, ok := r.matchPath(dir+"/"+cand.path, cand.line, cand.col); ok {
					return loc, true
				}
			}
			if loc, ok := r.matchPath(cand.path, cand.line, cand.col); ok {
				return loc, true
			}
		}
	}
	return Location{}, false
}

type frameCandidate struct {
	path string
	line int
	col  int
}

func frameCandidates(line string) []frameCandidate {
	var out []frameCandidate
	for _, m := range frameCSharpRe.FindAllStringSubmatch(line, -1) {
		out = append(out, frameCandidate{path: m[1], line: atoi(m[2])})
	}
	for _, m := range frameColonRe.FindAllStringSubmatch(line, -1) {
		out = append(out, frameCandidate{path: m[1], line: atoi(m[2]), col: atoi(m[3])})
	}
	for _, m := range frameSpaceRe.FindAllStringSubmatch(line, -1) {
		out = append(out, frameCandidate{path: m[1], line: atoi(m[2]), col: atoi(m[3])})
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// looksLikePath distinguishes explicit file references from dotted class
// paths. Separators or a trailing :line marker mean path.
func looksLikePath(raw string) bool {
	return strings.ContainsAny(raw, "/\\") || frameColonRe.MatchString(raw)
}

// splitLineCol peels up to two trailing ":<digits>" suffixes off an
// explicit location ("a/b.js:12:5" -> "a/b.js", 12, 5). Windows drive
// colons survive because their suffix is not numeric.
func splitLineCol(raw string) (path string, line, col int) {
	path = raw
	var nums []int
	for len(nums) < 2 {
		idx := strings.LastIndex(path, ":")
		if idx < 0 {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(path[idx+1:]))
		if err != nil || n <= 0 {
			break
		}
		nums = append(nums, n)
		path = path[:idx]
	}
	switch len(nums) {
	case 1:
		line = nums[0]
	case 2:
		line, col = nums[1], nums[0]
	}
	return path, line, col
}

// matchPath resolves an explicit path against the tracked list: the file
// whose trailing segments agree with the reference the longest wins,
// ties broken by tracked-list position.
func (r *Resolver) matchPath(path string, line, col int) (Location, bool) {
	norm := strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	norm = strings.TrimPrefix(norm, "./")
	if norm == "" {
		return Location{}, false
	}
	refSegs := strings.Split(norm, "/")
	refBase := refSegs[len(refSegs)-1]

	best, bestScore := -1, 0
	for i, f := range r.files {
		if f.segs[len(f.segs)-1] != refBase {
			continue
		}
		score := commonSuffix(refSegs, f.segs)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Location{}, false
	}
	return Location{Path: r.files[best].path, Line: line, Column: col}, true
}

// matchDotted resolves a dotted class/module path ("com.example.AuthTest")
// against tracked files, extension-agnostically: the last dotted segment
// must equal the tracked basename with one or more extensions stripped,
// and the preceding segments are ranked by longest common suffix against
// the file's directory segments.
func (r *Resolver) matchDotted(raw string) (Location, bool) {
	segs := splitDotted(raw)
	if len(segs) == 0 {
		return Location{}, false
	}
	base := segs[len(segs)-1]
	dirs := segs[:len(segs)-1]

	best, bestScore := -1, -1
	for i, f := range r.files {
		if !containsString(f.baseForms, base) {
			continue
		}
		score := commonSuffix(dirs, f.segs[:len(f.segs)-1])
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Location{}, false
	}
	return Location{Path: r.files[best].path}, true
}

// splitDotted splits a dotted path, treating java inner classes
// ("Outer$Inner") as their outer class.
func splitDotted(raw string) []string {
	if i := strings.Index(raw, "$"); i >= 0 {
		raw = raw[:i]
	}
	var segs []string
	for _, s := range strings.Split(raw, ".") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// baseForms lists a basename with extensions progressively stripped:
// "Bar.test.js" -> ["Bar.test.js", "Bar.test", "Bar"]. Dotted class paths
// cannot know a file's extension, so every form is a legitimate match.
func baseForms(base string) []string {
	forms := []string{base}
	for {
		i := strings.LastIndex(base, ".")
		if i <= 0 {
			break
		}
		base = base[:i]
		forms = append(forms, base)
	}
	return forms
}

// commonSuffix counts how many trailing segments of a and b agree.
func commonSuffix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) {
		if a[len(a)-1-n] != b[len(b)-1-n] {
			break
		}
		n++
	}
	return n
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String describes the resolver for log lines.
func (r *Resolver) String() string {
	return fmt.Sprintf("resolver(%d tracked files)", len(r.files))
}
