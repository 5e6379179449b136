// Package loader expands glob patterns into concrete report files and
// buffers their contents. It is the orchestrator's only source of raw
// report bytes; parsers never touch the filesystem.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
)

// Input is one raw report file: the identifier the result carries through
// the pipeline plus the fully buffered file contents.
type Input struct {
	Path string
	Data []byte
}

// Config contains loader configuration
type Config struct {
	Log log.Logger
}

// Loader expands glob patterns and reads the matched files.
type Loader struct {
	log log.Logger
}

// New creates a new loader instance
func New(cfg Config) *Loader {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Loader{log: cfg.Log}
}

// Expand resolves glob patterns to concrete file paths. Patterns are
// processed in order, each pattern's matches keep Glob's lexical order,
// directories are skipped, and duplicates across patterns are dropped.
func (l *Loader) Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			l.log.Warn("Glob pattern matched no files", "pattern", pattern)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.IsDir() {
				continue
			}
			if seen[match] {
				continue
			}
			seen[match] = true
			paths = append(paths, match)
		}
	}

	return paths, nil
}

// Load expands patterns and reads every matched file into memory.
func (l *Loader) Load(patterns []string) ([]Input, error) {
	paths, err := l.Expand(patterns)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading report file: %w", err)
		}
		l.log.Debug("Loaded report file", "path", path, "bytes", len(data))
		inputs = append(inputs, Input{Path: path, Data: data})
	}

	return inputs, nil
}
