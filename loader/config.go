package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Group describes one logical report group: a reporter format plus the
// glob patterns selecting its files. An empty name falls back to the
// file path when results are built.
type Group struct {
	Name     string   `yaml:"name,omitempty"`
	Reporter string   `yaml:"reporter"`
	Paths    []string `yaml:"paths"`
}

// RunConfig is the YAML file behind --config. It bundles several report
// groups with the resolver inputs they share.
type RunConfig struct {
	TrackedFiles string  `yaml:"tracked_files,omitempty"`
	GoModule     string  `yaml:"go_module,omitempty"`
	Groups       []Group `yaml:"groups"`
}

// Validate checks that every group can be acted on.
func (c *RunConfig) Validate() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("run config defines no groups")
	}
	for i, group := range c.Groups {
		if group.Reporter == "" {
			return fmt.Errorf("group %d (%q): reporter is required", i, group.Name)
		}
		if len(group.Paths) == 0 {
			return fmt.Errorf("group %d (%q): at least one path is required", i, group.Name)
		}
	}
	return nil
}

// LoadRunConfig reads and validates a YAML run-group file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadTrackedFiles reads a newline-separated list of repository-relative
// paths. Blank lines and lines starting with # are skipped.
func LoadTrackedFiles(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tracked files list: %w", err)
	}

	var files []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}

	return files, nil
}
