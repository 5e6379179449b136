package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestExpandPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.xml"), "<a/>")
	writeFile(t, filepath.Join(tmpDir, "b.xml"), "<b/>")
	writeFile(t, filepath.Join(tmpDir, "notes.txt"), "not a report")
	writeFile(t, filepath.Join(tmpDir, "sub", "c.xml"), "<c/>")
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "dir.xml"), 0755))

	l := New(Config{})

	t.Run("matches keep lexical order and skip directories", func(t *testing.T) {
		paths, err := l.Expand([]string{filepath.Join(tmpDir, "*.xml")})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(tmpDir, "a.xml"),
			filepath.Join(tmpDir, "b.xml"),
		}, paths)
	})

	t.Run("overlapping patterns are deduplicated", func(t *testing.T) {
		paths, err := l.Expand([]string{
			filepath.Join(tmpDir, "*.xml"),
			filepath.Join(tmpDir, "a.xml"),
			filepath.Join(tmpDir, "sub", "*.xml"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(tmpDir, "a.xml"),
			filepath.Join(tmpDir, "b.xml"),
			filepath.Join(tmpDir, "sub", "c.xml"),
		}, paths)
	})

	t.Run("no matches is not an error", func(t *testing.T) {
		paths, err := l.Expand([]string{filepath.Join(tmpDir, "*.trx")})
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("malformed pattern fails", func(t *testing.T) {
		_, err := l.Expand([]string{"["})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad glob pattern")
	})
}

func TestLoadReadsFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "first.json"), `{"stats":{}}`)
	writeFile(t, filepath.Join(tmpDir, "second.json"), `{"tests":[]}`)

	inputs, err := New(Config{}).Load([]string{filepath.Join(tmpDir, "*.json")})
	require.NoError(t, err)

	require.Len(t, inputs, 2)
	assert.Equal(t, filepath.Join(tmpDir, "first.json"), inputs[0].Path)
	assert.Equal(t, `{"stats":{}}`, string(inputs[0].Data))
	assert.Equal(t, filepath.Join(tmpDir, "second.json"), inputs[1].Path)
	assert.Equal(t, `{"tests":[]}`, string(inputs[1].Data))
}

func TestLoadRunConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "checkmate.yaml")
	writeFile(t, configPath, `
tracked_files: tracked.txt
go_module: go.mod
groups:
  - name: backend
    reporter: java-junit
    paths:
      - "reports/junit/*.xml"
  - reporter: mocha-json
    paths:
      - "reports/mocha.json"
      - "reports/extra/*.json"
`)

	cfg, err := LoadRunConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "tracked.txt", cfg.TrackedFiles)
	assert.Equal(t, "go.mod", cfg.GoModule)
	require.Len(t, cfg.Groups, 2)
	assert.Equal(t, "backend", cfg.Groups[0].Name)
	assert.Equal(t, "java-junit", cfg.Groups[0].Reporter)
	assert.Equal(t, []string{"reports/junit/*.xml"}, cfg.Groups[0].Paths)
	assert.Empty(t, cfg.Groups[1].Name, "group name is optional")
	assert.Len(t, cfg.Groups[1].Paths, 2)
}

func TestLoadRunConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "no groups",
			config:  "tracked_files: tracked.txt\n",
			wantErr: "no groups",
		},
		{
			name: "missing reporter",
			config: `
groups:
  - name: backend
    paths: ["*.xml"]
`,
			wantErr: "reporter is required",
		},
		{
			name: "missing paths",
			config: `
groups:
  - name: backend
    reporter: java-junit
`,
			wantErr: "at least one path is required",
		},
		{
			name:    "malformed yaml",
			config:  "groups: [\n",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, "checkmate.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.config), 0644))

			_, err := LoadRunConfig(configPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRunConfig(filepath.Join(tmpDir, "nonexistent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})
}

func TestLoadTrackedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	listPath := filepath.Join(tmpDir, "tracked.txt")
	writeFile(t, listPath, "src/auth/login.go\n\n# vendored, keep out\n  test/auth.spec.js  \r\nsrc/payments/charge.go\n")

	files, err := LoadTrackedFiles(listPath)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src/auth/login.go",
		"test/auth.spec.js",
		"src/payments/charge.go",
	}, files)
}
