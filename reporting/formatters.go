package reporting

import (
	"fmt"
	"os"
	"time"

	"github.com/checkmate-ci/checkmate/types"
)

// ReportFormatter renders built report data into one output format.
type ReportFormatter interface {
	Format(data *ReportData) (string, error)
}

// ReportWriter delivers formatted report content to its destination.
type ReportWriter interface {
	Write(content string) error
}

// FileWriter writes reports to a file.
type FileWriter struct {
	path string
}

// NewFileWriter creates a new file writer.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write writes the content to the file.
func (fw *FileWriter) Write(content string) error {
	return os.WriteFile(fw.path, []byte(content), 0644)
}

// StdoutWriter writes reports to stdout.
type StdoutWriter struct{}

// NewStdoutWriter creates a new stdout writer.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{}
}

// Write writes the content to stdout.
func (sw *StdoutWriter) Write(content string) error {
	_, err := fmt.Print(content)
	return err
}

// statusIcon maps a status onto the single-character marker used across
// markdown and console output.
func statusIcon(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓"
	case types.TestStatusFail:
		return "✗"
	case types.TestStatusSkip:
		return "⊝"
	default:
		return "?"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
