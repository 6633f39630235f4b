// Package sink writes the final table of canonical project rows.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/civicscan/civicscan/internal/project"
)

// Format names an output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Sink accepts the ordered rows of a run together with the column header.
type Sink interface {
	Write(ctx context.Context, header []string, rows []project.CanonicalRecord) error
}

// New returns a file sink for format writing to path.
func New(format Format, path string) (Sink, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatCSV, "":
		return &CSVSink{Path: path}, nil
	case FormatJSON:
		return &JSONSink{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// writeFile replaces path atomically with the output of fill.
func writeFile(path string, fill func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if err := fill(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing output file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing output file: %w", err)
	}
	return nil
}
