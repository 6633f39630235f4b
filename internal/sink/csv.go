package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/civicscan/civicscan/internal/project"
)

// CSVSink writes a header line followed by one line per row.
type CSVSink struct {
	Path string
}

func (s *CSVSink) Write(_ context.Context, header []string, rows []project.CanonicalRecord) error {
	return writeFile(s.Path, func(f *os.File) error {
		w := csv.NewWriter(f)

		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for i, row := range rows {
			if err := w.Write(row.Values()); err != nil {
				return fmt.Errorf("writing row %d: %w", i, err)
			}
		}

		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flushing csv: %w", err)
		}
		return nil
	})
}
