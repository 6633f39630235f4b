package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/civicscan/civicscan/internal/project"
)

// JSONSink writes an indented JSON document with the columns and rows.
type JSONSink struct {
	Path string
}

type jsonTable struct {
	Columns []string                  `json:"columns"`
	Rows    []project.CanonicalRecord `json:"rows"`
}

func (s *JSONSink) Write(_ context.Context, header []string, rows []project.CanonicalRecord) error {
	if rows == nil {
		rows = []project.CanonicalRecord{}
	}

	return writeFile(s.Path, func(f *os.File) error {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(jsonTable{Columns: header, Rows: rows}); err != nil {
			return fmt.Errorf("encoding rows: %w", err)
		}
		return nil
	})
}
