package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/civicscan/civicscan/internal/logger"
	"github.com/civicscan/civicscan/internal/pipeline"
)

// OutputFormat specifies the summary format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Summary is the end-of-run report printed to stdout
type Summary struct {
	CheckedAt time.Time               `json:"checked_at"`
	Output    string                  `json:"output"`
	Sources   []pipeline.SourceResult `json:"sources"`
	RowCount  int                     `json:"row_count"`
	Changed   int                     `json:"changed"`
	Failed    int                     `json:"failed"`
	// OutputError is set when the table could not be written.
	OutputError string           `json:"output_error,omitempty"`
	Metrics     *logger.Snapshot `json:"metrics,omitempty"`
}

// NewSummary builds a Summary from a run report. runErr is the error returned
// by the run, if any.
func NewSummary(report *pipeline.Report, outputPath string, metrics logger.Snapshot, runErr error) *Summary {
	s := &Summary{
		CheckedAt: time.Now().UTC(),
		Output:    outputPath,
		Metrics:   &metrics,
	}
	if runErr != nil {
		s.OutputError = runErr.Error()
	}
	if report == nil {
		return s
	}

	if !report.FinishedAt.IsZero() {
		s.CheckedAt = report.FinishedAt
	}
	s.Sources = report.Sources
	s.RowCount = len(report.Rows)
	s.Changed = report.Changed()
	s.Failed = report.Failed()
	return s
}

// WriteSummary writes the summary in the specified format. Metrics are only
// included when verbose is set.
func WriteSummary(w io.Writer, summary *Summary, format OutputFormat, verbose bool) error {
	out := *summary
	if !verbose {
		out.Metrics = nil
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, &out)
	case FormatText:
		return writeText(w, &out, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the summary as JSON
func writeJSON(w io.Writer, summary *Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// writeText outputs the summary as human-readable text
func writeText(w io.Writer, summary *Summary, verbose bool) error {
	if len(summary.Sources) == 0 {
		fmt.Fprintln(w, "No sources checked.")
		return nil
	}

	for _, src := range summary.Sources {
		switch src.Status {
		case pipeline.StatusChanged:
			fmt.Fprintf(w, "CHANGED:   %s (%s, %d records)\n", src.URL, src.Adapter, src.Records)
		case pipeline.StatusFailed:
			fmt.Fprintf(w, "FAILED:    %s: %s\n", src.URL, src.Error)
		default:
			fmt.Fprintf(w, "UNCHANGED: %s\n", src.URL)
		}
		if verbose {
			if src.Fingerprint != "" {
				fmt.Fprintf(w, "     Fingerprint: %s\n", src.Fingerprint)
			}
			fmt.Fprintf(w, "     Took: %s\n", src.Duration.Round(time.Millisecond))
		}
	}

	switch {
	case summary.OutputError != "":
		fmt.Fprintf(w, "\nOutput not written to %s: %s\n", summary.Output, summary.OutputError)
	case summary.Changed == 0:
		fmt.Fprintln(w, "\nNo changed sources.")
	default:
		fmt.Fprintf(w, "\nTotal: %d rows from %d changed sources, written to %s\n", summary.RowCount, summary.Changed, summary.Output)
	}
	if summary.Failed > 0 {
		fmt.Fprintf(w, "Failed: %d of %d sources\n", summary.Failed, len(summary.Sources))
	}

	if verbose && summary.Metrics != nil {
		names := make([]string, 0, len(summary.Metrics.Counters))
		for name := range summary.Metrics.Counters {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nCounters:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, summary.Metrics.Counters[name])
		}
	}

	return nil
}
