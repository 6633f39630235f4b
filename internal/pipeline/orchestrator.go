package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/change"
	"github.com/civicscan/civicscan/internal/config"
	"github.com/civicscan/civicscan/internal/hashstore"
	"github.com/civicscan/civicscan/internal/logger"
	"github.com/civicscan/civicscan/internal/project"
	"github.com/civicscan/civicscan/internal/scraper"
	"github.com/civicscan/civicscan/internal/sink"
	"github.com/civicscan/civicscan/internal/structurer"
)

// Status is the outcome of processing one source.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusChanged   Status = "changed"
	StatusFailed    Status = "failed"
)

// SourceResult records what happened to one source URL.
type SourceResult struct {
	URL         string        `json:"url"`
	Status      Status        `json:"status"`
	Adapter     string        `json:"adapter,omitempty"`
	Records     int           `json:"records"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Report summarises a run. Rows holds the canonical table in sink order.
type Report struct {
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Sources    []SourceResult            `json:"sources"`
	Rows       []project.CanonicalRecord `json:"-"`
}

// Changed returns the number of sources whose content changed.
func (r *Report) Changed() int {
	return r.count(StatusChanged)
}

// Failed returns the number of sources that were skipped on error.
func (r *Report) Failed() int {
	return r.count(StatusFailed)
}

func (r *Report) count(s Status) int {
	n := 0
	for _, src := range r.Sources {
		if src.Status == s {
			n++
		}
	}
	return n
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Launcher   browser.Launcher
	Detector   *change.Detector
	Selector   *scraper.Selector
	Structurer *structurer.Structurer
	Store      hashstore.Store
	// Sink may be nil, in which case rows are only returned in the Report.
	Sink    sink.Sink
	Metrics *logger.Metrics
}

// Orchestrator processes a fixed list of sources sequentially.
type Orchestrator struct {
	sources []string
	deps    Deps
}

// New validates deps and returns an Orchestrator for sources.
func New(sources []string, deps Deps) (*Orchestrator, error) {
	if len(sources) == 0 {
		return nil, config.ErrNoSources
	}
	if deps.Launcher == nil || deps.Store == nil {
		return nil, errors.New("pipeline needs a browser launcher and a hash store")
	}
	if deps.Detector == nil {
		deps.Detector = change.NewDetector(deps.Store, change.DefaultWaitTimeout)
	}
	if deps.Selector == nil {
		deps.Selector = scraper.NewSelector(scraper.DefaultOptions())
	}
	if deps.Structurer == nil {
		deps.Structurer = structurer.New(nil, structurer.Options{})
	}
	if deps.Metrics == nil {
		deps.Metrics = logger.DefaultMetrics()
	}

	return &Orchestrator{
		sources: append([]string(nil), sources...),
		deps:    deps,
	}, nil
}

// Run processes every source and writes the accumulated rows to the sink.
// Per-source failures are recorded in the Report, not returned. The returned
// error is non-nil only when the sink fails or ctx is cancelled, and the
// Report is valid in both cases.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC()}

	for _, sourceURL := range o.sources {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, fmt.Errorf("run interrupted before %s: %w", sourceURL, err)
		}

		result, rows := o.process(ctx, sourceURL)
		report.Sources = append(report.Sources, result)
		report.Rows = append(report.Rows, rows...)
	}

	report.FinishedAt = time.Now().UTC()

	if o.deps.Sink != nil {
		if err := o.deps.Sink.Write(ctx, project.Columns, report.Rows); err != nil {
			return report, fmt.Errorf("writing output: %w", err)
		}
	}

	logger.Info("Run complete", logger.Fields{
		"sources":  len(report.Sources),
		"changed":  report.Changed(),
		"failed":   report.Failed(),
		"rows":     len(report.Rows),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	})

	return report, nil
}

// process runs one source through detect, extract, structure and normalize.
// The browser session is closed before it returns, whatever the outcome.
func (o *Orchestrator) process(ctx context.Context, sourceURL string) (result SourceResult, rows []project.CanonicalRecord) {
	start := time.Now()
	result = SourceResult{URL: sourceURL}
	defer func() {
		result.Duration = time.Since(start)
		o.deps.Metrics.RecordTiming("source.process", result.Duration)
	}()

	fail := func(stage string, err error) (SourceResult, []project.CanonicalRecord) {
		o.deps.Metrics.IncrCounter("sources.failed")
		logger.Error("Skipping source", logger.Fields{
			"url":   sourceURL,
			"stage": stage,
		}, err)
		result.Status = StatusFailed
		result.Error = err.Error()
		return result, nil
	}

	sess, err := o.deps.Launcher.NewSession(ctx)
	if err != nil {
		return fail("session", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Closing browser session failed", logger.Fields{
				"url":    sourceURL,
				"reason": err.Error(),
			})
		}
	}()

	check, err := o.deps.Detector.Check(ctx, sess, sourceURL)
	if err != nil {
		return fail("detect", err)
	}
	result.Fingerprint = string(check.Fingerprint)

	if !check.Changed {
		o.deps.Metrics.IncrCounter("sources.unchanged")
		logger.Info("Source unchanged", logger.Fields{
			"url": sourceURL,
		})
		result.Status = StatusUnchanged
		return result, nil
	}

	adapter := o.deps.Selector.Select(sourceURL)
	result.Adapter = adapter.Name()

	raw, err := adapter.Extract(ctx, sess)
	if err != nil {
		return fail("extract", err)
	}
	o.deps.Metrics.AddCounter("records.extracted", int64(len(raw)))

	structured := o.deps.Structurer.StructureAll(ctx, raw)
	rows = project.Normalize(structured, sourceURL)

	if err := o.deps.Store.Put(ctx, sourceURL, check.Fingerprint); err != nil {
		// The rows are kept; the source is reprocessed next run.
		logger.Error("Saving fingerprint failed", logger.Fields{
			"url": sourceURL,
		}, err)
		result.Error = err.Error()
	}

	o.deps.Metrics.IncrCounter("sources.changed")
	logger.Info("Source changed", logger.Fields{
		"url":     sourceURL,
		"adapter": result.Adapter,
		"records": len(rows),
	})

	result.Status = StatusChanged
	result.Records = len(rows)
	return result, rows
}
