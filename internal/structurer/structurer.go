// Package structurer rewrites free-text project descriptions into a more
// structured form using a text-generation service.
//
// Structuring is best-effort: any failure (missing credential, transport
// error, quota, empty reply) leaves the original text in place and is logged.
// Calls are never retried.
package structurer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/civicscan/civicscan/internal/logger"
	"github.com/civicscan/civicscan/internal/project"
)

// Instruction prefixes every prompt.
const Instruction = "Extract project details from the following text"

// DefaultMaxTokens bounds the length of generated text.
const DefaultMaxTokens = 150

var (
	// ErrNoCredential is returned by generators that have no API key.
	ErrNoCredential = errors.New("text generation credential not configured")
	// ErrEmptyResponse is returned when the service replies without text.
	ErrEmptyResponse = errors.New("text generation returned no content")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Options configures a Structurer.
type Options struct {
	MaxTokens int
	// RequestsPerSecond paces calls to the service; zero disables pacing.
	RequestsPerSecond float64
}

// Structurer applies a Generator to descriptions with fallback to the input.
type Structurer struct {
	gen       Generator
	maxTokens int
	limiter   *rate.Limiter
	metrics   *logger.Metrics
}

// New creates a Structurer. A nil gen disables structuring: text passes
// through untouched and nothing is logged.
func New(gen Generator, opts Options) *Structurer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	s := &Structurer{
		gen:       gen,
		maxTokens: opts.MaxTokens,
		metrics:   logger.DefaultMetrics(),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s
}

// WithMetrics directs fallback counters to m.
func (s *Structurer) WithMetrics(m *logger.Metrics) *Structurer {
	s.metrics = m
	return s
}

// Prompt builds the request text for raw.
func Prompt(raw string) string {
	return fmt.Sprintf("%s: %s", Instruction, raw)
}

// Structure returns the restructured form of raw, or raw itself if the
// service cannot provide one.
func (s *Structurer) Structure(ctx context.Context, raw string) string {
	if s.gen == nil || strings.TrimSpace(raw) == "" || raw == project.NotAvailable {
		return raw
	}

	out, err := s.generate(ctx, raw)
	if err != nil {
		s.metrics.IncrCounter("structurer.fallback")
		logger.Warn("Structuring failed, keeping original description", logger.Fields{
			"chars":  len(raw),
			"reason": err.Error(),
		})
		return raw
	}

	s.metrics.IncrCounter("structurer.ok")
	return out
}

func (s *Structurer) generate(ctx context.Context, raw string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	out, err := s.gen.Generate(ctx, Prompt(raw), s.maxTokens)
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// StructureAll returns copies of records with each description structured.
// Title, status and date are passed through unchanged.
func (s *Structurer) StructureAll(ctx context.Context, records []project.RawRecord) []project.RawRecord {
	out := make([]project.RawRecord, len(records))
	for i, rec := range records {
		rec.Description = s.Structure(ctx, rec.Description)
		out[i] = rec
	}
	return out
}
