package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/project"
)

// Adapter extracts raw project records from a rendered listing page.
type Adapter interface {
	Name() string
	Extract(ctx context.Context, sess browser.Session) ([]project.RawRecord, error)
}

// Options holds the timing used by adapters that navigate between tabs.
type Options struct {
	// WaitTimeout bounds waits for listing containers.
	WaitTimeout time.Duration
	// SettleDelay is slept after opening a tab and after switching to it.
	SettleDelay time.Duration
	// ReturnDelay is slept after switching back to the listing tab.
	ReturnDelay time.Duration
	// Sleep replaces time.Sleep, mainly for tests.
	Sleep func(time.Duration)
}

// DefaultOptions mirrors the delays the listing sites need to render.
func DefaultOptions() Options {
	return Options{
		WaitTimeout: 10 * time.Second,
		SettleDelay: 2 * time.Second,
		ReturnDelay: 1 * time.Second,
	}
}

func (o Options) settle(d time.Duration) {
	if d <= 0 {
		return
	}
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Route maps a URL substring to an adapter.
type Route struct {
	Pattern string
	Adapter Adapter
}

// Selector picks an Adapter for a source URL. Routes are tried in order and
// the first pattern contained in the URL wins.
type Selector struct {
	routes   []Route
	fallback Adapter
}

// NewSelector returns a selector with the built-in routes after any extra
// routes, and the table adapter as fallback.
func NewSelector(opts Options, extra ...Route) *Selector {
	s := &Selector{fallback: NewTableAdapter()}
	for _, r := range extra {
		s.Register(r.Pattern, r.Adapter)
	}
	s.Register("richmond", NewRichmondAdapter(opts))
	s.Register("eurekaca", NewEurekaAdapter(opts))
	return s
}

// Register adds a route checked after the existing ones.
func (s *Selector) Register(pattern string, a Adapter) {
	s.routes = append(s.routes, Route{Pattern: strings.ToLower(pattern), Adapter: a})
}

// Select returns the adapter for sourceURL.
func (s *Selector) Select(sourceURL string) Adapter {
	u := strings.ToLower(sourceURL)
	for _, r := range s.routes {
		if r.Pattern != "" && strings.Contains(u, r.Pattern) {
			return r.Adapter
		}
	}
	return s.fallback
}

// ByName builds a built-in adapter from its name: richmond, eureka or table.
func ByName(name string, opts Options) (Adapter, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "richmond":
		return NewRichmondAdapter(opts), true
	case "eureka":
		return NewEurekaAdapter(opts), true
	case "table", "generic":
		return NewTableAdapter(), true
	default:
		return nil, false
	}
}
