// Package browsertest provides an in-memory browser.Session for tests.
//
// Pages are served from a map of URL to HTML. Selectors are resolved with
// goquery against the active tab's markup, so adapters see the same documents
// they would get from a real browser's page source.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/civicscan/civicscan/internal/browser"
)

// Site is a set of pages keyed by URL, plus URLs that fail to load.
type Site struct {
	Pages map[string]string
	// Fail maps a URL to the error Navigate returns for it.
	Fail map[string]error
	// Hang lists URLs whose elements never appear: every wait times out.
	Hang map[string]bool
}

// Launcher hands out Sessions over a shared Site and counts them.
type Launcher struct {
	Site *Site
	// Err, if set, is returned by NewSession.
	Err error

	mu       sync.Mutex
	sessions []*Session
}

// NewSession returns a fresh Session over the launcher's Site.
func (l *Launcher) NewSession(_ context.Context) (browser.Session, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	s := NewSession(l.Site)
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// Sessions returns every session handed out so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Session is an in-memory browser.Session.
type Session struct {
	site   *Site
	tabs   map[browser.Handle]string
	next   browser.Handle
	active browser.Handle
	closed bool

	// Opened records every URL opened in a new context, in order.
	Opened []string
}

// NewSession creates a session with an empty main tab.
func NewSession(site *Site) *Session {
	return &Session{
		site:   site,
		tabs:   map[browser.Handle]string{browser.MainContext: ""},
		next:   browser.MainContext + 1,
		active: browser.MainContext,
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed
}

// OpenTabs returns the number of open tabs, including the main tab.
func (s *Session) OpenTabs() int {
	return len(s.tabs)
}

func (s *Session) load(url string) error {
	if err, ok := s.site.Fail[url]; ok {
		return err
	}
	if _, ok := s.site.Pages[url]; !ok {
		return fmt.Errorf("navigating to %s: page not found", url)
	}
	return nil
}

func (s *Session) document() (*goquery.Document, string, error) {
	url, ok := s.tabs[s.active]
	if !ok {
		return nil, "", fmt.Errorf("%w: %d", browser.ErrNoContext, s.active)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.site.Pages[url]))
	if err != nil {
		return nil, "", err
	}
	return doc, url, nil
}

func (s *Session) Navigate(_ context.Context, url string) error {
	if s.closed {
		return errors.New("session closed")
	}
	if err := s.load(url); err != nil {
		return err
	}
	s.tabs[s.active] = url
	return nil
}

func (s *Session) WaitForText(_ context.Context, selector string, _ time.Duration) (string, error) {
	doc, url, err := s.document()
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector).First()
	if s.site.Hang[url] || sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", browser.ErrTimeout, selector)
	}
	return sel.Text(), nil
}

func (s *Session) FindAll(_ context.Context, container, item string, _ time.Duration) ([]browser.Element, error) {
	doc, url, err := s.document()
	if err != nil {
		return nil, err
	}
	box := doc.Find(container).First()
	if s.site.Hang[url] || box.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrTimeout, container)
	}

	var elements []browser.Element
	box.Find(item).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		elements = append(elements, browser.Element{Href: href, Text: strings.TrimSpace(sel.Text())})
	})
	return elements, nil
}

func (s *Session) OpenInNewContext(_ context.Context, el browser.Element) (browser.Handle, error) {
	if el.Href == "" {
		return 0, fmt.Errorf("element %q has no link target", el.Text)
	}
	if err := s.load(el.Href); err != nil {
		return 0, err
	}
	h := s.next
	s.next++
	s.tabs[h] = el.Href
	s.Opened = append(s.Opened, el.Href)
	return h, nil
}

func (s *Session) SwitchTo(h browser.Handle) error {
	if _, ok := s.tabs[h]; !ok {
		return fmt.Errorf("%w: %d", browser.ErrNoContext, h)
	}
	s.active = h
	return nil
}

func (s *Session) CloseContext() error {
	if s.active == browser.MainContext {
		return errors.New("cannot close the main context")
	}
	if _, ok := s.tabs[s.active]; !ok {
		return fmt.Errorf("%w: %d", browser.ErrNoContext, s.active)
	}
	delete(s.tabs, s.active)
	return nil
}

func (s *Session) PageSource(_ context.Context) (string, error) {
	url, ok := s.tabs[s.active]
	if !ok {
		return "", fmt.Errorf("%w: %d", browser.ErrNoContext, s.active)
	}
	return s.site.Pages[url], nil
}

func (s *Session) Close() error {
	s.closed = true
	s.tabs = map[browser.Handle]string{}
	return nil
}
