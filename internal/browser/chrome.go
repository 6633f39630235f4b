package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the Chrome launcher.
type ChromeOptions struct {
	Headless          bool
	ExecPath          string
	UserAgent         string
	NavigationTimeout time.Duration
}

// Chrome launches headless Chrome sessions through chromedp.
type Chrome struct {
	opts ChromeOptions
}

// NewChrome creates a launcher with the given options.
func NewChrome(opts ChromeOptions) *Chrome {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &Chrome{opts: opts}
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeSession is a Session backed by one Chrome process.
type ChromeSession struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabs        map[Handle]*tab
	next        Handle
	active      Handle
	navTimeout  time.Duration
}

// NewSession starts Chrome and opens the main tab.
func (c *Chrome) NewSession(ctx context.Context) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
	)
	if c.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
	}
	if c.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.opts.UserAgent))
	}

	// The browser outlives individual calls, so it is not tied to ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	mainCtx, mainCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it must not carry a deadline.
	if err := chromedp.Run(mainCtx); err != nil {
		mainCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &ChromeSession{
		allocCancel: allocCancel,
		tabs:        map[Handle]*tab{MainContext: {ctx: mainCtx, cancel: mainCancel}},
		next:        MainContext + 1,
		active:      MainContext,
		navTimeout:  c.opts.NavigationTimeout,
	}, nil
}

func (s *ChromeSession) activeTab() (*tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[s.active]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoContext, s.active)
	}
	return t, nil
}

// bounded derives a deadline-limited context from the tab context that is
// also cancelled when the caller's ctx is.
func bounded(ctx context.Context, t *tab, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(t.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func waitErr(err error, selector string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return err
}

// Navigate loads url in the active tab.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	t, err := s.activeTab()
	if err != nil {
		return err
	}

	tctx, cancel := bounded(ctx, t, s.navTimeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitForText waits for selector and returns its rendered inner text.
func (s *ChromeSession) WaitForText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	t, err := s.activeTab()
	if err != nil {
		return "", err
	}

	tctx, cancel := bounded(ctx, t, timeout)
	defer cancel()

	var text string
	err = chromedp.Run(tctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", waitErr(err, selector)
	}
	return text, nil
}

// FindAll waits for container and returns the item elements inside its
// first match.
func (s *ChromeSession) FindAll(ctx context.Context, container, item string, timeout time.Duration) ([]Element, error) {
	t, err := s.activeTab()
	if err != nil {
		return nil, err
	}

	tctx, cancel := bounded(ctx, t, timeout)
	defer cancel()

	expr := fmt.Sprintf(
		`Array.from(document.querySelector(%q).querySelectorAll(%q)).map(e => ({href: e.href || "", text: e.innerText || ""}))`,
		container, item,
	)

	var elements []Element
	err = chromedp.Run(tctx,
		chromedp.WaitReady(container, chromedp.ByQuery),
		chromedp.Evaluate(expr, &elements),
	)
	if err != nil {
		return nil, waitErr(err, container)
	}
	return elements, nil
}

// OpenInNewContext opens el's link in a new tab of the same browser.
func (s *ChromeSession) OpenInNewContext(ctx context.Context, el Element) (Handle, error) {
	if el.Href == "" {
		return 0, fmt.Errorf("element %q has no link target", el.Text)
	}

	s.mu.Lock()
	main, ok := s.tabs[MainContext]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: main", ErrNoContext)
	}

	tabCtx, tabCancel := chromedp.NewContext(main.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return 0, fmt.Errorf("opening tab: %w", err)
	}

	nt := &tab{ctx: tabCtx, cancel: tabCancel}
	tctx, cancel := bounded(ctx, nt, s.navTimeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Navigate(el.Href)); err != nil {
		tabCancel()
		return 0, fmt.Errorf("navigating to %s: %w", el.Href, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.next
	s.next++
	s.tabs[h] = nt
	return h, nil
}

// SwitchTo makes h the active tab.
func (s *ChromeSession) SwitchTo(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[h]; !ok {
		return fmt.Errorf("%w: %d", ErrNoContext, h)
	}
	s.active = h
	return nil
}

// CloseContext closes the active tab.
func (s *ChromeSession) CloseContext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == MainContext {
		return errors.New("cannot close the main context")
	}
	t, ok := s.tabs[s.active]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoContext, s.active)
	}
	t.cancel()
	delete(s.tabs, s.active)
	return nil
}

// PageSource returns the outer HTML of the active tab's document.
func (s *ChromeSession) PageSource(ctx context.Context) (string, error) {
	t, err := s.activeTab()
	if err != nil {
		return "", err
	}

	tctx, cancel := bounded(ctx, t, s.navTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page source: %w", err)
	}
	return html, nil
}

// Close closes every tab and shuts the browser down.
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tabs {
		if h != MainContext {
			t.cancel()
		}
	}
	if main, ok := s.tabs[MainContext]; ok {
		main.cancel()
	}
	s.tabs = map[Handle]*tab{}
	s.allocCancel()
	return nil
}
