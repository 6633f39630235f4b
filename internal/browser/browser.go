package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded wait for a page element expires.
var ErrTimeout = errors.New("timed out waiting for element")

// ErrNoContext is returned when switching to or closing a tab that is not open.
var ErrNoContext = errors.New("no such browsing context")

// Handle identifies an open tab within a Session.
type Handle int

// MainContext is the tab a session starts with.
const MainContext Handle = 0

// Element is a clickable entry point found on a page.
type Element struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Session is a live browser session. Methods act on the active tab.
type Session interface {
	// Navigate loads url in the active tab.
	Navigate(ctx context.Context, url string) error
	// WaitForText waits up to timeout for selector and returns its visible text.
	WaitForText(ctx context.Context, selector string, timeout time.Duration) (string, error)
	// FindAll waits up to timeout for container, then lists the item elements
	// inside the first element matching it.
	FindAll(ctx context.Context, container, item string, timeout time.Duration) ([]Element, error)
	// OpenInNewContext opens el in a new tab and returns its handle. The active tab is unchanged.
	OpenInNewContext(ctx context.Context, el Element) (Handle, error)
	// SwitchTo makes h the active tab.
	SwitchTo(h Handle) error
	// CloseContext closes the active tab. The main tab cannot be closed.
	CloseContext() error
	// PageSource returns the active tab's current markup.
	PageSource(ctx context.Context) (string, error)
	// Close ends the session and releases the browser.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
}
