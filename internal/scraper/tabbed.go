package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/logger"
	"github.com/civicscan/civicscan/internal/project"
)

// contentSelector is the rich-text container both CivicPlus sites use for
// project bodies.
const contentSelector = "div.fr-view"

// TabbedAdapter scrapes sites whose listing links open one project page each.
// Every entry is opened in its own tab, read, and closed before the next.
type TabbedAdapter struct {
	name      string
	container string
	entry     string
	titleTag  string
	opts      Options
}

// NewRichmondAdapter reads the Richmond major-projects page: hyperlinks inside
// the rich-text block, with the project title in the first h1.
func NewRichmondAdapter(opts Options) *TabbedAdapter {
	return &TabbedAdapter{
		name:      "richmond",
		container: ".fr-view",
		entry:     ".Hyperlink",
		titleTag:  "h1",
		opts:      opts,
	}
}

// NewEurekaAdapter reads the Eureka upcoming-projects page: tab buttons inside
// the tab panel, with the project title in the first h2.
func NewEurekaAdapter(opts Options) *TabbedAdapter {
	return &TabbedAdapter{
		name:      "eureka",
		container: ".cpTabPanels",
		entry:     ".tabButton",
		titleTag:  "h2",
		opts:      opts,
	}
}

func (a *TabbedAdapter) Name() string {
	return a.name
}

// Extract visits every entry point in listing order. A failure to open or read
// an entry aborts the source so it is retried on the next run.
func (a *TabbedAdapter) Extract(ctx context.Context, sess browser.Session) ([]project.RawRecord, error) {
	entries, err := sess.FindAll(ctx, a.container, a.entry, a.opts.WaitTimeout)
	if err != nil {
		return nil, fmt.Errorf("finding %s entries: %w", a.name, err)
	}

	records := make([]project.RawRecord, 0, len(entries))
	for i, el := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := a.visit(ctx, sess, el)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, el.Href, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func (a *TabbedAdapter) visit(ctx context.Context, sess browser.Session, el browser.Element) (rec project.RawRecord, err error) {
	h, err := sess.OpenInNewContext(ctx, el)
	if err != nil {
		return rec, err
	}
	a.opts.settle(a.opts.SettleDelay)

	// Whatever happens, close the entry tab and return to the listing.
	defer func() {
		if cerr := sess.SwitchTo(h); cerr == nil {
			cerr = sess.CloseContext()
			if cerr != nil && err == nil {
				err = fmt.Errorf("closing tab: %w", cerr)
			}
		}
		if serr := sess.SwitchTo(browser.MainContext); serr != nil && err == nil {
			err = fmt.Errorf("returning to listing: %w", serr)
		}
		a.opts.settle(a.opts.ReturnDelay)
	}()

	if err := sess.SwitchTo(h); err != nil {
		return rec, err
	}
	a.opts.settle(a.opts.SettleDelay)

	source, err := sess.PageSource(ctx)
	if err != nil {
		return rec, err
	}

	return a.parseDetail(source, el.Href)
}

func (a *TabbedAdapter) parseDetail(source, pageURL string) (project.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return project.RawRecord{}, fmt.Errorf("parsing HTML: %w", err)
	}

	title := firstText(doc.Selection, a.titleTag)
	if title == "" {
		logger.Debug("Project heading missing", logger.Fields{"adapter": a.name, "page": pageURL, "tag": a.titleTag})
	}

	description := firstText(doc.Find(contentSelector).First(), "p")
	if description == "" {
		logger.Debug("Project description missing", logger.Fields{"adapter": a.name, "page": pageURL})
	}

	// Neither site publishes status or date on project pages.
	return project.NewRawRecord(title, description, "", ""), nil
}

// firstText returns the trimmed text of the first match of selector within sel.
func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
