package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/project"
)

// ErrNoTable is returned when the listing page has no project table.
var ErrNoTable = errors.New("project table not found")

// Column positions in the generic project table. They follow one known layout
// and are not inferred from headers.
const (
	titleColumn       = 0
	descriptionColumn = 1
	statusColumn      = 7
)

// TableAdapter reads projects straight from a table on the listing page.
type TableAdapter struct {
	tableSelector string
}

// NewTableAdapter reads the first table with class "table".
func NewTableAdapter() *TableAdapter {
	return &TableAdapter{tableSelector: "table.table"}
}

func (a *TableAdapter) Name() string {
	return "table"
}

// Extract parses the already-rendered listing page; it does not navigate.
func (a *TableAdapter) Extract(ctx context.Context, sess browser.Session) ([]project.RawRecord, error) {
	source, err := sess.PageSource(ctx)
	if err != nil {
		return nil, err
	}
	return a.parse(strings.NewReader(source))
}

func (a *TableAdapter) parse(r io.Reader) ([]project.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := doc.Find(a.tableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, a.tableSelector)
	}

	records := make([]project.RawRecord, 0)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}

		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		records = append(records, project.NewRawRecord(
			cellText(cells, titleColumn),
			cellText(cells, descriptionColumn),
			cellText(cells, statusColumn),
			"",
		))
	})

	return records, nil
}

// cellText returns the trimmed text of cell i, or "" when the row is shorter.
func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}
