package project

import "strings"

// NotAvailable is the sentinel written when a page lacks a field.
const NotAvailable = "N/A"

// RawRecord is one project as read from a source page.
type RawRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

// NewRawRecord trims each field and substitutes NotAvailable for empty values.
func NewRawRecord(title, description, status, date string) RawRecord {
	return RawRecord{
		Title:       OrNotAvailable(title),
		Description: OrNotAvailable(description),
		Status:      OrNotAvailable(status),
		Date:        OrNotAvailable(date),
	}
}

// OrNotAvailable returns the trimmed value, or NotAvailable when nothing is left.
func OrNotAvailable(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotAvailable
	}
	return s
}
