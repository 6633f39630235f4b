package scraper

import (
	"context"
	"testing"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/project"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Extract(context.Context, browser.Session) ([]project.RawRecord, error) {
	return nil, nil
}

func TestSelector_Select(t *testing.T) {
	sel := NewSelector(DefaultOptions())

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.ci.richmond.ca.us/1404/Major-Projects", "richmond"},
		{"https://www.eurekaca.gov/744/Upcoming-Projects", "eureka"},
		{"https://www.cityofsanrafael.org/major-planning-projects-2/", "table"},
		{"https://WWW.CI.RICHMOND.CA.US/1404", "richmond"},
		{"", "table"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := sel.Select(tt.url).Name(); got != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestSelector_ExtraRoutesTakePrecedence(t *testing.T) {
	sel := NewSelector(DefaultOptions(), Route{Pattern: "richmond.ca.us/9999", Adapter: stubAdapter{"custom"}})

	if got := sel.Select("https://www.ci.richmond.ca.us/9999/Other").Name(); got != "custom" {
		t.Errorf("Select() = %s, want custom", got)
	}
	if got := sel.Select("https://www.ci.richmond.ca.us/1404/Major-Projects").Name(); got != "richmond" {
		t.Errorf("Select() = %s, want richmond", got)
	}
}

func TestSelector_Register(t *testing.T) {
	sel := NewSelector(DefaultOptions())
	sel.Register("sanrafael", stubAdapter{"sanrafael"})

	if got := sel.Select("https://www.cityofsanrafael.org/x").Name(); got != "sanrafael" {
		t.Errorf("Select() = %s, want sanrafael", got)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"richmond", "eureka", "table", "Generic"} {
		if _, ok := ByName(name, DefaultOptions()); !ok {
			t.Errorf("ByName(%q) not found", name)
		}
	}
	if _, ok := ByName("unknown", DefaultOptions()); ok {
		t.Error("ByName(unknown) should fail")
	}
}
