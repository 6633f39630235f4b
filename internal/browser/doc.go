// Package browser provides the page-rendering capability used by the scraper.
//
// A Session is one browser with one or more open tabs ("contexts"). The main
// tab holds the listing page; site adapters open entry links in extra tabs,
// read their markup, close them and switch back. Chrome drives a headless
// Chrome through chromedp.
package browser
