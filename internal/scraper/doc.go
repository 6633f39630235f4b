// Package scraper extracts project records from municipal listing pages.
//
// Each supported site has an Adapter that knows its layout. Richmond and
// Eureka list projects as links that are opened one at a time in a separate
// tab; the generic adapter reads a plain HTML table from the listing page
// itself. A Selector picks the adapter for a URL by substring match and falls
// back to the table adapter. Markup is queried with goquery.
package scraper
