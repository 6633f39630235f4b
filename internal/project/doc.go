// Package project defines the project records that flow through a scrape run.
//
// A RawRecord is what a site adapter reads off a listing page. After the
// description is restructured it is normalized into a CanonicalRecord, the
// fixed 19-column row shared with the other municipal-data pipelines.
package project
