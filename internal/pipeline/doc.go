// Package pipeline drives one civicscan run.
//
// For every configured source URL, in order, the Orchestrator opens a
// browser session, asks the change detector whether the listing page moved,
// and for changed pages runs the matching site adapter, structures the
// descriptions and normalizes the records into canonical rows. The new
// fingerprint is persisted only after a source has been fully processed, so a
// failed source is retried on the next run.
//
// Failures are isolated per source: they are logged, counted and recorded in
// the Report, and the run moves on. The accumulated rows are handed to the
// sink once, at the end, in source order.
package pipeline
