// Package hashstore persists one content fingerprint per source URL between runs.
//
// Fingerprints are lowercase hex SHA-256 digests of a page's visible text. The
// file backend keeps one small JSON file per source in the data directory
// (default ~/.local/share/civicscan/); the Mongo backend keeps one document per
// source in a collection. Both key entries by Key(sourceURL).
package hashstore
