package hashstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Fingerprint is the hex digest of a page's visible text. It is only ever
// compared for equality.
type Fingerprint string

// Compute returns the fingerprint of text.
func Compute(text string) Fingerprint {
	sum := sha256.Sum256([]byte(text))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Store persists the last fingerprint seen for each source URL.
//
// Get reports ok=false for a source that has never been stored; err is only
// set for backend failures.
type Store interface {
	Get(ctx context.Context, sourceURL string) (fp Fingerprint, ok bool, err error)
	Put(ctx context.Context, sourceURL string, fp Fingerprint) error
}

// Entry is the persisted form of a fingerprint.
type Entry struct {
	Key         string      `json:"key" bson:"_id"`
	SourceURL   string      `json:"source_url" bson:"source_url"`
	Fingerprint Fingerprint `json:"fingerprint" bson:"fingerprint"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

const maxKeyPrefix = 80

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key derives a filesystem- and key-value-safe token from a source URL.
//
// The readable prefix drops the scheme separator and replaces unsafe runs with
// "_"; a digest suffix keeps URLs that sanitize to the same prefix apart.
func Key(sourceURL string) string {
	prefix := sourceURL
	if i := strings.Index(prefix, "://"); i >= 0 {
		prefix = prefix[:i] + "_" + prefix[i+3:]
	}
	prefix = strings.Trim(unsafeKeyChars.ReplaceAllString(prefix, "_"), "_.")
	if len(prefix) > maxKeyPrefix {
		prefix = prefix[:maxKeyPrefix]
	}

	sum := sha256.Sum256([]byte(sourceURL))
	return prefix + "-" + hex.EncodeToString(sum[:6])
}
