// Package change decides whether a source page changed since the last run.
package change

import (
	"context"
	"fmt"
	"time"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/hashstore"
)

// RootSelector is the element whose visible text is fingerprinted.
const RootSelector = "body"

// DefaultWaitTimeout bounds the wait for RootSelector.
const DefaultWaitTimeout = 10 * time.Second

// Result is the outcome of one check.
type Result struct {
	Changed     bool
	Fingerprint hashstore.Fingerprint
	Previous    hashstore.Fingerprint
}

// Detector fingerprints rendered pages and compares them with a Store.
// It never writes to the store; callers persist Result.Fingerprint once the
// source has been processed successfully.
type Detector struct {
	store       hashstore.Store
	waitTimeout time.Duration
	// Force reports every page as changed while still computing fingerprints.
	Force bool
}

// NewDetector creates a detector backed by store.
func NewDetector(store hashstore.Store, waitTimeout time.Duration) *Detector {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Detector{
		store:       store,
		waitTimeout: waitTimeout,
	}
}

// Check renders sourceURL in sess and compares its text fingerprint with the
// stored one. A wait timeout is returned wrapped around browser.ErrTimeout.
func (d *Detector) Check(ctx context.Context, sess browser.Session, sourceURL string) (Result, error) {
	if err := sess.Navigate(ctx, sourceURL); err != nil {
		return Result{}, err
	}

	text, err := sess.WaitForText(ctx, RootSelector, d.waitTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("waiting for page content: %w", err)
	}

	current := hashstore.Compute(text)

	previous, ok, err := d.store.Get(ctx, sourceURL)
	if err != nil {
		return Result{}, fmt.Errorf("loading previous fingerprint: %w", err)
	}

	return Result{
		Changed:     d.Force || !ok || previous != current,
		Fingerprint: current,
		Previous:    previous,
	}, nil
}
