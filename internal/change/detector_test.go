package change

import (
	"context"
	"errors"
	"testing"

	"github.com/civicscan/civicscan/internal/browser"
	"github.com/civicscan/civicscan/internal/browser/browsertest"
	"github.com/civicscan/civicscan/internal/hashstore"
)

const listURL = "https://www.ci.richmond.ca.us/1404/Major-Projects"

func newStore(t *testing.T) *hashstore.FileStore {
	t.Helper()
	store, err := hashstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	return store
}

func TestCheck_FirstRunIsChanged(t *testing.T) {
	ctx := context.Background()
	site := &browsertest.Site{Pages: map[string]string{
		listURL: `<html><body><p>Library Expansion</p></body></html>`,
	}}
	d := NewDetector(newStore(t), 0)

	res, err := d.Check(ctx, browsertest.NewSession(site), listURL)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if !res.Changed {
		t.Error("expected changed=true when no fingerprint is stored")
	}
	if res.Fingerprint != hashstore.Compute("Library Expansion") {
		t.Errorf("fingerprint = %s, want hash of body text", res.Fingerprint)
	}
}

func TestCheck_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	site := &browsertest.Site{Pages: map[string]string{
		listURL: `<html><body><p>Library Expansion</p></body></html>`,
	}}
	d := NewDetector(store, 0)

	first, err := d.Check(ctx, browsertest.NewSession(site), listURL)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if err := store.Put(ctx, listURL, first.Fingerprint); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := d.Check(ctx, browsertest.NewSession(site), listURL)
		if err != nil {
			t.Fatalf("check %d error: %v", i, err)
		}
		if res.Changed {
			t.Errorf("check %d: expected changed=false for identical content", i)
		}
	}

	stored, _, _ := store.Get(ctx, listURL)
	if stored != first.Fingerprint {
		t.Errorf("stored fingerprint altered: %s != %s", stored, first.Fingerprint)
	}
}

func TestCheck_DetectsEdit(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if err := store.Put(ctx, listURL, hashstore.Compute("Library Expansion")); err != nil {
		t.Fatal(err)
	}

	site := &browsertest.Site{Pages: map[string]string{
		listURL: `<html><body><p>Library Expansions</p></body></html>`,
	}}
	res, err := NewDetector(store, 0).Check(ctx, browsertest.NewSession(site), listURL)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if !res.Changed {
		t.Error("expected changed=true after a one-character edit")
	}
	if res.Previous != hashstore.Compute("Library Expansion") {
		t.Errorf("Previous = %s", res.Previous)
	}
}

func TestCheck_Force(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if err := store.Put(ctx, listURL, hashstore.Compute("same")); err != nil {
		t.Fatal(err)
	}

	site := &browsertest.Site{Pages: map[string]string{listURL: `<body>same</body>`}}
	d := NewDetector(store, 0)
	d.Force = true

	res, err := d.Check(ctx, browsertest.NewSession(site), listURL)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !res.Changed {
		t.Error("expected forced check to report changed")
	}
}

func TestCheck_Timeout(t *testing.T) {
	site := &browsertest.Site{
		Pages: map[string]string{listURL: `<body>spinner</body>`},
		Hang:  map[string]bool{listURL: true},
	}

	_, err := NewDetector(newStore(t), 0).Check(context.Background(), browsertest.NewSession(site), listURL)
	if !errors.Is(err, browser.ErrTimeout) {
		t.Errorf("Check() error = %v, want ErrTimeout", err)
	}
}

func TestCheck_NavigationFailure(t *testing.T) {
	site := &browsertest.Site{Fail: map[string]error{listURL: errors.New("connection refused")}}

	if _, err := NewDetector(newStore(t), 0).Check(context.Background(), browsertest.NewSession(site), listURL); err == nil {
		t.Error("expected navigation error")
	}
}
