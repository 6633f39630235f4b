package hashstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	const url = "https://www.eurekaca.gov/744/Upcoming-Projects"

	t.Run("missing key is absent, not an error", func(t *testing.T) {
		fp, ok, err := store.Get(ctx, url)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if ok || fp != "" {
			t.Errorf("Get() = (%q, %v), want absent", fp, ok)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		want := Compute("page text")
		if err := store.Put(ctx, url, want); err != nil {
			t.Fatalf("Put() error: %v", err)
		}

		got, ok, err := store.Get(ctx, url)
		if err != nil || !ok {
			t.Fatalf("Get() = (%q, %v, %v)", got, ok, err)
		}
		if got != want {
			t.Errorf("Get() = %q, want %q", got, want)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		want := Compute("new page text")
		if err := store.Put(ctx, url, want); err != nil {
			t.Fatalf("Put() error: %v", err)
		}

		got, _, _ := store.Get(ctx, url)
		if got != want {
			t.Errorf("Get() = %q, want %q", got, want)
		}
	})

	t.Run("keys are per source", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "https://www.ci.richmond.ca.us/1404/Major-Projects")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if ok {
			t.Error("expected other source to be absent")
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
		if len(matches) != 0 {
			t.Errorf("found temp files: %v", matches)
		}
	})
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	const url = "https://example.gov/projects"
	if err := os.WriteFile(store.path(url), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Get(ctx, url); err == nil {
		t.Error("expected error for corrupt fingerprint file")
	}
}

func TestNewFileStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data directory not created: %v", err)
	}
}
