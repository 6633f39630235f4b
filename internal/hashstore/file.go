package hashstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps one JSON file per source URL under a data directory.
type FileStore struct {
	dataDir string
	now     func() time.Time
}

// NewFileStore creates the data directory if needed. A leading "~/" is
// expanded to the user's home directory.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileStore{
		dataDir: dataDir,
		now:     time.Now,
	}, nil
}

func (s *FileStore) path(sourceURL string) string {
	return filepath.Join(s.dataDir, "hash_"+Key(sourceURL)+".json")
}

// Get loads the stored fingerprint for sourceURL.
func (s *FileStore) Get(_ context.Context, sourceURL string) (Fingerprint, bool, error) {
	data, err := os.ReadFile(s.path(sourceURL))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading fingerprint: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false, fmt.Errorf("parsing fingerprint file: %w", err)
	}
	if entry.Fingerprint == "" {
		return "", false, nil
	}

	return entry.Fingerprint, true, nil
}

// Put overwrites the stored fingerprint for sourceURL.
func (s *FileStore) Put(_ context.Context, sourceURL string, fp Fingerprint) error {
	entry := Entry{
		Key:         Key(sourceURL),
		SourceURL:   sourceURL,
		Fingerprint: fp,
		UpdatedAt:   s.now().UTC(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding fingerprint: %w", err)
	}

	path := s.path(sourceURL)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing fingerprint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing fingerprint: %w", err)
	}

	return nil
}
