package finetune

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store writes finished datasets to disk, one JSONL file per company slug.
// Saving is atomic per file: a rewrite replaces the previous dataset.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Filename returns the dataset file name for a company slug.
func (s *Store) Filename(slug string) string {
	return fmt.Sprintf("company_%s.jsonl", slug)
}

// Path returns the absolute dataset path for a company slug.
func (s *Store) Path(slug string) string {
	return filepath.Join(s.dir, s.Filename(slug))
}

// Save persists dataset bytes for a slug and returns the written path.
func (s *Store) Save(slug string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create dataset dir: %w", err)
	}
	path := s.Path(slug)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write dataset: %w", err)
	}
	return path, nil
}

// Load reads a previously saved dataset.
func (s *Store) Load(slug string) ([]byte, error) {
	return os.ReadFile(s.Path(slug))
}
