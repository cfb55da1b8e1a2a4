package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a directory-backed record store. Each record is one JSON file
// plus an optional JPEG sidecar, both named by record id. The filesystem is
// the source of truth; the index is a derived cache that can always be
// rebuilt from these files.
type Store struct {
	Dir string
}

// DefaultDataDir returns the default data directory: ~/.recall
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// Open creates the storage directories if needed and returns a Store
// rooted at dir. Records live under dir/memories.
func Open(dir string) (*Store, error) {
	memDir := filepath.Join(dir, "memories")
	if err := os.MkdirAll(memDir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// MemoryDir returns the directory holding per-record files.
func (s *Store) MemoryDir() string {
	return filepath.Join(s.Dir, "memories")
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.MemoryDir(), id+".json")
}

func (s *Store) imagePath(id string) string {
	return filepath.Join(s.MemoryDir(), id+".jpg")
}

// SaveRecord writes the record metadata atomically. Saving an existing id
// replaces it, which is how a later capture in the same second wins.
func (s *Store) SaveRecord(rec *MemoryRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	if err := WriteAtomic(s.recordPath(rec.ID), data); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

// SaveImage writes the JPEG sidecar atomically and returns its path.
func (s *Store) SaveImage(id string, data []byte) (string, error) {
	path := s.imagePath(id)
	if err := WriteAtomic(path, data); err != nil {
		return "", fmt.Errorf("save image %s: %w", id, err)
	}
	return path, nil
}

// LoadRecord reads a record by id, loading image bytes when the sidecar
// exists. Returns (nil, nil) when the record is absent or malformed; a
// corrupt file degrades to "not found" rather than failing the caller.
func (s *Store) LoadRecord(id string) (*MemoryRecord, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}

	var rec MemoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("[store] skipping malformed record %s: %v", id, err)
		return nil, nil
	}
	if rec.ID == "" {
		rec.ID = id
	}

	if img, err := os.ReadFile(s.imagePath(id)); err == nil && len(img) > 0 {
		rec.ImageData = img
	}
	return &rec, nil
}

// ListIDs returns all record ids sorted ascending. Because ids embed the
// capture timestamp, ascending order is chronological.
func (s *Store) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.MemoryDir())
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "mem_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	ids, err := s.ListIDs()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteRecord removes the record file and its image sidecar. Missing
// files are not an error; orphans from a partial delete are cleaned up on
// the next pass.
func (s *Store) DeleteRecord(id string) error {
	var firstErr error
	for _, path := range []string{s.recordPath(id), s.imagePath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return firstErr
}
