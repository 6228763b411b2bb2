package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the history log in a single JSON file. Every append
// rewrites the full document through a temp file in the same directory
// followed by a rename, so a concurrent LoadAll never observes a
// truncated file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given file. The file is
// created lazily on the first Append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadAll reads the full history log. A missing file yields an empty
// log; an unparseable file yields a CorruptError.
func (s *FileStore) LoadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Append reads the existing log, appends record, and atomically
// replaces the file with the new document.
func (s *FileStore) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling history: %w", err)
	}
	return s.writeLocked(data)
}

func (s *FileStore) loadLocked() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history log: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	return records, nil
}

// writeLocked replaces the log file contents atomically: write to a
// temp file in the target directory, fsync, then rename over the
// destination.
func (s *FileStore) writeLocked(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing history log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing history log: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting history log permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history log: %w", err)
	}
	return nil
}
