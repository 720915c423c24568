package peers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sauerbraten/jsonfile"
)

// Store persists table entries. Keys are host addresses, values the
// verifier hashes as text.
type Store interface {
	Load() (map[string]string, error)
	Save(entries map[string]string) error
}

// MemoryStore keeps the last saved entries in memory. It is mainly useful
// in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
	saves   int
}

// NewMemoryStore creates a store pre-loaded with entries.
func NewMemoryStore(entries map[string]string) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Load returns a copy of the stored entries.
func (s *MemoryStore) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored entries.
func (s *MemoryStore) Save(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string, len(entries))
	for k, v := range entries {
		s.entries[k] = v
	}
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FileStore keeps entries in a JSON object on disk. Files may contain
// // line comments.
type FileStore struct {
	Path string
}

// Load reads the file. A missing file yields an empty table.
func (s FileStore) Load() (map[string]string, error) {
	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if err := jsonfile.ParseFile(s.Path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save writes the file atomically through a temporary file in the same
// directory.
func (s FileStore) Save(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "\t")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".peers-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}
