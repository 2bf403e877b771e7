package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MemoryStore keeps values for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// NewMemoryStoreFromDir seeds the store from <base>/<key>.json for the
// ledger keys. Missing or empty files are skipped.
func NewMemoryStoreFromDir(base string) *MemoryStore {
	s := NewMemoryStore()
	for _, key := range []string{TransactionsKey, TemplatesKey} {
		path := filepath.Join(base, key+".json")
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("Cannot read seed file", "path", path, "error", err)
			}
			continue
		}
		if v := strings.TrimSpace(string(b)); v != "" {
			s.values[key] = v
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
