package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps the watchlist in a JSON file. Writes go to a temp file that
// is renamed over the original.
type JSONStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewJSONStore creates a store at path, creating its directory. The file
// itself is created on first write.
func NewJSONStore(path string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("watchlist: create directory: %w", err)
	}
	return &JSONStore{path: path, logger: logger.With("component", "watchlist.json")}, nil
}

// read loads the list. A missing or unreadable file is an empty list.
func (s *JSONStore) read() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("read watchlist", "error", err)
		}
		return []Entry{}
	}

	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("corrupt watchlist file, starting empty", "path", s.path, "error", err)
		return []Entry{}
	}
	if list == nil {
		list = []Entry{}
	}
	return list
}

func (s *JSONStore) write(list []Entry) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("watchlist: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("watchlist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("watchlist: rename temp file: %w", err)
	}
	return nil
}

func (s *JSONStore) Get(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

func (s *JSONStore) Add(ctx context.Context, e Entry) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, added := prepend(s.read(), e)
	if !added {
		return list, nil
	}
	if err := s.write(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *JSONStore) Remove(ctx context.Context, bookID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := without(s.read(), bookID)
	if err := s.write(list); err != nil {
		return nil, err
	}
	return list, nil
}

// Clear deletes the file.
func (s *JSONStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("watchlist: clear: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

var _ Store = (*JSONStore)(nil)
