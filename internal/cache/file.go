package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"FactorPulse/internal/model"
)

// File keeps the latest snapshot in a JSON file so a single instance can
// restart without Redis and still serve its last fetch.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file cache at path, creating its directory.
func NewFile(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &File{path: path}, nil
}

// Get reads the snapshot file. A missing file is a miss.
func (f *File) Get(_ context.Context) (*model.FactorSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap model.FactorSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot file: %w", err)
	}
	return &snap, true, nil
}

// Set replaces the snapshot file atomically.
func (f *File) Set(_ context.Context, snap *model.FactorSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Close() error { return nil }
