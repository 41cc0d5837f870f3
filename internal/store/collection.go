// Package store persists whole record collections as JSON files. Every
// collection is read and rewritten in full; a per-collection mutex makes
// read-modify-write sequences atomic for in-process callers.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Collection is a flat-file record collection.
type Collection[T any] struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewCollection creates a collection backed by the JSON file at path.
func NewCollection[T any](log *slog.Logger, path string) *Collection[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Collection[T]{
		path:   path,
		logger: log.With(slog.String("service", "store"), slog.String("file", filepath.Base(path))),
	}
}

// Load returns every record. Any read or decode failure yields an empty
// slice so callers always operate on a usable collection.
func (c *Collection[T]) Load() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Collection[T]) loadLocked() []T {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("load collection", slog.String("error", err.Error()))
		}
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.logger.Warn("decode collection", slog.String("error", err.Error()))
		return []T{}
	}
	return items
}

// Save rewrites the whole collection.
func (c *Collection[T]) Save(items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(items)
}

func (c *Collection[T]) saveLocked(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write-then-rename keeps the file whole if the process dies mid-write.
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace collection: %w", err)
	}
	return nil
}

// Update applies fn to the collection under the lock and persists the
// result. fn may return an error to abort without writing.
func (c *Collection[T]) Update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := fn(c.loadLocked())
	if err != nil {
		return err
	}
	return c.saveLocked(items)
}
