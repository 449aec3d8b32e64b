package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileCache keeps sent items in a JSON file. Records are loaded on open and
// written back on Save and Close.
type FileCache struct {
	filePath string
	ttl      time.Duration
	items    map[string]SentRecord
	mu       sync.RWMutex
	now      func() time.Time
}

var _ SentStore = (*FileCache)(nil)

// NewFileCache creates an empty cache bound to filePath.
func NewFileCache(filePath string, ttlHours int) *FileCache {
	return &FileCache{
		filePath: filePath,
		ttl:      time.Duration(ttlHours) * time.Hour,
		items:    make(map[string]SentRecord),
		now:      time.Now,
	}
}

// OpenFileCache creates the cache and loads the existing file.
func OpenFileCache(filePath string, ttlHours int) (*FileCache, error) {
	fc := NewFileCache(filePath, ttlHours)
	if err := fc.Load(); err != nil {
		return nil, err
	}
	return fc, nil
}

// Load reads the file, dropping expired records. A missing or empty file is
// an empty cache.
func (fc *FileCache) Load() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	data, err := os.ReadFile(fc.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []SentRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	cutoff := fc.cutoff()
	for _, item := range items {
		if item.URL != "" && item.SentAt.After(cutoff) {
			fc.items[item.URL] = item
		}
	}
	return nil
}

// Save writes the cache atomically through a temp file.
func (fc *FileCache) Save() error {
	fc.mu.RLock()
	items := fc.sortedLocked()
	fc.mu.RUnlock()

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmp := fc.filePath + ".tmp"
	if dir := filepath.Dir(fc.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, fc.filePath); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (fc *FileCache) IsSent(_ context.Context, url string) (bool, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	item, exists := fc.items[url]
	if !exists {
		return false, nil
	}
	return item.SentAt.After(fc.cutoff()), nil
}

func (fc *FileCache) MarkAsSent(_ context.Context, rec SentRecord) error {
	if rec.URL == "" {
		return fmt.Errorf("mark as sent: empty url")
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = fc.now()
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.items[rec.URL] = rec
	return nil
}

// Cleanup removes expired items from memory.
func (fc *FileCache) Cleanup(_ context.Context) (int64, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	cutoff := fc.cutoff()
	var removed int64
	for key, item := range fc.items {
		if !item.SentAt.After(cutoff) {
			delete(fc.items, key)
			removed++
		}
	}
	return removed, nil
}

func (fc *FileCache) Stats(_ context.Context) (map[string]int, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	stats := map[string]int{"total_items": len(fc.items)}
	cutoff := fc.cutoff()
	active := 0
	for _, item := range fc.items {
		if item.SentAt.After(cutoff) {
			active++
			if item.Country != "" {
				stats["country_"+item.Country]++
			}
		}
	}
	stats["active_items"] = active
	return stats, nil
}

func (fc *FileCache) Recent(_ context.Context, limit int) ([]SentRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	fc.mu.RLock()
	items := fc.sortedLocked()
	fc.mu.RUnlock()

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (fc *FileCache) Close() error {
	return fc.Save()
}

// sortedLocked returns the records newest first.
func (fc *FileCache) sortedLocked() []SentRecord {
	items := make([]SentRecord, 0, len(fc.items))
	for _, item := range fc.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SentAt.Equal(items[j].SentAt) {
			return items[i].URL < items[j].URL
		}
		return items[i].SentAt.After(items[j].SentAt)
	})
	return items
}

func (fc *FileCache) cutoff() time.Time {
	return fc.now().Add(-fc.ttl)
}
