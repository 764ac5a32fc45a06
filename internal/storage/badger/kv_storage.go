package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage implements the KeyValueStorage interface for Badger. It backs the
// proxied-PDF cache: keys are case-insensitive, values are raw bytes.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeKey converts a key to lowercase for case-insensitive storage
func (s *KVStorage) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get retrieves a value by key (case-insensitive)
func (s *KVStorage) Get(ctx context.Context, key string) ([]byte, error) {
	normalizedKey := s.normalizeKey(key)
	var entry interfaces.CacheEntry
	err := s.db.Store().Get(normalizedKey, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return entry.Value, nil
}

// Set inserts or updates a cache entry (case-insensitive)
func (s *KVStorage) Set(ctx context.Context, key string, value []byte, sourceURL string) error {
	normalizedKey := s.normalizeKey(key)
	now := time.Now()

	entry := interfaces.CacheEntry{
		Key:       normalizedKey,
		Value:     value,
		SourceURL: sourceURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Preserve CreatedAt on overwrite
	var existing interfaces.CacheEntry
	if err := s.db.Store().Get(normalizedKey, &existing); err == nil {
		entry.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(normalizedKey, &entry); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	normalizedKey := s.normalizeKey(key)
	if err := s.db.Store().Delete(normalizedKey, &interfaces.CacheEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries last updated before cutoff and returns the
// number removed. Used by the maintenance sweep to bound cache growth.
func (s *KVStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []interfaces.CacheEntry
	if err := s.db.Store().Find(&stale, badgerhold.Where("UpdatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale entries: %w", err)
	}

	removed := 0
	for i := range stale {
		if err := s.db.Store().Delete(stale[i].Key, &interfaces.CacheEntry{}); err != nil {
			s.logger.Warn().Err(err).Str("key", stale[i].Key).Msg("Failed to delete stale cache entry")
			continue
		}
		removed++
	}
	return removed, nil
}
