// Package store implements the persistent key/value cache on sqlite.
package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"
)

var _ ports.Store = (*Store)(nil)

// entry is one row of the cache table: a byte-string key (the global header
// key or a target's output path) and the record's deterministic encoding.
type entry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

// TableName fixes the table name independent of gorm's pluralization.
func (entry) TableName() string { return "records" }

// Store implements ports.Store on a sqlite file under the output root.
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens (creating if needed) the store at path.
func Open(path string) (ports.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create store directory")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: glogger.Discard,
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open cache store"), "path", path)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to migrate cache store"), "path", path)
	}

	return &Store{db: db, path: path}, nil
}

// Get returns the value for key, or nil, nil when absent.
func (s *Store) Get(key string) ([]byte, error) {
	var e entry
	err := s.db.First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read cache record"), "key", key)
	}
	return e.Value, nil
}

// Put stores value under key, replacing any existing value.
func (s *Store) Put(key string, value []byte) error {
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry{Key: key, Value: value}).Error
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write cache record"), "key", key)
	}
	return nil
}

// Iterate calls fn for every entry in key order.
func (s *Store) Iterate(fn func(key string, value []byte) error) error {
	var entries []entry
	if err := s.db.Order("key").Find(&entries).Error; err != nil {
		return zerr.Wrap(err, "failed to scan cache store")
	}
	for _, e := range entries {
		if err := fn(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every entry. Invoked when the global header mismatches:
// options changes are assumed to affect every artifact.
func (s *Store) Clear() error {
	if err := s.db.Exec("DELETE FROM records").Error; err != nil {
		return zerr.Wrap(err, "failed to clear cache store")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return zerr.Wrap(err, "failed to resolve database handle")
	}
	return db.Close()
}
