// Package storage persists vision analysis results so that repeat runs over
// the same photos do not pay for another model call.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trichling/Kleinanzeiger/internal/ad"
	_ "modernc.org/sqlite"
)

// VisionCache stores analysis results keyed by an image-set hash.
type VisionCache interface {
	// Get returns the cached result for the hash, or nil on a cache miss.
	Get(imageHash string) (*ad.ProductInfo, error)
	// Set stores a result for the hash, replacing any previous entry.
	Set(imageHash string, info *ad.ProductInfo) error
	Close() error
}

// SQLiteStore implements VisionCache using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and busy timeout, same settings as the other local sqlite uses
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		product_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}
	return nil
}

// Get implements VisionCache.
func (s *SQLiteStore) Get(imageHash string) (*ad.ProductInfo, error) {
	var productJSON string
	err := s.db.QueryRow(
		"SELECT product_json FROM vision_cache WHERE image_hash = ?", imageHash,
	).Scan(&productJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vision cache: %w", err)
	}

	var info ad.ProductInfo
	if err := json.Unmarshal([]byte(productJSON), &info); err != nil {
		return nil, fmt.Errorf("failed to decode cached product info: %w", err)
	}
	return &info, nil
}

// Set implements VisionCache.
func (s *SQLiteStore) Set(imageHash string, info *ad.ProductInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode product info: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO vision_cache (image_hash, product_json) VALUES (?, ?)",
		imageHash, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to write vision cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
