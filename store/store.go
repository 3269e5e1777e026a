// Package store caches compiled images in SQLite, keyed by the content hash
// of their command sequence.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/bfi/image"
)

// ErrNotFound indicates the requested image is not cached.
var ErrNotFound = errors.New("store: image not found")

// Store is a compile cache backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache at path. Missing parent directories are
// created.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	// Several bfi processes may share one cache.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash      TEXT NOT NULL,
		optimized INTEGER NOT NULL,
		data      BLOB NOT NULL,
		PRIMARY KEY (hash, optimized)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores img, replacing any entry with the same hash and form.
func (s *Store) Put(img *image.Image) error {
	data, err := image.Marshal(img)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (hash, optimized, data) VALUES (?, ?, ?)",
		img.HashString(), boolToInt(img.Optimized), data,
	)
	if err != nil {
		return fmt.Errorf("store: saving image: %w", err)
	}
	commonlog.GetLogger("bfi.store").Debugf("cached %s (optimized=%v, %d bytes)", img.HashString(), img.Optimized, len(data))
	return nil
}

// Get returns the cached image for hash in the requested form.
func (s *Store) Get(hash string, optimized bool) (*image.Image, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM images WHERE hash = ? AND optimized = ?",
		hash, boolToInt(optimized),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: querying image: %w", err)
	}
	return image.Unmarshal(data)
}

// Len returns the number of cached images.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting images: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
