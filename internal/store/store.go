// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pagelist/internal/logging"
)

// Key prefixes
const (
	prefixPage     = "p/"
	prefixBranch   = "f/b/"
	prefixRevision = "f/r/"
	prefixLink     = "l/"
	prefixRevLink  = "lr/"
	prefixIndex    = "oi/"

	sep = "\x00"
)

// Errors
var (
	// ErrClosed is returned when the store is closed.
	ErrClosed = fmt.Errorf("store is closed")

	// ErrNotFound is returned when a page does not exist.
	ErrNotFound = fmt.Errorf("page not found")

	// ErrInvalidPath is returned for paths containing a NUL byte.
	ErrInvalidPath = fmt.Errorf("invalid page path")
)

// Config holds BadgerDB settings for the page store.
type Config struct {
	Path         string
	SyncWrites   bool
	Compression  bool
	GCRatio      float64
	CloseTimeout time.Duration
}

// DefaultConfig returns production defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		SyncWrites:   true,
		Compression:  true,
		GCRatio:      0.5,
		CloseTimeout: 30 * time.Second,
	}
}

// Page is the stored page record.
type Page struct {
	Path     string `json:"path"`
	Title    string `json:"title,omitempty"`
	Created  int64  `json:"created"`
	Modified int64  `json:"modified"`
}

// Store is the page store.
type Store struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("sync_writes", cfg.SyncWrites).Msg("Page store opened")
	return &Store{db: db, config: cfg}, nil
}

// OpenInMemory opens a throwaway in-memory store.
// Intended for tests and dry runs.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}
	return &Store{db: db, config: Config{GCRatio: 0.5, CloseTimeout: 5 * time.Second}}, nil
}

// DB returns the underlying database.
func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close closes the database, giving up after the configured timeout.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Page store closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

// RunGC runs value log garbage collection until nothing is rewritten.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	ratio := s.config.GCRatio
	if ratio == 0 {
		ratio = 0.5
	}
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Health reports whether the store is usable.
func (s *Store) Health() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Size returns the LSM and value log sizes in bytes.
func (s *Store) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// CleanPath normalizes a site-relative path.
func CleanPath(path string) string {
	return strings.Trim(path, "/")
}

func validPath(path string) error {
	if strings.Contains(path, sep) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// PutPage creates or updates a page. Created is kept from the existing
// record; Modified is set to now unless provided.
func (s *Store) PutPage(_ context.Context, p Page) (Page, error) {
	if err := s.checkOpen(); err != nil {
		return Page{}, err
	}
	p.Path = CleanPath(p.Path)
	if err := validPath(p.Path); err != nil {
		return Page{}, err
	}
	now := time.Now().UnixMicro()
	if p.Modified == 0 {
		p.Modified = now
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing Page
		found, err := getJSON(txn, []byte(prefixPage+p.Path), &existing)
		if err != nil {
			return err
		}
		switch {
		case found && existing.Created != 0:
			p.Created = existing.Created
		case p.Created == 0:
			p.Created = p.Modified
		}
		return setJSON(txn, []byte(prefixPage+p.Path), &p)
	})
	if err != nil {
		return Page{}, err
	}
	return p, nil
}

// GetPage returns the page at path or ErrNotFound.
func (s *Store) GetPage(_ context.Context, path string) (Page, error) {
	if err := s.checkOpen(); err != nil {
		return Page{}, err
	}
	var p Page
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, []byte(prefixPage+CleanPath(path)), &p)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
	return p, err
}

// Exists reports whether a page exists.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.GetPage(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// AllPages returns every page path in key order.
func (s *Store) AllPages(ctx context.Context) ([]string, error) {
	return s.pagesUnder(ctx, "", false)
}

// Children returns the direct children of path.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	return s.pagesUnder(ctx, CleanPath(path), true)
}

// Descendants returns every page below path.
func (s *Store) Descendants(ctx context.Context, path string) ([]string, error) {
	return s.pagesUnder(ctx, CleanPath(path), false)
}

func (s *Store) pagesUnder(ctx context.Context, path string, direct bool) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	prefix := prefixPage
	if path != "" {
		prefix += path + "/"
	}

	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		return scanKeys(ctx, txn, []byte(prefix), func(key []byte) bool {
			rel := string(key[len(prefix):])
			if direct && strings.Contains(rel, "/") {
				return true
			}
			out = append(out, string(key[len(prefixPage):]))
			return true
		})
	})
	return out, err
}

// getJSON decodes the value at key into v. found is false when the key is
// missing.
func getJSON(txn *badger.Txn, key []byte, v interface{}) (found bool, err error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// scanKeys visits keys with prefix in order without fetching values.
// fn returns false to stop.
func scanKeys(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(key []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(it.Item().KeyCopy(nil)) {
			return nil
		}
	}
	return nil
}
