// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/tomtom215/pagelist/internal/logging"
)

// HoursPerDay is the number of journal files in rotation.
const HoursPerDay = 24

// ErrStopDrain may be returned by a DrainFunc to end the cycle early without
// consuming the current entry. Drain then returns a nil error.
var ErrStopDrain = errors.New("journal: stop drain")

// DrainFunc relays one record. Returning nil tombstones the record.
type DrainFunc func(ctx context.Context, rec Record) error

// Config holds journal settings.
type Config struct {
	// Dir is the directory holding the journal files.
	Dir string

	// FileMode is applied to journal files after every append. Zero skips chmod.
	FileMode os.FileMode

	// UID and GID are applied with chown after every append when UID >= 0.
	UID int
	GID int
}

// DefaultConfig returns defaults for dir.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, FileMode: 0o644, UID: -1, GID: -1}
}

// DrainStats summarizes one drain cycle.
type DrainStats struct {
	Relayed      int
	Malformed    int
	FilesRemoved int
	Stopped      bool
}

// HourStatus describes one hour file.
type HourStatus struct {
	Hour    int
	Path    string
	Size    int64
	Pending int
	ModTime time.Time
}

// Store is the hour-partitioned journal. It is safe for concurrent use by
// multiple goroutines and multiple processes sharing Dir.
type Store struct {
	cfg Config
	now func() time.Time
}

// Open prepares the journal directory.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("journal directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &Store{cfg: cfg, now: time.Now}, nil
}

// SetClock replaces the wall clock. Used by tests to pin the hot hours.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Dir returns the journal directory.
func (s *Store) Dir() string {
	return s.cfg.Dir
}

// Path returns the file path for an hour of day.
func (s *Store) Path(hour int) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("journal-%02d.msg", hour))
}

// Append records a page change. Failures are logged and never returned:
// callers are page writes that must not fail because of the journal.
func (s *Store) Append(ctx context.Context, e Entry) {
	if err := s.AppendStrict(ctx, e); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("uri", e.URI).Msg("Failed to append journal entry")
	}
}

// AppendStrict records a page change and reports failures.
func (s *Store) AppendStrict(_ context.Context, e Entry) error {
	if e.URI == "" {
		journalAppendsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: empty uri", ErrMalformedEntry)
	}

	path := s.Path(s.now().Hour())
	if err := s.appendLocked(path, e.MarshalLine()); err != nil {
		journalAppendsTotal.WithLabelValues("error").Inc()
		return err
	}

	if s.cfg.FileMode != 0 {
		if err := os.Chmod(path, s.cfg.FileMode); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Failed to chmod journal file")
		}
	}
	if s.cfg.UID >= 0 {
		if err := os.Chown(path, s.cfg.UID, s.cfg.GID); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Failed to chown journal file")
		}
	}

	journalAppendsTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Store) appendLocked(path string, line []byte) error {
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock journal %s: %w", path, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Failed to unlock journal file")
		}
	}()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644) //nolint:gosec // journal files are shared with other local writers
	if err != nil {
		return fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek journal %s: %w", path, err)
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write journal %s: %w", path, err)
	}
	return nil
}

// lockedSize returns the file size observed under the lock.
func (s *Store) lockedSize(path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock journal %s: %w", path, err)
	}
	defer lock.Unlock() //nolint:errcheck // unlock closes the descriptor

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Tombstone overwrites the record's span with newline bytes.
func (s *Store) Tombstone(rec Record) error {
	f, err := os.OpenFile(s.Path(rec.Hour), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open journal for tombstone: %w", err)
	}
	defer f.Close()
	return tombstone(f, rec)
}

func tombstone(f *os.File, rec Record) error {
	if _, err := f.WriteAt(bytes.Repeat([]byte{'\n'}, rec.Length), rec.Offset); err != nil {
		return fmt.Errorf("tombstone %s@%d: %w", f.Name(), rec.Offset, err)
	}
	journalTombstonesTotal.Inc()
	return nil
}

// hotHours reports whether hour may still be receiving appends.
func hotHours(current int) (prev, cur int) {
	return (current + HoursPerDay - 1) % HoursPerDay, current
}

// Drain visits every hour file once, oldest first: starting from the hour
// after the current one and ending with the current hour. fn is called for
// each live entry; a nil return tombstones it. Malformed lines are tombstoned
// and counted. A fully consumed file is unlinked unless its hour is hot.
//
// ErrStopDrain from fn ends the cycle and Drain returns nil. Any other error
// from fn ends the cycle and is returned. The current entry is left intact in
// both cases.
func (s *Store) Drain(ctx context.Context, fn DrainFunc) (DrainStats, error) {
	var stats DrainStats
	current := s.now().Hour()
	prev, cur := hotHours(current)

	for i := 1; i <= HoursPerDay; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		hour := (current + i) % HoursPerDay

		consumed, size, err := s.drainHour(ctx, hour, fn, &stats)
		if err != nil {
			if errors.Is(err, ErrStopDrain) {
				stats.Stopped = true
				return stats, nil
			}
			return stats, err
		}
		if consumed && hour != prev && hour != cur {
			s.removeIfUnchanged(hour, size, &stats)
		}
	}
	return stats, nil
}

// drainHour processes one file. consumed is true when no live entry remains in
// the snapshot of the returned size.
func (s *Store) drainHour(ctx context.Context, hour int, fn DrainFunc, stats *DrainStats) (consumed bool, size int64, err error) {
	path := s.Path(hour)
	size, err = s.lockedSize(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("stat journal %s: %w", path, err)
	}
	if size == 0 {
		return true, 0, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, size, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return false, size, fmt.Errorf("read journal %s: %w", path, err)
	}

	consumed = true
	err = scan(buf, hour, func(rec Record, perr error) error {
		if perr != nil {
			logging.Ctx(ctx).Warn().Err(perr).Str("path", path).Int64("offset", rec.Offset).
				Msg("Discarding malformed journal line")
			if terr := tombstone(f, rec); terr != nil {
				consumed = false
				return nil
			}
			journalMalformedTotal.Inc()
			stats.Malformed++
			return nil
		}

		if ferr := fn(ctx, rec); ferr != nil {
			consumed = false
			return ferr
		}
		if terr := tombstone(f, rec); terr != nil {
			logging.Ctx(ctx).Error().Err(terr).Str("uri", rec.URI).Msg("Failed to tombstone relayed entry")
			consumed = false
			return nil
		}
		stats.Relayed++
		return nil
	}, func() { consumed = false })
	return consumed, size, err
}

// scan walks buf line by line, skipping tombstones. A trailing line without a
// newline is an append in progress: partial is called and the scan stops.
func scan(buf []byte, hour int, visit func(Record, error) error, partial func()) error {
	pos := 0
	for pos < len(buf) {
		if buf[pos] == '\n' {
			pos++
			continue
		}
		nl := bytes.IndexByte(buf[pos:], '\n')
		if nl < 0 {
			if partial != nil {
				partial()
			}
			return nil
		}
		rec := Record{Hour: hour, Offset: int64(pos), Length: nl + 1}
		e, perr := ParseLine(buf[pos : pos+nl])
		rec.Entry = e
		if err := visit(rec, perr); err != nil {
			return err
		}
		pos += nl + 1
	}
	return nil
}

// removeIfUnchanged unlinks a drained file unless it grew since the snapshot.
func (s *Store) removeIfUnchanged(hour int, snapshot int64, stats *DrainStats) {
	path := s.Path(hour)
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return
	}
	defer lock.Unlock() //nolint:errcheck // unlock closes the descriptor

	info, err := os.Stat(path)
	if err != nil || info.Size() != snapshot {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn().Err(err).Str("path", path).Msg("Failed to remove drained journal file")
		return
	}
	journalFilesRemovedTotal.Inc()
	stats.FilesRemoved++
}

// Pending returns the live records of every hour file in drain order without
// modifying anything. Malformed lines are skipped.
func (s *Store) Pending(ctx context.Context) ([]Record, error) {
	var out []Record
	current := s.now().Hour()
	for i := 1; i <= HoursPerDay; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		hour := (current + i) % HoursPerDay
		buf, err := os.ReadFile(s.Path(hour))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return out, fmt.Errorf("read journal: %w", err)
		}
		_ = scan(buf, hour, func(rec Record, perr error) error { //nolint:errcheck // visit never fails
			if perr == nil {
				out = append(out, rec)
			}
			return nil
		}, nil)
	}
	return out, nil
}

// Stats reports per-hour file status for existing files.
func (s *Store) Stats(ctx context.Context) ([]HourStatus, error) {
	records, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	pending := make(map[int]int, HoursPerDay)
	for _, r := range records {
		pending[r.Hour]++
	}

	var out []HourStatus
	for hour := 0; hour < HoursPerDay; hour++ {
		info, err := os.Stat(s.Path(hour))
		if err != nil {
			continue
		}
		out = append(out, HourStatus{
			Hour:    hour,
			Path:    s.Path(hour),
			Size:    info.Size(),
			Pending: pending[hour],
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}
