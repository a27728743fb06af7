package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agridata/mygap-api/models"
)

const timestampLayout = "20060102_150405"

// ErrNoSnapshot is returned when no snapshot has ever been persisted for a
// category.
var ErrNoSnapshot = errors.New("no snapshot for category")

// State is the cache lifecycle state of one category, discovered lazily
// from the newest snapshot's capture time.
type State string

const (
	StateNoCache State = "no_cache"
	StateFresh   State = "fresh"
	StateStale   State = "stale"
)

// Clock supplies the current time. Injected so freshness transitions can be
// tested without wall-clock waits.
type Clock func() time.Time

// Store persists and selects snapshot files for all categories within one
// directory. Snapshots are immutable once written; newer captures supersede
// older ones by filename timestamp. Nothing is pruned.
type Store struct {
	dir      string
	freshFor time.Duration
	now      Clock
	log      *slog.Logger
}

// NewStore builds a Store over dir with the given freshness window. A nil
// clock means wall time.
func NewStore(dir string, freshFor time.Duration, now Clock) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		dir:      dir,
		freshFor: freshFor,
		now:      now,
		log:      slog.Default().With("component", "cache"),
	}
}

// Now exposes the store's clock so captures carry the same time source the
// freshness check reads.
func (s *Store) Now() time.Time {
	return s.now()
}

// Filename is the canonical snapshot name: <category>_<YYYYMMDD>_<HHMMSS>.json.
// Lexicographic order equals chronological order.
func Filename(category string, capturedAt time.Time) string {
	return fmt.Sprintf("%s_%s.json", strings.ToLower(category), capturedAt.Format(timestampLayout))
}

// Save persists a snapshot. The file is written to a temporary name in the
// same directory and renamed into place so readers never observe a partial
// snapshot.
func (s *Store) Save(snap *models.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := Filename(snap.Metadata.Category, snap.Metadata.CapturedAt)
	finalPath := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize snapshot file: %w", err)
	}

	s.log.Info("snapshot persisted",
		"category", snap.Metadata.Category,
		"file", name,
		"records", snap.Metadata.TotalRecords,
	)
	return name, nil
}

// LoadLatest reads the most recent snapshot for a category.
func (s *Store) LoadLatest(category string) (*models.Snapshot, string, error) {
	name, _, err := s.latest(category)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal snapshot %s: %w", name, err)
	}
	return &snap, name, nil
}

// LatestPath returns the full path and capture time of the most recent
// snapshot file, for raw downloads.
func (s *Store) LatestPath(category string) (string, time.Time, error) {
	name, capturedAt, err := s.latest(category)
	if err != nil {
		return "", time.Time{}, err
	}
	return filepath.Join(s.dir, name), capturedAt, nil
}

// StateOf reports the category's lifecycle state and, when a snapshot
// exists, its capture time. Fresh means the newest capture is within the
// freshness window of the store's clock.
func (s *Store) StateOf(category string) (State, time.Time) {
	_, capturedAt, err := s.latest(category)
	if err != nil {
		return StateNoCache, time.Time{}
	}
	if s.now().Sub(capturedAt) <= s.freshFor {
		return StateFresh, capturedAt
	}
	return StateStale, capturedAt
}

// latest selects the snapshot with the greatest timestamp in its name.
// The filename, not the file mtime, is the source of truth: it survives
// copies and backups unchanged.
func (s *Store) latest(category string) (string, time.Time, error) {
	category = strings.ToLower(category)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", time.Time{}, ErrNoSnapshot
		}
		return "", time.Time{}, fmt.Errorf("failed to list cache directory: %w", err)
	}

	prefix := category + "_"
	var bestName string
	var bestTime time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		capturedAt, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
		if err != nil {
			continue // not a snapshot file
		}
		if bestName == "" || name > bestName {
			bestName = name
			bestTime = capturedAt
		}
	}

	if bestName == "" {
		return "", time.Time{}, ErrNoSnapshot
	}
	return bestName, bestTime, nil
}
