package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/agridata/mygap-api/cache"
	"github.com/agridata/mygap-api/models"
	"github.com/agridata/mygap-api/scraper"
)

// Data source labels reported to API clients.
const (
	SourceCache      = "cache"
	SourceFresh      = "fresh"
	SourceStaleCache = "stale-cache"
)

// RecordsResult is the outcome of a records request: the records plus where
// they came from.
type RecordsResult struct {
	Records     []models.CertificationRecord
	Source      string
	Stale       bool
	CapturedAt  time.Time
	SkippedRows int
}

// StatsResult aggregates one category's records.
type StatsResult struct {
	TotalRecords      int
	Source            string
	Stale             bool
	CapturedAt        time.Time
	FieldStatistics   []models.FieldStat
	ByState           map[string]int
	ByProjectCategory map[string]int
	ByYear            map[int]int
}

// DataService coordinates the cache lifecycle per category: serve fresh
// snapshots directly, refresh stale ones, and fall back to the last good
// snapshot when the source is down. Categories are independent of each
// other.
type DataService struct {
	scraper scraper.Scraper
	store   *cache.Store
	log     *slog.Logger
}

func NewDataService(sc scraper.Scraper, store *cache.Store) *DataService {
	return &DataService{
		scraper: sc,
		store:   store,
		log:     slog.Default().With("component", "data_service"),
	}
}

// GetRecords returns the most appropriate records for a category. A fresh
// snapshot is served without touching the network unless forceRefresh is
// set; otherwise a fetch-and-persist cycle runs synchronously.
func (s *DataService) GetRecords(ctx context.Context, category string, forceRefresh bool) (*RecordsResult, error) {
	category = strings.ToLower(category)
	if !scraper.IsSupported(category) {
		return nil, &scraper.UnsupportedCategoryError{Category: category}
	}

	state, _ := s.store.StateOf(category)
	if state == cache.StateFresh && !forceRefresh {
		snap, name, err := s.store.LoadLatest(category)
		if err == nil {
			s.log.Info("serving fresh snapshot", "category", category, "snapshot", name)
			return &RecordsResult{
				Records:     snap.Data,
				Source:      SourceCache,
				CapturedAt:  snap.Metadata.CapturedAt,
				SkippedRows: snap.Metadata.SkippedRows,
			}, nil
		}
		// A fresh-looking snapshot that cannot be read is as good as no
		// snapshot; fall through to a refetch.
		s.log.Warn("failed to load fresh snapshot, refetching", "category", category, "error", err)
	}

	return s.refresh(ctx, category)
}

// refresh fetches the category, persists a new snapshot and returns the new
// records. On fetch failure the last good snapshot, when one exists, is
// served marked stale instead of failing the request.
func (s *DataService) refresh(ctx context.Context, category string) (*RecordsResult, error) {
	prevCount := -1
	if prev, _, err := s.store.LoadLatest(category); err == nil {
		prevCount = len(prev.Data)
	}

	result, err := s.scraper.Fetch(ctx, category)
	if err != nil {
		snap, name, loadErr := s.store.LoadLatest(category)
		if loadErr == nil {
			s.log.Warn("fetch failed, serving last good snapshot",
				"category", category, "snapshot", name, "error", err)
			return &RecordsResult{
				Records:     snap.Data,
				Source:      SourceStaleCache,
				Stale:       true,
				CapturedAt:  snap.Metadata.CapturedAt,
				SkippedRows: snap.Metadata.SkippedRows,
			}, nil
		}
		return nil, err
	}

	snap := &models.Snapshot{
		Metadata: models.SnapshotMetadata{
			CapturedAt:   s.store.Now(),
			Category:     category,
			TotalRecords: len(result.Records),
			SkippedRows:  result.SkippedRows,
			SourceURL:    result.SourceURL,
			Fields:       models.DataFields,
		},
		Data: result.Records,
	}
	if _, err := s.store.Save(snap); err != nil {
		return nil, err
	}

	if prevCount >= 0 && len(result.Records) < prevCount {
		// Site-side removal is possible; accept the capture but make the
		// shrink visible to operators.
		s.log.Warn("new capture has fewer records than previous snapshot",
			"category", category, "previous", prevCount, "current", len(result.Records))
	}

	return &RecordsResult{
		Records:     result.Records,
		Source:      SourceFresh,
		CapturedAt:  snap.Metadata.CapturedAt,
		SkippedRows: result.SkippedRows,
	}, nil
}

// Stats aggregates the category's current records: per-field completion
// rates plus record counts by state, project category and certification
// year. It reads through the same cache path as GetRecords.
func (s *DataService) Stats(ctx context.Context, category string) (*StatsResult, error) {
	res, err := s.GetRecords(ctx, category, false)
	if err != nil {
		return nil, err
	}

	total := len(res.Records)
	stats := &StatsResult{
		TotalRecords:      total,
		Source:            res.Source,
		Stale:             res.Stale,
		CapturedAt:        res.CapturedAt,
		ByState:           map[string]int{},
		ByProjectCategory: map[string]int{},
		ByYear:            map[int]int{},
	}

	for _, fa := range fieldAccessors {
		completed := 0
		for i := range res.Records {
			if fa.filled(&res.Records[i]) {
				completed++
			}
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(completed)/float64(total)*1000) / 10
		}
		stats.FieldStatistics = append(stats.FieldStatistics, models.FieldStat{
			FieldName:            fa.name,
			CompletedCount:       completed,
			TotalCount:           total,
			CompletionPercentage: pct,
		})
	}

	for i := range res.Records {
		r := &res.Records[i]
		if r.State != "" {
			stats.ByState[r.State]++
		}
		if r.ProjectCategory != "" {
			stats.ByProjectCategory[r.ProjectCategory]++
		}
		if r.CertificationYear != nil {
			stats.ByYear[*r.CertificationYear]++
		}
	}

	return stats, nil
}

// CacheStatus reports the cache state of every supported category for the
// health surface.
func (s *DataService) CacheStatus() map[string]models.CacheStatus {
	out := make(map[string]models.CacheStatus, len(scraper.Categories()))
	for _, category := range scraper.Categories() {
		state, capturedAt := s.store.StateOf(category)
		status := models.CacheStatus{State: string(state)}
		if state != cache.StateNoCache {
			t := capturedAt
			status.CapturedAt = &t
		}
		out[category] = status
	}
	return out
}

// fieldAccessors pairs each source field key with its completion check, in
// table order.
var fieldAccessors = []struct {
	name   string
	filled func(*models.CertificationRecord) bool
}{
	{"no_pensijilan", func(r *models.CertificationRecord) bool { return r.CertificationNumber != "" }},
	{"projek", func(r *models.CertificationRecord) bool { return r.ProjectCategory != "" }},
	{"nama", func(r *models.CertificationRecord) bool { return r.HolderName != "" }},
	{"negeri", func(r *models.CertificationRecord) bool { return r.State != "" }},
	{"daerah", func(r *models.CertificationRecord) bool { return r.District != "" }},
	{"jenis_tanaman", func(r *models.CertificationRecord) bool { return r.PlantType != "" }},
	{"kategori_komoditi", func(r *models.CertificationRecord) bool { return r.CommodityCategory != "" }},
	{"kategori_tanaman", func(r *models.CertificationRecord) bool { return r.PlantCategory != "" }},
	{"luas_ladang", func(r *models.CertificationRecord) bool { return r.FarmAreaHectares != nil }},
	{"tahun_pensijilan", func(r *models.CertificationRecord) bool { return r.CertificationYear != nil }},
	{"tarikh_pensijilan", func(r *models.CertificationRecord) bool { return r.CertificationDate != nil }},
	{"tempoh_sah_laku", func(r *models.CertificationRecord) bool { return r.ExpiryDate != nil }},
}
