package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agridata/mygap-api/cache"
	"github.com/agridata/mygap-api/models"
	"github.com/agridata/mygap-api/scraper"
)

type fakeScraper struct {
	calls   int
	records []models.CertificationRecord
	err     error
}

func (f *fakeScraper) Fetch(ctx context.Context, category string) (*scraper.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.FetchResult{
		Records:   f.records,
		SourceURL: "https://example.test/" + category,
		FetchedAt: time.Now(),
	}, nil
}

func record(certNo string) models.CertificationRecord {
	year := 2023
	area := 2.5
	return models.CertificationRecord{
		CertificationNumber: certNo,
		ProjectCategory:     "PF",
		HolderName:          "Ali bin Abu",
		State:               "Johor",
		FarmAreaHectares:    &area,
		CertificationYear:   &year,
		CertificationDate:   models.NewDate(2023, time.March, 15),
		ExpiryDate:          models.NewDate(2026, time.March, 14),
	}
}

type env struct {
	dir   string
	now   time.Time
	store *cache.Store
	fake  *fakeScraper
	svc   *DataService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		dir: t.TempDir(),
		now: time.Date(2024, time.January, 2, 9, 0, 0, 0, time.Local),
	}
	e.store = cache.NewStore(e.dir, 24*time.Hour, func() time.Time { return e.now })
	e.fake = &fakeScraper{}
	e.svc = NewDataService(e.fake, e.store)
	return e
}

func (e *env) seedSnapshot(t *testing.T, category string, capturedAt time.Time, records ...models.CertificationRecord) {
	t.Helper()
	_, err := e.store.Save(&models.Snapshot{
		Metadata: models.SnapshotMetadata{
			CapturedAt:   capturedAt,
			Category:     category,
			TotalRecords: len(records),
			Fields:       models.DataFields,
		},
		Data: records,
	})
	require.NoError(t, err)
}

func (e *env) snapshotFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestGetRecordsUnsupportedCategory(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.GetRecords(context.Background(), "durian", false)
	var unsupported *scraper.UnsupportedCategoryError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 0, e.fake.calls)
}

func TestGetRecordsFirstFetchPersistsSnapshot(t *testing.T) {
	e := newEnv(t)
	e.fake.records = []models.CertificationRecord{record("MyGAP 0001")}

	result, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, result.Source)
	assert.False(t, result.Stale)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 1, e.fake.calls)
	assert.Equal(t, []string{"pf_20240102_090000.json"}, e.snapshotFiles(t))
}

func TestGetRecordsFreshCacheHitSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	// 2 hours old: fresh.
	e.seedSnapshot(t, "pf", e.now.Add(-2*time.Hour), record("MyGAP 0001"))

	first, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)
	second, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)

	assert.Equal(t, 0, e.fake.calls)
	assert.Equal(t, SourceCache, first.Source)
	assert.Equal(t, first.Records, second.Records)
}

func TestGetRecordsStaleTriggersSingleFetchAndNewSnapshot(t *testing.T) {
	e := newEnv(t)
	// Snapshot captured 2024-01-01 08:00, now 2024-01-02 09:00: 25 hours old.
	old := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.Local)
	e.seedSnapshot(t, "pf", old, record("OLD"))
	e.fake.records = []models.CertificationRecord{record("NEW 1"), record("NEW 2"), record("NEW 3")}

	result, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)

	assert.Equal(t, 1, e.fake.calls)
	assert.Equal(t, SourceFresh, result.Source)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "NEW 1", result.Records[0].CertificationNumber)

	// The old snapshot is superseded, never deleted.
	assert.Equal(t,
		[]string{"pf_20240101_080000.json", "pf_20240102_090000.json"},
		e.snapshotFiles(t))
}

func TestGetRecordsFetchFailureNoSnapshot(t *testing.T) {
	e := newEnv(t)
	e.fake.err = &scraper.SourceUnavailableError{URL: "https://example.test/pf", StatusCode: 503}

	_, err := e.svc.GetRecords(context.Background(), "pf", false)
	var unavailable *scraper.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)

	// No partial or temp files may be left behind.
	assert.Empty(t, e.snapshotFiles(t))
}

func TestGetRecordsFetchFailureFallsBackToStaleSnapshot(t *testing.T) {
	e := newEnv(t)
	old := e.now.Add(-25 * time.Hour)
	e.seedSnapshot(t, "pf", old, record("LAST GOOD"))
	e.fake.err = &scraper.SourceUnavailableError{URL: "https://example.test/pf", StatusCode: 503}

	result, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)

	assert.Equal(t, SourceStaleCache, result.Source)
	assert.True(t, result.Stale)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "LAST GOOD", result.Records[0].CertificationNumber)
	assert.True(t, result.CapturedAt.Equal(old))
}

func TestGetRecordsParseFailureFallsBackToStaleSnapshot(t *testing.T) {
	e := newEnv(t)
	e.seedSnapshot(t, "pf", e.now.Add(-25*time.Hour), record("LAST GOOD"))
	e.fake.err = &scraper.ParseFailureError{URL: "https://example.test/pf", Reason: "marker missing"}

	result, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)
	assert.True(t, result.Stale)
}

func TestGetRecordsForceRefreshBypassesFreshCache(t *testing.T) {
	e := newEnv(t)
	e.seedSnapshot(t, "pf", e.now.Add(-2*time.Hour), record("OLD"))
	e.fake.records = []models.CertificationRecord{record("NEW")}

	result, err := e.svc.GetRecords(context.Background(), "pf", true)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fake.calls)
	assert.Equal(t, SourceFresh, result.Source)
	assert.Equal(t, "NEW", result.Records[0].CertificationNumber)
}

func TestGetRecordsAcceptsShrunkenCapture(t *testing.T) {
	e := newEnv(t)
	e.seedSnapshot(t, "pf", e.now.Add(-25*time.Hour),
		record("A"), record("B"), record("C"))
	e.fake.records = []models.CertificationRecord{record("A")}

	result, err := e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Len(t, e.snapshotFiles(t), 2)
}

func TestGetRecordsCategoriesAreIndependent(t *testing.T) {
	e := newEnv(t)
	e.seedSnapshot(t, "pf", e.now.Add(-2*time.Hour), record("PF"))
	e.fake.records = []models.CertificationRecord{record("AM")}

	_, err := e.svc.GetRecords(context.Background(), "am", false)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fake.calls)

	_, err = e.svc.GetRecords(context.Background(), "pf", false)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fake.calls)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	degraded := models.CertificationRecord{CertificationNumber: "MyGAP 0002", State: "Johor"}
	e.seedSnapshot(t, "pf", e.now.Add(-2*time.Hour), record("MyGAP 0001"), degraded)

	stats, err := e.svc.Stats(context.Background(), "pf")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, SourceCache, stats.Source)
	assert.Equal(t, 0, e.fake.calls)

	assert.Equal(t, map[string]int{"Johor": 2}, stats.ByState)
	assert.Equal(t, map[string]int{"PF": 1}, stats.ByProjectCategory)
	assert.Equal(t, map[int]int{2023: 1}, stats.ByYear)

	require.Len(t, stats.FieldStatistics, len(models.DataFields))
	byName := map[string]models.FieldStat{}
	for _, fs := range stats.FieldStatistics {
		byName[fs.FieldName] = fs
	}
	assert.Equal(t, 2, byName["no_pensijilan"].CompletedCount)
	assert.Equal(t, 1, byName["luas_ladang"].CompletedCount)
	assert.InDelta(t, 50.0, byName["luas_ladang"].CompletionPercentage, 1e-9)
	assert.InDelta(t, 100.0, byName["negeri"].CompletionPercentage, 1e-9)
}

func TestStatsEmptyCategory(t *testing.T) {
	e := newEnv(t)
	e.fake.records = []models.CertificationRecord{}

	stats, err := e.svc.Stats(context.Background(), "pf")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRecords)
	for _, fs := range stats.FieldStatistics {
		assert.Zero(t, fs.CompletionPercentage)
	}
}

func TestCacheStatus(t *testing.T) {
	e := newEnv(t)
	e.seedSnapshot(t, "pf", e.now.Add(-2*time.Hour), record("MyGAP 0001"))
	e.seedSnapshot(t, "am", e.now.Add(-30*time.Hour), record("MyOrganic 0001"))

	status := e.svc.CacheStatus()
	require.Len(t, status, 4)
	assert.Equal(t, string(cache.StateFresh), status["pf"].State)
	assert.Equal(t, string(cache.StateStale), status["am"].State)
	assert.Equal(t, string(cache.StateNoCache), status["tanaman"].State)
	assert.Nil(t, status["tanaman"].CapturedAt)
	require.NotNil(t, status["pf"].CapturedAt)
}

func TestGetRecordsErrorTaxonomyDistinguishable(t *testing.T) {
	e := newEnv(t)
	e.fake.err = &scraper.ParseFailureError{URL: "u", Reason: "layout changed"}

	_, err := e.svc.GetRecords(context.Background(), "pf", false)
	var parseErr *scraper.ParseFailureError
	require.ErrorAs(t, err, &parseErr)
	var unavailable *scraper.SourceUnavailableError
	assert.False(t, errors.As(err, &unavailable))
}
