package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agridata/mygap-api/cache"
	"github.com/agridata/mygap-api/models"
	"github.com/agridata/mygap-api/scraper"
	"github.com/agridata/mygap-api/services"
)

// MyGAPHandler serves the certification data surfaces.
type MyGAPHandler struct {
	svc   *services.DataService
	store *cache.Store
}

func NewMyGAPHandler(svc *services.DataService, store *cache.Store) *MyGAPHandler {
	return &MyGAPHandler{svc: svc, store: store}
}

// GetData handles GET /api/mygap/data/:category. ?refresh=true bypasses a
// fresh cache.
func (h *MyGAPHandler) GetData(c *gin.Context) {
	category := c.Param("category")
	force := c.Query("refresh") == "true"

	result, err := h.svc.GetRecords(c.Request.Context(), category, force)
	if err != nil {
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("Successfully loaded %d MyGAP certification records from %s",
		len(result.Records), result.Source)
	c.JSON(http.StatusOK, models.RecordsResponse{
		Success:      true,
		Message:      message,
		TotalRecords: len(result.Records),
		Timestamp:    time.Now(),
		Source:       result.Source,
		Stale:        result.Stale,
		CapturedAt:   result.CapturedAt,
		SkippedRows:  result.SkippedRows,
		Data:         result.Records,
	})
}

// GetStats handles GET /api/mygap/stats/:category.
func (h *MyGAPHandler) GetStats(c *gin.Context) {
	category := c.Param("category")

	stats, err := h.svc.Stats(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Success:           true,
		Message:           fmt.Sprintf("Statistics for %d MyGAP certification records", stats.TotalRecords),
		TotalRecords:      stats.TotalRecords,
		Timestamp:         time.Now(),
		Source:            stats.Source,
		Stale:             stats.Stale,
		FieldStatistics:   stats.FieldStatistics,
		ByState:           stats.ByState,
		ByProjectCategory: stats.ByProjectCategory,
		ByYear:            stats.ByYear,
	})
}

// DownloadJSON handles GET /api/mygap/download/:category. It serves the raw
// snapshot file, fetching one first when none exists yet.
func (h *MyGAPHandler) DownloadJSON(c *gin.Context) {
	category := c.Param("category")

	if _, err := h.svc.GetRecords(c.Request.Context(), category, false); err != nil {
		respondError(c, err)
		return
	}

	path, _, err := h.store.LatestPath(category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// DownloadCSV handles GET /api/mygap/download/:category/csv.
func (h *MyGAPHandler) DownloadCSV(c *gin.Context) {
	category := c.Param("category")

	result, err := h.svc.GetRecords(c.Request.Context(), category, false)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := cache.ExportCSV(&buf, result.Records); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("mygap_%s_%s.csv", category, result.CapturedAt.Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Health handles GET /api/health, reporting per-category cache state.
func (h *MyGAPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "MyGAP Data Scraper API",
		"timestamp": time.Now().Format(time.RFC3339),
		"cache":     h.svc.CacheStatus(),
	})
}

// Root handles GET /, the service info index.
func (h *MyGAPHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":    "MyGAP Data Scraper API",
		"version":    "1.0.0",
		"categories": scraper.Categories(),
		"endpoints": gin.H{
			"/api/mygap/data/:category":         "Fetch MyGAP certification data (?refresh=true to force)",
			"/api/mygap/stats/:category":        "Get statistics about the data",
			"/api/mygap/download/:category":     "Download latest snapshot as JSON",
			"/api/mygap/download/:category/csv": "Download latest records as CSV",
			"/api/health":                       "Health check with cache state",
		},
	})
}

// respondError maps the error taxonomy onto HTTP statuses with a structured
// body that distinguishes "source down" from "source changed shape".
func respondError(c *gin.Context, err error) {
	var unsupported *scraper.UnsupportedCategoryError
	var unavailable *scraper.SourceUnavailableError
	var parseFailure *scraper.ParseFailureError

	switch {
	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: "unsupported_category"})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error(), Kind: "source_unavailable"})
	case errors.As(err, &parseFailure):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error(), Kind: "parse_failure"})
	case errors.Is(err, cache.ErrNoSnapshot):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Kind: "no_snapshot"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Kind: "internal"})
	}
}
