package models

import "time"

// RecordsResponse is the payload for the /api/mygap/data/:category endpoint.
type RecordsResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	TotalRecords int                   `json:"total_records"`
	Timestamp    time.Time             `json:"timestamp"`
	Source       string                `json:"source"` // cache | fresh | stale-cache
	Stale        bool                  `json:"stale"`
	CapturedAt   time.Time             `json:"captured_at"`
	SkippedRows  int                   `json:"skipped_rows,omitempty"`
	Data         []CertificationRecord `json:"data"`
}

// FieldStat reports how many records have a non-empty value for one field.
type FieldStat struct {
	FieldName            string  `json:"field_name"`
	CompletedCount       int     `json:"completed_count"`
	TotalCount           int     `json:"total_count"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// StatsResponse is the payload for the /api/mygap/stats/:category endpoint.
type StatsResponse struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	TotalRecords      int            `json:"total_records"`
	Timestamp         time.Time      `json:"timestamp"`
	Source            string         `json:"source"`
	Stale             bool           `json:"stale"`
	FieldStatistics   []FieldStat    `json:"field_statistics"`
	ByState           map[string]int `json:"by_state"`
	ByProjectCategory map[string]int `json:"by_project_category"`
	ByYear            map[int]int    `json:"by_year"`
}

// CacheStatus reports the cache state of one category for health surfaces.
type CacheStatus struct {
	State      string     `json:"state"` // no_cache | fresh | stale
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// ErrorResponse is the structured error body returned by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
