package models

import "time"

// SnapshotMetadata describes one capture of a category's records.
type SnapshotMetadata struct {
	CapturedAt   time.Time `json:"captured_at"`
	Category     string    `json:"category"`
	TotalRecords int       `json:"total_records"`
	SkippedRows  int       `json:"skipped_rows"`
	SourceURL    string    `json:"source_url,omitempty"`
	Fields       []string  `json:"fields"`
}

// Snapshot is the persisted envelope: capture metadata plus the ordered
// records, matching the published dataset layout. Snapshots are read-only
// once written; a newer capture supersedes but never deletes an older one.
type Snapshot struct {
	Metadata SnapshotMetadata      `json:"metadata"`
	Data     []CertificationRecord `json:"data"`
}
