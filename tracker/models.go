package tracker

import "time"

// RunRecord is one tracking run in the ledger.
type RunRecord struct {
	ID          uint      `gorm:"primaryKey"`
	StartedAt   time.Time `gorm:"index"`
	FinishedAt  time.Time
	InputPath   string `gorm:"size:1024"`
	InputSHA256 string `gorm:"index;size:64"`
	OutputPath  string `gorm:"size:1024"`

	Added            int
	Updated          int
	StatusOnly       int
	Unchanged        int
	MissingFromInput int

	Next15Count  int
	Last7Count   int
	ArchiveCount int

	NotifyError string `gorm:"type:text"`
}

// ChangeEntry is one changed field of a materially updated record, or a bare
// added/missing marker row.
type ChangeEntry struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       uint   `gorm:"index"`
	ReferenceID string `gorm:"index;size:64"`
	Kind        string `gorm:"index;size:16"` // added, updated, status, missing
	Field       string `gorm:"size:64"`
	OldValue    string `gorm:"type:text"`
	NewValue    string `gorm:"type:text"`
}

// ProcessedInput records each ingested feed file by content digest, so a
// re-run against the same file can be detected and optionally skipped.
type ProcessedInput struct {
	ID          uint   `gorm:"primaryKey"`
	Path        string `gorm:"uniqueIndex:uniq_input_path_sha;size:1024"`
	SHA256      string `gorm:"uniqueIndex:uniq_input_path_sha;size:64"`
	SizeBytes   int64
	ProcessedAt time.Time `gorm:"index"`
	RunID       uint      `gorm:"index"`
}
