package model

import "time"

// QuarantinedRow is a row excluded from a load because a value failed to parse
type QuarantinedRow struct {
	Source  string `json:"source"`
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// LoadDiagnostics reports what a load discarded
type LoadDiagnostics struct {
	FactRows    int              `json:"fact_rows"`
	JoinedRows  int              `json:"joined_rows"`
	Quarantined []QuarantinedRow `json:"quarantined,omitempty"`
	Dropped     map[string]int   `json:"dropped,omitempty"` // per join source, only with CountDropped
	Duration    time.Duration    `json:"duration"`
}

// JoinedTable is the loader result: the denormalized table plus diagnostics
type JoinedTable struct {
	*Table
	ContentHash string          `json:"content_hash"`
	Diagnostics LoadDiagnostics `json:"diagnostics"`
}

// OutputFile is an export written to disk
type OutputFile struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}
