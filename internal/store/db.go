package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-elhub-stats/internal/model"
)

var db *sql.DB

// ErrNotInitialized is returned when the store is used before InitDB
var ErrNotInitialized = errors.New("store: database not initialized")

// Initialize DB connection
func InitDB(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	// one connection: ":memory:" databases are per connection
	conn.SetMaxOpenConns(1)

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS load_runs (
		id TEXT PRIMARY KEY,
		page TEXT,
		content_hash TEXT,
		fact_rows INTEGER,
		joined_rows INTEGER,
		quarantined INTEGER,
		dropped TEXT,
		created_at DATETIME
	);
	`
	quarantineTable := `
	CREATE TABLE IF NOT EXISTS quarantined_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		source TEXT,
		row_number INTEGER,
		column_name TEXT,
		raw_value TEXT,
		message TEXT
	);
	`
	fileTable := `
	CREATE TABLE IF NOT EXISTS output_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		file_name TEXT,
		file_path TEXT,
		file_type TEXT,
		file_size INTEGER,
		records INTEGER,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, quarantineTable, fileTable} {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return err
		}
	}

	db = conn
	return nil
}

// Close closes the database
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Enabled reports whether InitDB has been called
func Enabled() bool {
	return db != nil
}

// SaveLoadRun stores the summary of one load
func SaveLoadRun(run model.LoadRun) error {
	if db == nil {
		return ErrNotInitialized
	}
	dropped, err := json.Marshal(run.Dropped)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO load_runs (id, page, content_hash, fact_rows, joined_rows, quarantined, dropped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Page, run.ContentHash, run.FactRows, run.JoinedRows, run.Quarantined, string(dropped), run.CreatedAt.UTC())
	return err
}

// SaveQuarantinedRows stores the rows a load excluded
func SaveQuarantinedRows(runID string, rows []model.QuarantinedRow) error {
	if db == nil {
		return ErrNotInitialized
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO quarantined_rows (run_id, source, row_number, column_name, raw_value, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.Source, r.Row, r.Column, r.Value, r.Message); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListLoadRuns returns all load runs, newest first
func ListLoadRuns() ([]model.LoadRun, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT id, page, content_hash, fact_rows, joined_rows, quarantined, dropped, created_at
		FROM load_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.LoadRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetLoadRun fetches one load run
func GetLoadRun(runID string) (model.LoadRun, error) {
	if db == nil {
		return model.LoadRun{}, ErrNotInitialized
	}
	row := db.QueryRow(`SELECT id, page, content_hash, fact_rows, joined_rows, quarantined, dropped, created_at
		FROM load_runs WHERE id = ?`, runID)
	return scanRun(row)
}

// GetQuarantinedRows returns the rows excluded by a load run
func GetQuarantinedRows(runID string) ([]model.QuarantinedRow, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT source, row_number, column_name, raw_value, message
		FROM quarantined_rows WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuarantinedRow
	for rows.Next() {
		var r model.QuarantinedRow
		if err := rows.Scan(&r.Source, &r.Row, &r.Column, &r.Value, &r.Message); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveOutputFile records an export written to disk and returns its id
func SaveOutputFile(f model.OutputFile) (int, error) {
	if db == nil {
		return 0, ErrNotInitialized
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	res, err := db.Exec(`INSERT INTO output_files (run_id, file_name, file_path, file_type, file_size, records, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.FileName, f.FilePath, f.FileType, f.FileSize, f.Records, f.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// GetOutputFiles returns every export of a load run
func GetOutputFiles(runID string) ([]model.OutputFile, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := db.Query(`SELECT id, run_id, file_name, file_path, file_type, file_size, records, created_at
		FROM output_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.OutputFile
	for rows.Next() {
		var f model.OutputFile
		if err := rows.Scan(&f.ID, &f.RunID, &f.FileName, &f.FilePath, &f.FileType, &f.FileSize, &f.Records, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (model.LoadRun, error) {
	var run model.LoadRun
	var dropped string
	if err := s.Scan(&run.ID, &run.Page, &run.ContentHash, &run.FactRows, &run.JoinedRows,
		&run.Quarantined, &dropped, &run.CreatedAt); err != nil {
		return model.LoadRun{}, err
	}
	if dropped != "" && dropped != "null" {
		if err := json.Unmarshal([]byte(dropped), &run.Dropped); err != nil {
			return model.LoadRun{}, err
		}
	}
	return run, nil
}
