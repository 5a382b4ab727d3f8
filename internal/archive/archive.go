// Package archive records exported reports in a SQLite database.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
)

// Entry is one archived export.
type Entry struct {
	ID         int64       `json:"id"`
	Kind       report.Kind `json:"kind"`
	Subject    string      `json:"subject"`
	RiskLevel  risk.Tier   `json:"risk_level"`
	TotalFlags int         `json:"total_flags"`
	Path       string      `json:"path"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Archive is a handle on the report database.
type Archive struct {
	db  *sql.DB
	log logger.Logger
	mu  sync.Mutex
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		risk_level INTEGER NOT NULL,
		total_flags INTEGER NOT NULL,
		path TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_kind ON reports(kind)`,
}

// Open opens or creates the database at path.
func Open(path string, log logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.Noop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrArchive,
				"Cannot create archive directory "+dir, "Check archive.path")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrArchive, "Cannot open report archive", "Check archive.path")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.WrapWithCode(err, errors.ErrArchive,
				"Cannot initialize report archive at "+path,
				"Delete the file if it is not a vigil archive")
		}
	}
	log.Debug("opened archive %s", path)
	return &Archive{db: db, log: log}, nil
}

// Record stores an exported report and fills in e.ID.
func (a *Archive) Record(e *Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := a.db.Exec(
		`INSERT INTO reports (kind, subject, risk_level, total_flags, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.Subject, int(e.RiskLevel), e.TotalFlags, e.Path, e.CreatedAt.UTC())
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrArchive, "Failed to archive report", "")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrArchive, "Failed to read archive id", "")
	}
	e.ID = id
	a.log.Debug("archived %s report %d at %s", e.Kind, id, e.Path)
	return nil
}

// RecordReport archives r as exported to path.
func (a *Archive) RecordReport(r *report.Report, path string) (Entry, error) {
	e := Entry{
		Kind:       r.Kind,
		Subject:    r.Subject,
		RiskLevel:  r.RiskLevel,
		TotalFlags: r.TotalFlags,
		Path:       path,
	}
	err := a.Record(&e)
	return e, err
}

// List returns the most recent entries, newest first. kind filters when
// non-empty; limit <= 0 means no limit.
func (a *Archive) List(kind report.Kind, limit int) ([]Entry, error) {
	query := `SELECT id, kind, subject, risk_level, total_flags, path, created_at FROM reports`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrArchive, "Failed to query archive", "")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one entry by id.
func (a *Archive) Get(id int64) (Entry, error) {
	row := a.db.QueryRow(
		`SELECT id, kind, subject, risk_level, total_flags, path, created_at FROM reports WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, errors.New(errors.ErrNotFound,
			fmt.Sprintf("No archived report with id %d", id),
			"Run 'vigil reports list' to see archived reports")
	}
	return e, err
}

// Count returns the number of archived reports.
func (a *Archive) Count() (int, error) {
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n)
	return n, err
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e    Entry
		kind string
		tier int
	)
	if err := s.Scan(&e.ID, &kind, &e.Subject, &tier, &e.TotalFlags, &e.Path, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, errors.WrapWithCode(err, errors.ErrArchive, "Failed to read archive row", "")
	}
	e.Kind = report.Kind(kind)
	e.RiskLevel = risk.Tier(tier)
	return e, nil
}
