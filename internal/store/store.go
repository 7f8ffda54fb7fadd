package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/rulecard-match/internal/logging"
)

// ErrNotFound is returned when a request id is unknown.
var ErrNotFound = errors.New("request not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS match_requests (
	request_id    TEXT PRIMARY KEY,
	context_hash  TEXT NOT NULL,
	features_json TEXT NOT NULL,
	trace_json    TEXT NOT NULL,
	report_json   TEXT NOT NULL,
	matched       INTEGER NOT NULL,
	zero_sections TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_hash ON match_requests(context_hash);
`

// #endregion schema

// #region store-struct
// Store persists match requests and their per-section provenance in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. ":memory:" gives a
// private in-process database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema + logging.ProvenanceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// NewRequestID returns a fresh request id.
func NewRequestID() string {
	return uuid.New().String()
}

// #region save
// SaveRequest stores one request and its provenance rows atomically. A
// blank RequestID is assigned a new uuid; the stored record is returned.
func (s *Store) SaveRequest(rec RequestRecord, provenance []logging.ProvenanceEntry) (RequestRecord, error) {
	if rec.RequestID == "" {
		rec.RequestID = NewRequestID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RequestRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO match_requests (request_id, context_hash, features_json, trace_json, report_json, matched, zero_sections, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ContextHash, rec.FeaturesJSON, rec.TraceJSON, rec.ReportJSON,
		rec.Matched, joinSections(rec.ZeroSections), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RequestRecord{}, fmt.Errorf("insert request: %w", err)
	}

	for _, p := range provenance {
		p.RequestID = rec.RequestID
		if p.CreatedAt.IsZero() {
			p.CreatedAt = rec.CreatedAt
		}
		if err := logging.LogDecision(tx, p); err != nil {
			return RequestRecord{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return RequestRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save

// #region get
// GetRequest retrieves a stored request by id.
func (s *Store) GetRequest(id string) (RequestRecord, error) {
	row := s.db.QueryRow(
		`SELECT request_id, context_hash, features_json, trace_json, report_json, matched, zero_sections, created_at
		 FROM match_requests WHERE request_id = ?`, id,
	)
	rec, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RequestRecord{}, fmt.Errorf("get request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RequestRecord{}, fmt.Errorf("get request %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get

// #region list
// ListRequests returns the most recent requests, newest first.
func (s *Store) ListRequests(limit int) ([]RequestRecord, error) {
	rows, err := s.db.Query(
		`SELECT request_id, context_hash, features_json, trace_json, report_json, matched, zero_sections, created_at
		 FROM match_requests ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var records []RequestRecord
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListProvenance returns the per-section decisions of one request.
func (s *Store) ListProvenance(requestID string) ([]logging.ProvenanceEntry, error) {
	return logging.ListProvenance(s.db, requestID)
}

// #endregion list

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(sc scanner) (RequestRecord, error) {
	var rec RequestRecord
	var zero sql.NullString
	var created string
	if err := sc.Scan(&rec.RequestID, &rec.ContextHash, &rec.FeaturesJSON, &rec.TraceJSON,
		&rec.ReportJSON, &rec.Matched, &zero, &created); err != nil {
		return RequestRecord{}, err
	}
	rec.ZeroSections = splitSections(zero.String)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}

// #endregion scan
