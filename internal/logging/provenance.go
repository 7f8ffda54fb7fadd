package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// #region schema
// ProvenanceSchema creates the provenance_log table.
const ProvenanceSchema = `
CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id    TEXT NOT NULL,
	context_hash  TEXT,
	section       TEXT NOT NULL,
	signals_json  TEXT,
	evidence_refs TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provenance_request ON provenance_log(request_id);
`

// #endregion schema

// #region log-decision
// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db Execer, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (request_id, context_hash, section, signals_json, evidence_refs, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		nullIfEmpty(entry.ContextHash),
		entry.Section,
		nullIfEmpty(entry.SignalsJSON),
		nullIfEmpty(entry.EvidenceRefs),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region section-entry
// SectionEntry builds the provenance row for one section outcome. Evidence
// refs are the selected card ids in rank order.
func SectionEntry(requestID, contextHash string, rec SectionRecord, ids []string) (ProvenanceEntry, error) {
	signals, err := json.Marshal(rec)
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal section record: %w", err)
	}
	entry := ProvenanceEntry{
		RequestID:    requestID,
		ContextHash:  contextHash,
		Section:      rec.Section,
		SignalsJSON:  string(signals),
		EvidenceRefs: strings.Join(ids, ","),
		Decision:     DecisionMatched,
		Reason:       fmt.Sprintf("%d of %d fired cards selected", len(ids), rec.Fired),
	}
	if len(ids) == 0 {
		entry.Decision = DecisionZeroMatch
		entry.Reason = fmt.Sprintf("no trigger fired among %d candidates", rec.Candidates)
	}
	return entry, nil
}

// #endregion section-entry

// #region list
// ListProvenance returns the rows for requestID in insertion order.
func ListProvenance(db *sql.DB, requestID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT request_id, context_hash, section, signals_json, evidence_refs, decision, reason, created_at
		 FROM provenance_log WHERE request_id = ? ORDER BY id`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var hash, signals, refs, reason sql.NullString
		var created string
		if err := rows.Scan(&e.RequestID, &hash, &e.Section, &signals, &refs, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.ContextHash = hash.String
		e.SignalsJSON = signals.String
		e.EvidenceRefs = refs.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
