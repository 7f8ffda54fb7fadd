package logging

import "time"

// Decisions recorded per (request, section).
const (
	DecisionMatched   = "matched"
	DecisionZeroMatch = "zero_match"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	RequestID    string
	ContextHash  string
	Section      string
	SignalsJSON  string
	EvidenceRefs string
	Decision     string // "matched" | "zero_match"
	Reason       string
	CreatedAt    time.Time
}

// #endregion provenance-entry

// #region section-record
// SectionRecord captures the inputs behind one section decision.
// Serialized as JSON into provenance_log.signals_json.
type SectionRecord struct {
	Section    string             `json:"section"`
	Tokens     []string           `json:"tokens"`
	Candidates int                `json:"candidates"`
	Fired      int                `json:"fired"`
	TopN       int                `json:"top_n"`
	Scores     map[string]float64 `json:"scores"`
	AvgScore   float64            `json:"avg_score"`
}

// #endregion section-record
