package store

import (
	"strings"
	"time"
)

// #region request-record
// RequestRecord is one persisted match request. The JSON columns hold the
// feature set, the trace and the full report exactly as produced.
type RequestRecord struct {
	RequestID    string
	ContextHash  string
	FeaturesJSON string
	TraceJSON    string
	ReportJSON   string
	Matched      int      // cards selected across all sections
	ZeroSections []string // sections that selected nothing
	CreatedAt    time.Time
}

// #endregion request-record

func joinSections(secs []string) interface{} {
	if len(secs) == 0 {
		return nil
	}
	return strings.Join(secs, ",")
}

func splitSections(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
