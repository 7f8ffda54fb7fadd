package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danielpatrickdp/rulecard-match/internal/logging"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(created time.Time) RequestRecord {
	return RequestRecord{
		ContextHash:  "hash",
		FeaturesJSON: `{"day_master":"병"}`,
		TraceJSON:    `{"matched_rule_ids":["ELEM-001"]}`,
		ReportJSON:   `{}`,
		Matched:      1,
		ZeroSections: []string{"SURV", "APPL"},
		CreatedAt:    created,
	}
}

func TestSaveAndGetRequest(t *testing.T) {
	s := tempDB(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := s.SaveRequest(sampleRecord(created), []logging.ProvenanceEntry{
		{Section: "ELEM", Decision: logging.DecisionMatched, EvidenceRefs: "ELEM-001"},
		{Section: "APPL", Decision: logging.DecisionZeroMatch},
	})
	if err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	if rec.RequestID == "" {
		t.Fatal("expected generated request id")
	}

	got, err := s.GetRequest(rec.RequestID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("got %+v, want %+v", got, rec)
	}

	prov, err := s.ListProvenance(rec.RequestID)
	if err != nil {
		t.Fatalf("ListProvenance: %v", err)
	}
	if len(prov) != 2 || prov[0].RequestID != rec.RequestID || prov[1].Decision != logging.DecisionZeroMatch {
		t.Errorf("unexpected provenance: %+v", prov)
	}
	if !prov[0].CreatedAt.Equal(created) {
		t.Errorf("expected provenance to inherit created_at, got %v", prov[0].CreatedAt)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetRequest("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRequest_DuplicateIDRollsBack(t *testing.T) {
	s := tempDB(t)
	rec := sampleRecord(time.Now().UTC())
	rec.RequestID = "fixed"
	if _, err := s.SaveRequest(rec, nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := s.SaveRequest(rec, []logging.ProvenanceEntry{{Section: "ELEM", Decision: logging.DecisionMatched}}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	prov, err := s.ListProvenance("fixed")
	if err != nil {
		t.Fatalf("ListProvenance: %v", err)
	}
	if len(prov) != 0 {
		t.Errorf("expected rolled back provenance, got %d rows", len(prov))
	}
}

func TestListRequests_NewestFirst(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := s.SaveRequest(sampleRecord(base.Add(time.Duration(i)*time.Hour)), nil)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, rec.RequestID)
	}

	got, err := s.ListRequests(2)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(got) != 2 || got[0].RequestID != ids[2] || got[1].RequestID != ids[1] {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestNewStore_Memory(t *testing.T) {
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if _, err := s.SaveRequest(sampleRecord(time.Now().UTC()), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	recs, err := s.ListRequests(10)
	if err != nil || len(recs) != 1 {
		t.Errorf("expected one record, got %d (%v)", len(recs), err)
	}
}
