package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
	"github.com/danielpatrickdp/rulecard-match/internal/service"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

// #region fixture-tests

// TestFixture_Session loads the session fixture, runs Replay() and compares
// each request's action and ranked ids with the recorded expectation. This
// is the ranking regression test: weight or IDF drift shows up here.
func TestFixture_Session(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	idx, err := f.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := Replay(idx, f.Interactions(), f.Config.ToReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, d := range Compare(results, f.ExpectedResults) {
		t.Error(d)
	}

	s := Summarize(results)
	if s.TotalRequests != 3 || s.Matched != 1 || s.ZeroMatch != 1 || s.Rejected != 1 || s.Nondeterministic != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

// TestExportFixture_RoundTrip records requests through the service into a
// SQLite store, exports them and replays the export against the same corpus.
func TestExportFixture_RoundTrip(t *testing.T) {
	src, err := LoadFixture(filepath.Join("testdata", "session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	idx, err := src.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}

	st, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	engine, err := match.NewEngine(idx, match.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	svc := service.New(engine, eval.NewEvalHarness(eval.DefaultEvalConfig()), service.WithRecorder(st))

	var sent []features.FeatureSet
	for _, inter := range src.Interactions()[:2] {
		if _, err := svc.Match(context.Background(), inter.Features); err != nil {
			t.Fatalf("Match: %v", err)
		}
		sent = append(sent, inter.Features)
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	records, err := st.ListRequests(10)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	exported, err := ExportFixture("export", src.Cards, DefaultReplayConfig(), records)
	if err != nil {
		t.Fatalf("ExportFixture: %v", err)
	}
	if len(exported.Requests) != 2 {
		t.Fatalf("expected 2 exported requests, got %d", len(exported.Requests))
	}

	inters := exported.Interactions()
	if inters[0].Features.DayMaster != sent[0].DayMaster {
		t.Errorf("export should be oldest first, got %s", inters[0].Features.DayMaster)
	}
	results, err := Replay(idx, inters, exported.Config.ToReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, d := range Compare(results, exported.ExpectedResults) {
		t.Error(d)
	}
	if exported.ExpectedResults[1].Action != ActionZeroMatch {
		t.Errorf("second request should be a zero match, got %s", exported.ExpectedResults[1].Action)
	}
	if got := exported.ExpectedResults[0].Sections[rulecard.SectionElement]; len(got) != 2 {
		t.Errorf("unexpected exported ELEM ids: %v", got)
	}
}

// #endregion fixture-tests
