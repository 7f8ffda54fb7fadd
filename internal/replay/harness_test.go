package replay

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// helper: small corpus with one card per section.
func corpus(t *testing.T) *index.CorpusIndex {
	t.Helper()
	var cards []rulecard.RuleCard
	for _, sec := range rulecard.Sections() {
		tok := "tok-" + strings.ToLower(string(sec))
		cards = append(cards, rulecard.RuleCard{
			ID: string(sec) + "-1", Section: sec, Tags: []string{tok}, Trigger: []string{tok}, Priority: 5,
		})
	}
	idx, err := index.Build(cards)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return idx
}

// helper: feature set whose tokens hit the given sections.
func hitting(id string, secs ...rulecard.Section) Interaction {
	goals := []string{}
	for _, sec := range secs {
		goals = append(goals, "tok-"+strings.ToLower(string(sec)))
	}
	return Interaction{RequestID: id, Features: features.FeatureSet{
		DayMaster: "갑", DayMasterElement: "목", DominantTenGod: "비견", Structure: "건록격",
		TargetYear: 2026, Goals: goals,
	}}
}

// 1. Full coverage → action="matched", ids per section recorded.
func TestReplay_Matched(t *testing.T) {
	results, err := Replay(corpus(t), []Interaction{hitting("r1", rulecard.Sections()...)}, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	r := results[0]
	if r.Action != ActionMatched {
		t.Errorf("expected action=matched, got %s (%s)", r.Action, r.Reason)
	}
	if got := r.Sections[rulecard.SectionSurvival]; len(got) != 1 || got[0] != "SURV-1" {
		t.Errorf("unexpected SURV ids: %v", got)
	}
	if r.EvalResult == nil {
		t.Error("expected EvalResult to be populated")
	}
}

// 2. Partial coverage → action="zero_match", not an error.
func TestReplay_ZeroMatch(t *testing.T) {
	results, err := Replay(corpus(t), []Interaction{hitting("r1", rulecard.SectionElement)}, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if results[0].Action != ActionZeroMatch {
		t.Errorf("expected action=zero_match, got %s", results[0].Action)
	}
	if len(results[0].EvalResult.ZeroSections) != 4 {
		t.Errorf("expected 4 zero sections, got %v", results[0].EvalResult.ZeroSections)
	}
}

// 3. Decode failure and validation failure → action="rejected".
func TestReplay_Rejected(t *testing.T) {
	bad := hitting("r2")
	bad.Features.Structure = ""
	inters := []Interaction{
		{RequestID: "r1", DecodeErr: errors.New("missing is_strong_self")},
		bad,
	}
	results, err := Replay(corpus(t), inters, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, r := range results {
		if r.Action != ActionRejected || r.Sections != nil || r.EvalResult != nil {
			t.Errorf("%s: expected bare rejection, got %+v", r.RequestID, r)
		}
	}
}

// 4. Invalid policy fails the whole run.
func TestReplay_InvalidConfig(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.MatchConfig.TopN = map[rulecard.Section]int{}
	if _, err := Replay(corpus(t), nil, cfg); !errors.Is(err, match.ErrInvalidPolicy) {
		t.Errorf("expected ErrInvalidPolicy, got %v", err)
	}
}

// 5. Compare reports action and ranking drift.
func TestCompare_Differences(t *testing.T) {
	results := []ReplayResult{{
		RequestID: "r1",
		Action:    ActionMatched,
		Sections:  map[rulecard.Section][]string{rulecard.SectionElement: {"A", "B"}},
	}}
	expected := []FixtureExpectedResult{{
		RequestID: "r1",
		Action:    ActionZeroMatch,
		Sections:  map[rulecard.Section][]string{rulecard.SectionElement: {"B", "A"}},
	}}
	if diffs := Compare(results, expected); len(diffs) != 2 {
		t.Errorf("expected 2 diffs, got %v", diffs)
	}
	if diffs := Compare(results, nil); len(diffs) != 1 {
		t.Errorf("expected length diff, got %v", diffs)
	}
}
