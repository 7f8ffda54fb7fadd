package sanitize

import (
	"testing"

	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

func TestContent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"재물 흐름이 좋습니다 RC-00ab1", "재물 흐름이 좋습니다"},
		{"RC-12 stays", "RC-12 stays"},
		{"a [INTERNAL: card ELEM-1] b", "a b"},
		{"[DEBUG:score=3.2]결론", "결론"},
		{"  multi \n\t space  ", "multi space"},
	}
	for _, tt := range tests {
		if got := Content(tt.in); got != tt.want {
			t.Errorf("Content(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScrubber_KnownIDs(t *testing.T) {
	s := NewScrubber([]string{"ELEM-1", "ELEM-12", ""})
	if got := s.Scrub("see ELEM-12 and ELEM-1."); got != "see and ." {
		t.Errorf("got %q", got)
	}
	var nilScrubber *Scrubber
	if got := nilScrubber.Scrub("x RC-abcd"); got != "x" {
		t.Errorf("nil scrubber: got %q", got)
	}
}

func TestReport_DoesNotMutateInput(t *testing.T) {
	rep := match.Report{
		MatchedRuleIDs: []string{"ELEM-1"},
		SectionMatches: map[rulecard.Section]match.SectionReport{
			rulecard.SectionElement: {Cards: []match.ReportCard{{
				Match:          match.Match{CardID: "ELEM-1"},
				Interpretation: "ELEM-1 화 기운",
				Cautions:       []string{"RC-beef", "과로 주의"},
			}}},
		},
	}
	out := Report(rep, NewScrubber(rep.MatchedRuleIDs))

	card := out.SectionMatches[rulecard.SectionElement].Cards[0]
	if card.Interpretation != "화 기운" {
		t.Errorf("interpretation = %q", card.Interpretation)
	}
	if len(card.Cautions) != 1 || card.Cautions[0] != "과로 주의" {
		t.Errorf("cautions = %v", card.Cautions)
	}
	if rep.SectionMatches[rulecard.SectionElement].Cards[0].Interpretation != "ELEM-1 화 기운" {
		t.Error("input report was mutated")
	}
	if card.CardID != "ELEM-1" {
		t.Error("card id should be kept for internal consumers")
	}
}
