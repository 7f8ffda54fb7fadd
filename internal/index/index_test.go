package index

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region helpers
func card(id string, sec rulecard.Section, tags ...string) rulecard.RuleCard {
	return rulecard.RuleCard{ID: id, Section: sec, Tags: tags, Trigger: tags, Priority: 5}
}

func testCorpus() []rulecard.RuleCard {
	return []rulecard.RuleCard{
		card("c1", rulecard.SectionElement, "목", "화"),
		card("c2", rulecard.SectionElement, "목", "현금 흐름"),
		card("c3", rulecard.SectionRelational, "목", "비견"),
		card("c4", rulecard.SectionElement, "수"),
	}
}

// #endregion helpers

// #region build-tests
func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	cards := testCorpus()
	cards[3].ID = "c1"
	_, err := Build(cards)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestBuild_RejectsCardWithoutTrigger(t *testing.T) {
	cards := testCorpus()
	cards[1].Trigger = nil
	_, err := Build(cards)
	var cerr *rulecard.CardError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CardError, got %v", err)
	}
	if cerr.ID != "c2" || cerr.Field != "trigger" {
		t.Errorf("unexpected card error: %+v", cerr)
	}
}

func TestBuild_RejectsCardWithoutTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rulecard.RuleCard)
		field  string
	}{
		{"nil tags", func(c *rulecard.RuleCard) { c.Tags = nil }, "tags"},
		{"blank tag", func(c *rulecard.RuleCard) { c.Tags = []string{""} }, "tags"},
		{"whitespace tag", func(c *rulecard.RuleCard) { c.Tags = []string{"목", "  "} }, "tags"},
		{"blank trigger", func(c *rulecard.RuleCard) { c.Trigger = []string{" "} }, "trigger"},
		{"padded trigger", func(c *rulecard.RuleCard) { c.Trigger = []string{" 목"} }, "trigger"},
		{"typo trigger", func(c *rulecard.RuleCard) { c.Trigger = []string{"식신생제"} }, "trigger"},
		{"upper-case tag", func(c *rulecard.RuleCard) { c.Tags = []string{"Career"} }, "tags"},
		{"NaN priority", func(c *rulecard.RuleCard) { c.Priority = math.NaN() }, "priority"},
		{"infinite priority", func(c *rulecard.RuleCard) { c.Priority = math.Inf(1) }, "priority"},
		{"negative priority", func(c *rulecard.RuleCard) { c.Priority = -1 }, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := testCorpus()
			tt.mutate(&cards[1])
			_, err := Build(cards)
			var cerr *rulecard.CardError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected CardError, got %v", err)
			}
			if cerr.ID != "c2" || cerr.Field != tt.field {
				t.Errorf("unexpected card error: %+v", cerr)
			}
		})
	}
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	cards := testCorpus()
	idx, err := Build(cards)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cards[0].ID = "mutated"
	if _, ok := idx.Card("c1"); !ok {
		t.Error("index should hold its own copy of the cards")
	}
}

// #endregion build-tests

// #region frequency-tests
func TestDocumentFrequency(t *testing.T) {
	idx, err := Build(testCorpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[string]int{
		"목":     3,
		"화":     1,
		"현금 흐름": 1,
		"현금":    1,
		"흐름":    1,
		"없음":    0,
	}
	for tok, want := range cases {
		if got := idx.DocumentFrequency(tok); got != want {
			t.Errorf("df(%q) = %d, want %d", tok, got, want)
		}
	}
	if idx.Vocabulary() != 7 {
		t.Errorf("expected vocabulary 7, got %d", idx.Vocabulary())
	}
}

func TestInverseDocumentFrequency_Formula(t *testing.T) {
	idx, _ := Build(testCorpus())
	want := math.Log(5.0/4.0) + 1
	if got := idx.InverseDocumentFrequency("목"); math.Abs(got-want) > 1e-12 {
		t.Errorf("idf(목) = %v, want %v", got, want)
	}
	unknown := idx.InverseDocumentFrequency("없음")
	if want := math.Log(5.0) + 1; math.Abs(unknown-want) > 1e-12 {
		t.Errorf("idf(unknown) = %v, want %v", unknown, want)
	}
}

func TestInverseDocumentFrequency_Monotonic(t *testing.T) {
	idx, _ := Build(testCorpus())
	tokens := []string{"없음", "화", "목"} // df 0, 1, 3
	for i := 1; i < len(tokens); i++ {
		prev := idx.InverseDocumentFrequency(tokens[i-1])
		cur := idx.InverseDocumentFrequency(tokens[i])
		if cur > prev {
			t.Errorf("idf(%q)=%v exceeds idf(%q)=%v", tokens[i], cur, tokens[i-1], prev)
		}
		if cur <= 0 || math.IsInf(cur, 0) {
			t.Errorf("idf(%q) must be positive and finite, got %v", tokens[i], cur)
		}
	}
}

// #endregion frequency-tests

// #region section-tests
func TestSectionSize(t *testing.T) {
	idx, err := Build(testCorpus())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := idx.SectionSize(rulecard.SectionElement); got != 3 {
		t.Errorf("ELEM size = %d, want 3", got)
	}
	if got := idx.SectionSize(rulecard.SectionApplication); got != 0 {
		t.Errorf("APPL size = %d, want 0", got)
	}
	if got := idx.SectionSizes(); got[rulecard.SectionRelational] != 1 || len(got) != len(rulecard.Sections()) {
		t.Errorf("unexpected section sizes %v", got)
	}
}

func TestCardsBySection_LoadOrder(t *testing.T) {
	idx, _ := Build(testCorpus())
	got := idx.CardsBySection(rulecard.SectionElement)
	want := []string{"c1", "c2", "c4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d cards, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, c.ID, want[i])
		}
	}
	if n := len(idx.CardsBySection(rulecard.SectionApplication)); n != 0 {
		t.Errorf("expected empty APPL pool, got %d", n)
	}
	if idx.Position("c4") != 3 || idx.Position("nope") != -1 {
		t.Error("unexpected load-order positions")
	}
}

// #endregion section-tests
