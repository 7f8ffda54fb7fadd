package rulecard

import (
	"fmt"
	"math"
	"strings"
)

// #region section
// Section identifies one of the fixed report categories a card is restricted to.
type Section string

const (
	SectionElement     Section = "ELEM" // elemental balance
	SectionRelational  Section = "TEN"  // relational (ten-god) categories
	SectionStructural  Section = "STRU" // structural classification
	SectionSurvival    Section = "SURV" // timing / survival
	SectionApplication Section = "APPL" // practical application
)

// Sections returns every section in pipeline order.
func Sections() []Section {
	return []Section{
		SectionElement,
		SectionRelational,
		SectionStructural,
		SectionSurvival,
		SectionApplication,
	}
}

// Valid reports whether s is one of the fixed sections.
func (s Section) Valid() bool {
	switch s {
	case SectionElement, SectionRelational, SectionStructural, SectionSurvival, SectionApplication:
		return true
	}
	return false
}

// ParseSection accepts a section id in any case.
func ParseSection(v string) (Section, error) {
	s := Section(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown section %q", v)
	}
	return s, nil
}

// #endregion section

// #region rule-card
// RuleCard is one immutable corpus entry. Cards leaving the loader always
// carry at least one tag and one trigger token.
type RuleCard struct {
	ID       string   `json:"id" yaml:"id"`
	Section  Section  `json:"section" yaml:"section"`
	Topic    string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Tags     []string `json:"tags" yaml:"tags"`
	Trigger  []string `json:"trigger" yaml:"trigger"`
	Priority float64  `json:"priority" yaml:"priority"`

	// Pass-through payloads for narrative generation; never scored.
	Interpretation string   `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
	Mechanism      string   `json:"mechanism,omitempty" yaml:"mechanism,omitempty"`
	Action         string   `json:"action,omitempty" yaml:"action,omitempty"`
	Cautions       []string `json:"cautions,omitempty" yaml:"cautions,omitempty"`
}

// MaxPriority is the upper bound of the author-assigned priority range.
const MaxPriority = 10.0

// Validate checks the query-time invariants of a card.
func (c RuleCard) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &CardError{Field: "id", Reason: "must be set"}
	}
	if !c.Section.Valid() {
		return &CardError{ID: c.ID, Field: "section", Reason: fmt.Sprintf("unknown section %q", c.Section)}
	}
	if len(c.Tags) == 0 {
		return &CardError{ID: c.ID, Field: "tags", Reason: "must not be empty"}
	}
	if err := checkTokens(c.ID, "tags", c.Tags); err != nil {
		return err
	}
	if len(c.Trigger) == 0 {
		return &CardError{ID: c.ID, Field: "trigger", Reason: "must not be empty"}
	}
	if err := checkTokens(c.ID, "trigger", c.Trigger); err != nil {
		return err
	}
	if math.IsNaN(c.Priority) || math.IsInf(c.Priority, 0) || c.Priority < 0 || c.Priority > MaxPriority {
		return &CardError{ID: c.ID, Field: "priority", Reason: fmt.Sprintf("%v outside [0, %.0f]", c.Priority, MaxPriority)}
	}
	return nil
}

// checkTokens requires every token to be non-blank and already in
// CanonTag form, since request tokens are canonicalised before matching.
func checkTokens(id, field string, toks []string) *CardError {
	for _, t := range toks {
		if strings.TrimSpace(t) == "" {
			return &CardError{ID: id, Field: field, Reason: "contains an empty token"}
		}
		if c := CanonTag(t); c != t {
			return &CardError{ID: id, Field: field, Reason: fmt.Sprintf("token %q is not canonical, want %q", t, c)}
		}
	}
	return nil
}

// HasTag reports whether tok is one of the card's tags.
func (c RuleCard) HasTag(tok string) bool {
	for _, t := range c.Tags {
		if t == tok {
			return true
		}
	}
	return false
}

// HasTrigger reports whether tok is one of the card's trigger tokens.
func (c RuleCard) HasTrigger(tok string) bool {
	for _, t := range c.Trigger {
		if t == tok {
			return true
		}
	}
	return false
}

// #endregion rule-card

// #region card-error
// CardError describes a card that violates a corpus invariant.
type CardError struct {
	ID     string
	Line   int // 1-based source line, 0 when unknown
	Field  string
	Reason string
}

func (e *CardError) Error() string {
	var b strings.Builder
	b.WriteString("rule card")
	if e.ID != "" {
		fmt.Fprintf(&b, " %s", e.ID)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	fmt.Fprintf(&b, " %s", e.Reason)
	return b.String()
}

// #endregion card-error
