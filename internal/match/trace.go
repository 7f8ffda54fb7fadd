package match

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// #region trace
// TraceRecord is the per-request audit of which cards were used, with what
// score and on which tokens. It is built once by the engine and cannot be
// mutated afterwards; accessors hand out copies.
type TraceRecord struct {
	ids    []string
	scores map[string]float64
	fired  map[string][]string
}

type traceJSON struct {
	MatchedRuleIDs []string            `json:"matched_rule_ids"`
	MatchScores    map[string]float64  `json:"match_scores"`
	FiredTriggers  map[string][]string `json:"fired_triggers"`
}

// newTrace merges per-section results in pipeline order.
func newTrace(order []MatchResult) (TraceRecord, error) {
	tr := TraceRecord{
		ids:    []string{},
		scores: make(map[string]float64),
		fired:  make(map[string][]string),
	}
	owner := make(map[string]string)
	for _, res := range order {
		for _, m := range res.Matches {
			if prev, dup := owner[m.CardID]; dup {
				return TraceRecord{}, fmt.Errorf("%w: card %s selected for %s and %s", ErrDataIntegrity, m.CardID, prev, res.Section)
			}
			owner[m.CardID] = string(res.Section)
			tr.ids = append(tr.ids, m.CardID)
			tr.scores[m.CardID] = m.Score
			tr.fired[m.CardID] = slices.Clone(m.Fired)
		}
	}
	return tr, nil
}

// MatchedRuleIDs returns every selected id in section then rank order.
func (t TraceRecord) MatchedRuleIDs() []string {
	return slices.Clone(t.ids)
}

// MatchScores returns id -> final score.
func (t TraceRecord) MatchScores() map[string]float64 {
	return maps.Clone(t.scores)
}

// FiredTriggers returns id -> fired tokens.
func (t TraceRecord) FiredTriggers() map[string][]string {
	out := make(map[string][]string, len(t.fired))
	for id, toks := range t.fired {
		out[id] = slices.Clone(toks)
	}
	return out
}

// Score returns the final score recorded for id.
func (t TraceRecord) Score(id string) (float64, bool) {
	s, ok := t.scores[id]
	return s, ok
}

// Len returns the number of selected cards.
func (t TraceRecord) Len() int {
	return len(t.ids)
}

func (t TraceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(traceJSON{
		MatchedRuleIDs: t.MatchedRuleIDs(),
		MatchScores:    t.MatchScores(),
		FiredTriggers:  t.FiredTriggers(),
	})
}

func (t *TraceRecord) UnmarshalJSON(data []byte) error {
	var raw traceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal trace: %w", err)
	}
	t.ids = raw.MatchedRuleIDs
	if t.ids == nil {
		t.ids = []string{}
	}
	t.scores = raw.MatchScores
	if t.scores == nil {
		t.scores = make(map[string]float64)
	}
	t.fired = raw.FiredTriggers
	if t.fired == nil {
		t.fired = make(map[string][]string)
	}
	return nil
}

// #endregion trace
