package match

import "github.com/danielpatrickdp/rulecard-match/internal/rulecard"

// #region score-breakdown
// ScoreBreakdown keeps every raw term of a card's score alongside the
// weighted sum, enough to reconstruct why one card outranked its neighbour.
type ScoreBreakdown struct {
	Priority  float64 `json:"base_score"`
	TagMatch  float64 `json:"tag_match_score"`
	YearBoost float64 `json:"year_boost"`
	GoalBoost float64 `json:"goal_boost"`
	Final     float64 `json:"final_score"`
}

// #endregion score-breakdown

// #region match
// Match is one ranked card within a section.
type Match struct {
	CardID    string         `json:"card_id"`
	Score     float64        `json:"score"`
	Fired     []string       `json:"fired_triggers"`
	Breakdown ScoreBreakdown `json:"score_details"`
}

// MatchResult is the bounded, ranked outcome of one section. An empty
// Matches slice is a valid outcome that signals a coverage gap.
type MatchResult struct {
	Section    rulecard.Section `json:"section"`
	Matches    []Match          `json:"cards"`
	Candidates int              `json:"candidates"` // cards eligible for the section
	FiredCount int              `json:"fired"`      // candidates whose trigger fired
	AvgScore   float64          `json:"avg_score"`
}

// Empty reports whether no card was selected.
func (r MatchResult) Empty() bool {
	return len(r.Matches) == 0
}

// IDs returns the selected card ids in rank order.
func (r MatchResult) IDs() []string {
	ids := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		ids[i] = m.CardID
	}
	return ids
}

// Results maps each section to its MatchResult.
type Results map[rulecard.Section]MatchResult

// #endregion match
