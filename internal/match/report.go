package match

import (
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/index"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region report
// ReportCard is a selected card with its pass-through narrative payload.
type ReportCard struct {
	Match
	Interpretation string   `json:"interpretation,omitempty"`
	Mechanism      string   `json:"mechanism,omitempty"`
	Action         string   `json:"action,omitempty"`
	Cautions       []string `json:"cautions,omitempty"`
}

// SectionReport is one section of a Report.
type SectionReport struct {
	Cards    []ReportCard `json:"cards"`
	AvgScore float64      `json:"avg_score"`
}

// Report is the raw document handed to narrative generation and
// persistence. Card ids inside it are internal and must be scrubbed before
// any text reaches a user.
type Report struct {
	RequestID      string                             `json:"request_id,omitempty"`
	Features       features.FeatureSet                `json:"features"`
	MatchedRuleIDs []string                           `json:"matched_rule_ids"`
	MatchScores    map[string]float64                 `json:"match_scores"`
	FiredTriggers  map[string][]string                `json:"fired_triggers"`
	SectionMatches map[rulecard.Section]SectionReport `json:"section_matches"`
}

// BuildReport assembles a Report from one MatchAll outcome. idx supplies
// the pass-through texts; it may be nil, in which case they are omitted.
func BuildReport(idx *index.CorpusIndex, f features.FeatureSet, results Results, trace TraceRecord) Report {
	r := Report{
		Features:       f,
		MatchedRuleIDs: trace.MatchedRuleIDs(),
		MatchScores:    trace.MatchScores(),
		FiredTriggers:  trace.FiredTriggers(),
		SectionMatches: make(map[rulecard.Section]SectionReport, len(results)),
	}
	for _, sec := range rulecard.Sections() {
		res, ok := results[sec]
		if !ok {
			continue
		}
		sr := SectionReport{Cards: make([]ReportCard, 0, len(res.Matches)), AvgScore: res.AvgScore}
		for _, m := range res.Matches {
			rc := ReportCard{Match: m}
			if idx != nil {
				if card, ok := idx.Card(m.CardID); ok {
					rc.Interpretation = card.Interpretation
					rc.Mechanism = card.Mechanism
					rc.Action = card.Action
					rc.Cautions = card.Cautions
				}
			}
			sr.Cards = append(sr.Cards, rc)
		}
		r.SectionMatches[sec] = sr
	}
	return r
}

// Total returns the number of selected cards across all sections.
func (r Report) Total() int {
	return len(r.MatchedRuleIDs)
}

// #endregion report
