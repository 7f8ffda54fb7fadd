package eval

import "github.com/danielpatrickdp/rulecard-match/internal/rulecard"

// #region eval-config
// EvalConfig holds the coverage thresholds for one match outcome.
type EvalConfig struct {
	// MinCards is the count below which a non-empty section is underfilled.
	MinCards map[rulecard.Section]int `yaml:"min_cards" json:"min_cards"`
	// MinAvgScore flags sections whose mean score falls below it; 0 disables.
	MinAvgScore float64 `yaml:"min_avg_score" json:"min_avg_score"`
}

// DefaultEvalConfig returns the default coverage thresholds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinCards: map[rulecard.Section]int{
			rulecard.SectionElement:     3,
			rulecard.SectionRelational:  3,
			rulecard.SectionStructural:  2,
			rulecard.SectionSurvival:    2,
			rulecard.SectionApplication: 2,
		},
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single coverage check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the coverage verdict for one request.
type EvalResult struct {
	Passed       bool               `json:"passed"`
	Metrics      []EvalMetric       `json:"metrics"`
	ZeroSections []rulecard.Section `json:"zero_sections,omitempty"`
	Underfilled  []rulecard.Section `json:"underfilled,omitempty"`
	Reason       string             `json:"reason"`
}

// #endregion eval-result
